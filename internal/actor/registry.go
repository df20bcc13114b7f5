package actor

import "sync"

// Registry addresses actors by a stable key so that concurrent requests for
// the same entity reach the same instance. The actor itself serializes its
// mutations; the registry only guarantees one instance per key.
type Registry[T any] struct {
	mu      sync.RWMutex
	entries map[string]T
	factory func(key string) T
}

// NewRegistry creates a registry backed by the given factory.
func NewRegistry[T any](factory func(key string) T) *Registry[T] {
	return &Registry[T]{
		entries: make(map[string]T),
		factory: factory,
	}
}

// Get returns the actor for key, creating it on first use.
func (r *Registry[T]) Get(key string) T {
	r.mu.RLock()
	if a, ok := r.entries[key]; ok {
		r.mu.RUnlock()
		return a
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.entries[key]; ok {
		return a
	}
	a := r.factory(key)
	r.entries[key] = a
	return a
}

// Lookup returns the actor for key without creating one.
func (r *Registry[T]) Lookup(key string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.entries[key]
	return a, ok
}

// Keys returns a snapshot of the live actor keys. Callers iterate the
// snapshot and re-check each actor's state before acting on it.
func (r *Registry[T]) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	return keys
}

// Remove drops the actor for key.
func (r *Registry[T]) Remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, key)
}

// Len reports the number of live actors.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
