package actor

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRegistry_GetCreatesOnce(t *testing.T) {
	created := 0
	r := NewRegistry(func(key string) *SessionActor {
		created++
		return NewSessionActor(5, &recordingEnqueuer{}, zap.NewNop())
	})

	a := r.Get("sess-1")
	b := r.Get("sess-1")

	assert.Same(t, a, b)
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_LookupDoesNotCreate(t *testing.T) {
	r := NewRegistry(func(key string) *SessionActor {
		return NewSessionActor(5, &recordingEnqueuer{}, zap.NewNop())
	})

	_, ok := r.Lookup("missing")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())

	r.Get("sess-1")
	a, ok := r.Lookup("sess-1")
	assert.True(t, ok)
	assert.NotNil(t, a)
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry(func(key string) *ABTestActor {
		return NewABTestActor(key)
	})

	r.Get("campaign/test-1")
	r.Remove("campaign/test-1")

	_, ok := r.Lookup("campaign/test-1")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_ConcurrentGetSameKey(t *testing.T) {
	var mu sync.Mutex
	created := 0
	r := NewRegistry(func(key string) *ABTestActor {
		mu.Lock()
		created++
		mu.Unlock()
		return NewABTestActor(key)
	})

	var wg sync.WaitGroup
	actors := make([]*ABTestActor, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actors[i] = r.Get("campaign/test-1")
		}(i)
	}
	wg.Wait()

	for _, a := range actors[1:] {
		assert.Same(t, actors[0], a)
	}
	assert.Equal(t, 1, created)
}

func TestRegistry_KeysSnapshot(t *testing.T) {
	r := NewRegistry(func(key string) *ABTestActor {
		return NewABTestActor(key)
	})

	assert.Empty(t, r.Keys())

	r.Get("campaign/test-1")
	r.Get("campaign/test-2")

	assert.ElementsMatch(t, []string{"campaign/test-1", "campaign/test-2"}, r.Keys())
}
