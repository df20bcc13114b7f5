package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// fallbackTTL bounds how long a parked message survives a queue outage.
// Messages older than this are considered lost rather than replayed stale.
const fallbackTTL = 24 * time.Hour

const fallbackPrefix = "fallback:"

// FallbackEntry is one parked queue message awaiting recovery.
type FallbackEntry struct {
	Key       string
	SessionID string
	Payload   []byte
}

// FallbackStore parks queue messages in Redis when every queue shard is
// unreachable. Keys embed a nanosecond timestamp so the recovery sweep
// replays in rough arrival order and duplicate parks never collide.
type FallbackStore struct {
	client *redis.Client
}

func NewFallbackStore(client *redis.Client) *FallbackStore {
	return &FallbackStore{client: client}
}

// Park writes one message under fallback:{unix-nano}:{session_id}.
func (s *FallbackStore) Park(ctx context.Context, sessionID string, payload []byte) error {
	key := fmt.Sprintf("%s%d:%s", fallbackPrefix, time.Now().UnixNano(), sessionID)

	if err := s.client.Set(ctx, key, payload, fallbackTTL).Err(); err != nil {
		return fmt.Errorf("failed to park message for session %s: %w", sessionID, err)
	}
	return nil
}

// List scans up to limit parked entries. SCAN keeps the sweep incremental on
// a shared Redis; the order is not strictly sorted and does not need to be.
func (s *FallbackStore) List(ctx context.Context, limit int) ([]FallbackEntry, error) {
	entries := make([]FallbackEntry, 0, limit)
	var cursor uint64

	for len(entries) < limit {
		keys, next, err := s.client.Scan(ctx, cursor, fallbackPrefix+"*", int64(limit)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan fallback keys: %w", err)
		}

		for _, key := range keys {
			if len(entries) >= limit {
				break
			}
			payload, err := s.client.Get(ctx, key).Bytes()
			if err == redis.Nil {
				continue // expired between scan and get
			}
			if err != nil {
				return nil, fmt.Errorf("failed to read fallback key %s: %w", key, err)
			}
			entries = append(entries, FallbackEntry{
				Key:       key,
				SessionID: sessionIDFromKey(key),
				Payload:   payload,
			})
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}
	return entries, nil
}

// Delete removes a recovered entry.
func (s *FallbackStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete fallback key %s: %w", key, err)
	}
	return nil
}

// sessionIDFromKey strips "fallback:{ts}:" and returns the remainder.
// Session ids may themselves contain colons, so only two cuts are made.
func sessionIDFromKey(key string) string {
	rest := key[len(fallbackPrefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == ':' {
			return rest[i+1:]
		}
	}
	return rest
}
