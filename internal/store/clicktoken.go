package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/reachforge/campaign-edge-service/internal/domain"
)

// clickTokenTTL matches the longest attribution window this service honors
// for off-site conversion callbacks.
const clickTokenTTL = 10 * 24 * time.Hour

// ClickTokenStore maps short click ids to session token payloads so outbound
// links can carry attribution without cookies. Payloads are write-once.
type ClickTokenStore struct {
	client *redis.Client
}

func NewClickTokenStore(client *redis.Client) *ClickTokenStore {
	return &ClickTokenStore{client: client}
}

// Create mints a new click id for the payload and stores it for 10 days.
func (s *ClickTokenStore) Create(ctx context.Context, data *domain.SessionTokenData) (string, error) {
	id, err := NewClickID(time.Now())
	if err != nil {
		return "", fmt.Errorf("failed to generate click id: %w", err)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to encode click token: %w", err)
	}

	// SetNX keeps payloads immutable if the 3 random bytes ever collide
	// within one second; the caller just mints again.
	ok, err := s.client.SetNX(ctx, "click:"+id, raw, clickTokenTTL).Result()
	if err != nil {
		return "", fmt.Errorf("failed to store click token %s: %w", id, err)
	}
	if !ok {
		return s.Create(ctx, data)
	}
	return id, nil
}

// Resolve returns the payload for a click id, or ErrTokenNotFound once the
// token expired or never existed.
func (s *ClickTokenStore) Resolve(ctx context.Context, id string) (*domain.SessionTokenData, error) {
	raw, err := s.client.Get(ctx, "click:"+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read click token %s: %w", id, err)
	}

	var data domain.SessionTokenData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode click token %s: %w", id, err)
	}
	return &data, nil
}
