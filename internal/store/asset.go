package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/reachforge/campaign-edge-service/internal/domain"
)

// AssetStore serves pre-rendered landing page HTML keyed by environment and
// page id. Assets are written by the publishing pipeline and read-only here.
type AssetStore struct {
	client *redis.Client
}

func NewAssetStore(client *redis.Client) *AssetStore {
	return &AssetStore{client: client}
}

// LandingPage returns the rendered HTML for a landing page id, or
// ErrNoLandingPage when the asset was never published for that environment.
func (s *AssetStore) LandingPage(ctx context.Context, environment, pageID string) (string, error) {
	key := fmt.Sprintf("landing:%s:%s", environment, pageID)

	html, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrNoLandingPage
	}
	if err != nil {
		return "", fmt.Errorf("failed to read landing asset %s: %w", key, err)
	}
	return html, nil
}
