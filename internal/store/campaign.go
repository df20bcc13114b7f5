package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/reachforge/campaign-edge-service/internal/domain"
)

// CampaignStore reads immutable campaign configuration documents published
// by the authoring system. This service never writes them.
type CampaignStore struct {
	client *redis.Client
}

func NewCampaignStore(client *redis.Client) *CampaignStore {
	return &CampaignStore{client: client}
}

// Get resolves the live configuration for a hostname and slug pair.
func (s *CampaignStore) Get(ctx context.Context, hostname, slug string) (*domain.CampaignConfig, error) {
	return s.fetch(ctx, fmt.Sprintf("campaign:%s:%s", hostname, slug))
}

// GetPreview resolves an unpublished configuration by campaign id. Preview
// traffic is never attached to A/B test actors or analytics.
func (s *CampaignStore) GetPreview(ctx context.Context, campaignID string) (*domain.CampaignConfig, error) {
	return s.fetch(ctx, fmt.Sprintf("campaign:preview:%s", campaignID))
}

func (s *CampaignStore) fetch(ctx context.Context, key string) (*domain.CampaignConfig, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrCampaignNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read campaign config %s: %w", key, err)
	}

	var cfg domain.CampaignConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode campaign config %s: %w", key, err)
	}
	return &cfg, nil
}
