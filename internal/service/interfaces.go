package service

import (
	"context"
	"time"

	"github.com/reachforge/campaign-edge-service/internal/actor"
	"github.com/reachforge/campaign-edge-service/internal/domain"
	"github.com/reachforge/campaign-edge-service/internal/dto"
	"github.com/reachforge/campaign-edge-service/internal/token"
)

// Tracker is the session and event tracking surface exposed to transport.
type Tracker interface {
	InitSession(ctx context.Context, req *dto.InitSessionRequest) (*dto.InitSessionData, string, error)
	ValidateSession(sessionID string) actor.ValidationResult
	Session(sessionID string) *domain.Session
	TrackEvent(ctx context.Context, req *dto.TrackEventRequest, reqCtx *domain.RequestContext) (*dto.TrackEventData, string, error)
	FlushSession(ctx context.Context, sessionID string) (int, error)
	ExternalTrack(ctx context.Context, req *dto.ExternalTrackRequest) error
}

// CampaignServer resolves landing pages for inbound visitor requests.
type CampaignServer interface {
	Serve(ctx context.Context, params ServeParams) (*ServeResult, error)
}

// TestController is the A/B test control plane surface.
type TestController interface {
	Initialize(ctx context.Context, hostname, slug, testID string, duration time.Duration) error
	RecordConversion(slug, testID, visitorID string) error
	Pause(slug, testID string) error
	Resume(slug, testID string) error
	Complete(slug, testID, reason, winnerID string) error
	Stats(slug, testID string) (actor.TestStats, error)
}

// QueueGateway is the analytics hand-off surface the services publish
// through. Both methods absorb failures.
type QueueGateway interface {
	Enqueue(ctx context.Context, key string, msg *domain.QueueMessage)
	EnqueueBatch(ctx context.Context, key string, msgs []*domain.QueueMessage)
}

// ClickTokens mints and resolves short click ids for off-site attribution.
type ClickTokens interface {
	Create(ctx context.Context, data *domain.SessionTokenData) (string, error)
	Resolve(ctx context.Context, id string) (*domain.SessionTokenData, error)
}

// TokenVerifier checks signed cross-domain tracking tokens.
type TokenVerifier interface {
	Verify(raw string) (*token.TrackingClaims, error)
}

// CampaignConfigs reads campaign configuration documents.
type CampaignConfigs interface {
	Get(ctx context.Context, hostname, slug string) (*domain.CampaignConfig, error)
	GetPreview(ctx context.Context, campaignID string) (*domain.CampaignConfig, error)
}

// LandingAssets reads published landing page HTML.
type LandingAssets interface {
	LandingPage(ctx context.Context, environment, pageID string) (string, error)
}
