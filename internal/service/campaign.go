package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reachforge/campaign-edge-service/internal/domain"
	"github.com/reachforge/campaign-edge-service/internal/dto"
	"github.com/reachforge/campaign-edge-service/internal/evaluator"
)

// ServeParams identify the campaign and visitor for one serve decision.
type ServeParams struct {
	Hostname string
	Slug     string
	// PreviewID selects the unpublished config, bypassing hostname lookup
	// and all exposure tracking.
	PreviewID string
	VisitorID string
	Existing  *domain.Session
	Context   *domain.RequestContext
}

// ServeResult is the rendered outcome of a serve decision.
type ServeResult struct {
	HTML     string
	Campaign *domain.CampaignConfig
	Decision dto.ServeData
}

// CampaignService runs the serving path: config lookup, evaluation, variant
// resolution, asset fetch, and background traffic recording.
type CampaignService struct {
	configs     CampaignConfigs
	assets      LandingAssets
	evaluator   *evaluator.CampaignEvaluator
	abtests     *ABTestService
	gateway     QueueGateway
	environment string
	log         *zap.Logger
}

func NewCampaignService(configs CampaignConfigs, assets LandingAssets, abtests *ABTestService, gateway QueueGateway, environment string, log *zap.Logger) *CampaignService {
	return &CampaignService{
		configs:     configs,
		assets:      assets,
		evaluator:   evaluator.NewCampaignEvaluator(log),
		abtests:     abtests,
		gateway:     gateway,
		environment: environment,
		log:         log,
	}
}

// Serve resolves the landing page for one request. Configuration problems
// surface as domain errors for the handler's not-found path; analytics
// trouble never does.
func (s *CampaignService) Serve(ctx context.Context, params ServeParams) (*ServeResult, error) {
	preview := params.PreviewID != ""

	var cfg *domain.CampaignConfig
	var err error
	if preview {
		cfg, err = s.configs.GetPreview(ctx, params.PreviewID)
	} else {
		cfg, err = s.configs.Get(ctx, params.Hostname, params.Slug)
	}
	if err != nil {
		return nil, err
	}

	eval, err := s.evaluator.Evaluate(cfg, params.Context, params.Existing)
	if err != nil {
		return nil, err
	}

	decision := dto.ServeData{
		DecisionType:  string(eval.Type),
		LandingPageID: eval.LandingPageID,
		SegmentID:     eval.SegmentID,
	}

	if eval.Type == evaluator.DecisionABTest {
		variantID, pooled, err := s.resolveVariant(cfg.Slug, eval, params, preview)
		if err != nil {
			return nil, err
		}
		if pooled {
			decision.ABTestID = eval.ABTest.ID
			decision.ABTestVariantID = variantID
			if v := eval.ABTest.Variant(variantID); v != nil && v.LandingPageID != "" {
				decision.LandingPageID = v.LandingPageID
			}
		}
		if decision.LandingPageID == "" {
			return nil, domain.ErrNoLandingPage
		}
	}

	assetEnv := "production"
	if preview {
		assetEnv = "preview"
	}
	html, err := s.assets.LandingPage(ctx, assetEnv, decision.LandingPageID)
	if err != nil {
		return nil, err
	}

	if !preview {
		go s.publishTrafficRecord(cfg, params, decision)
	}

	return &ServeResult{
		HTML:     html,
		Campaign: cfg,
		Decision: decision,
	}, nil
}

// resolveVariant applies sticky assignment first, then the test actor (or
// the bare selector in preview).
func (s *CampaignService) resolveVariant(slug string, eval *evaluator.Evaluation, params ServeParams, preview bool) (string, bool, error) {
	if eval.StickyVariantID != "" {
		return eval.StickyVariantID, true, nil
	}

	env := ""
	if preview {
		env = PreviewEnvironment
	}
	variantID, pooled, err := s.abtests.SelectOrAssign(slug, eval.ABTest, params.VisitorID, env)
	if err != nil {
		// A broken test never breaks serving; fall through to the
		// segment's primary page.
		s.log.Error("Variant selection failed",
			zap.String("campaign_slug", slug),
			zap.String("test_id", eval.ABTest.ID),
			zap.Error(err))
		return "", false, nil
	}
	return variantID, pooled, nil
}

func (s *CampaignService) publishTrafficRecord(cfg *domain.CampaignConfig, params ServeParams, decision dto.ServeData) {
	rec := &domain.TrafficRecord{
		RequestID:       uuid.NewString(),
		CampaignID:      cfg.CampaignID,
		Hostname:        params.Hostname,
		Slug:            cfg.Slug,
		DecisionType:    decision.DecisionType,
		SegmentID:       decision.SegmentID,
		ABTestID:        decision.ABTestID,
		ABTestVariantID: decision.ABTestVariantID,
		LandingPageID:   decision.LandingPageID,
		Environment:     s.environment,
		Timestamp:       time.Now().Unix(),
	}
	if params.Context != nil {
		rec.Country = params.Context.Country
		rec.DeviceType = params.Context.DeviceType
	}

	data, err := json.Marshal(rec)
	if err != nil {
		s.log.Error("Failed to marshal traffic record", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.gateway.Enqueue(ctx, rec.RequestID, domain.NewQueueMessage(domain.RecordTraffic, data, rec.Timestamp))
}
