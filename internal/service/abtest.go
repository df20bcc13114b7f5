package service

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/reachforge/campaign-edge-service/internal/actor"
	"github.com/reachforge/campaign-edge-service/internal/domain"
	"github.com/reachforge/campaign-edge-service/internal/evaluator"
)

// PreviewEnvironment marks reduced-infrastructure campaign environments
// where variant selection bypasses the actor registry entirely.
const PreviewEnvironment = "preview"

// ABTestService fronts the test actor registry for the serving path and the
// lifecycle control plane.
type ABTestService struct {
	tests   *actor.Registry[*actor.ABTestActor]
	configs CampaignConfigs
	rnd     evaluator.RandFunc
	log     *zap.Logger
}

func NewABTestService(configs CampaignConfigs, log *zap.Logger) *ABTestService {
	return &ABTestService{
		tests:   actor.NewRegistry(actor.NewABTestActor),
		configs: configs,
		rnd:     rand.Float64,
		log:     log,
	}
}

// Initialize starts the actor for a test found in the campaign's config.
func (s *ABTestService) Initialize(ctx context.Context, hostname, slug, testID string, duration time.Duration) error {
	cfg, err := s.configs.Get(ctx, hostname, slug)
	if err != nil {
		return err
	}

	test := findTest(cfg, testID)
	if test == nil {
		return domain.ErrTestNotFound
	}

	a := s.tests.Get(actor.TestKey(slug, testID))
	if err := a.Initialize(test, duration); err != nil {
		return err
	}

	s.log.Info("A/B test initialized",
		zap.String("campaign_slug", slug),
		zap.String("test_id", testID))
	return nil
}

// SelectOrAssign resolves the visitor's variant for a running test. Preview
// environments select directly with no exposure tracking. A test marked
// running in config whose actor was never explicitly initialized is
// initialized lazily, so the control plane call is a fast path, not a
// prerequisite for serving.
func (s *ABTestService) SelectOrAssign(slug string, test *domain.ABTest, visitorID, campaignEnvironment string) (string, bool, error) {
	if campaignEnvironment == PreviewEnvironment {
		id, err := evaluator.SelectVariant(test.Variants, s.rnd)
		return id, err == nil, err
	}

	a := s.tests.Get(actor.TestKey(slug, test.ID))
	if a.Status() == domain.TestDraft && test.Status == domain.TestRunning {
		if err := a.Initialize(test, 0); err != nil {
			return "", false, err
		}
	}
	return a.SelectOrAssign(visitorID, s.rnd)
}

// RecordConversion attributes a conversion to the visitor's variant.
func (s *ABTestService) RecordConversion(slug, testID, visitorID string) error {
	a, ok := s.tests.Lookup(actor.TestKey(slug, testID))
	if !ok {
		return domain.ErrTestNotFound
	}
	return a.RecordConversion(visitorID)
}

// Pause suspends assignments for a running test.
func (s *ABTestService) Pause(slug, testID string) error {
	return s.withActor(slug, testID, (*actor.ABTestActor).Pause)
}

// Resume reopens a paused test.
func (s *ABTestService) Resume(slug, testID string) error {
	return s.withActor(slug, testID, (*actor.ABTestActor).Resume)
}

// Complete terminates a test, optionally declaring a winner.
func (s *ABTestService) Complete(slug, testID, reason, winnerID string) error {
	a, ok := s.tests.Lookup(actor.TestKey(slug, testID))
	if !ok {
		return domain.ErrTestNotFound
	}
	if reason == "" {
		reason = "manual"
	}
	return a.Complete(reason, winnerID)
}

// Stats returns the test's counter snapshot.
func (s *ABTestService) Stats(slug, testID string) (actor.TestStats, error) {
	a, ok := s.tests.Lookup(actor.TestKey(slug, testID))
	if !ok {
		return actor.TestStats{}, domain.ErrTestNotFound
	}
	return a.Stats()
}

// ReapCompletedTests removes test actors completed for longer than the
// retention window. Stats for a reaped test return ErrTestNotFound.
func (s *ABTestService) ReapCompletedTests(now time.Time, retention time.Duration) int {
	removed := 0
	for _, key := range s.tests.Keys() {
		a, ok := s.tests.Lookup(key)
		if !ok || !a.Reapable(now, retention) {
			continue
		}
		s.tests.Remove(key)
		removed++
	}
	if removed > 0 {
		s.log.Info("Evicted completed test actors", zap.Int("removed", removed))
	}
	return removed
}

func (s *ABTestService) withActor(slug, testID string, op func(*actor.ABTestActor) error) error {
	a, ok := s.tests.Lookup(actor.TestKey(slug, testID))
	if !ok {
		return domain.ErrTestNotFound
	}
	return op(a)
}

func findTest(cfg *domain.CampaignConfig, testID string) *domain.ABTest {
	for i := range cfg.Segments {
		for j := range cfg.Segments[i].ABTests {
			if cfg.Segments[i].ABTests[j].ID == testID {
				return &cfg.Segments[i].ABTests[j]
			}
		}
	}
	return nil
}
