package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/reachforge/campaign-edge-service/internal/domain"
)

func countryRule(country string) domain.SegmentRule {
	return domain.SegmentRule{
		RuleType: domain.RuleCountry,
		Operator: domain.OpEquals,
		Value:    country,
	}
}

func TestCampaignEvaluator_SegmentMatch(t *testing.T) {
	e := NewCampaignEvaluator(zap.NewNop())

	cfg := &domain.CampaignConfig{
		CampaignID:           "cmp1",
		DefaultLandingPageID: "lp-default",
		Segments: []domain.Segment{
			{ID: "seg-us", Priority: 1, PrimaryLandingPageID: "lp1", Rules: []domain.SegmentRule{countryRule("US")}},
		},
	}

	eval, err := e.Evaluate(cfg, &domain.RequestContext{Country: "US"}, nil)

	assert.NoError(t, err)
	assert.Equal(t, DecisionSegment, eval.Type)
	assert.Equal(t, "seg-us", eval.SegmentID)
	assert.Equal(t, "lp1", eval.LandingPageID)
}

func TestCampaignEvaluator_LowestPriorityWins(t *testing.T) {
	e := NewCampaignEvaluator(zap.NewNop())

	// Both segments match; priority 1 must win regardless of config order.
	cfg := &domain.CampaignConfig{
		CampaignID: "cmp1",
		Segments: []domain.Segment{
			{ID: "broad", Priority: 5, PrimaryLandingPageID: "lp-broad", Rules: []domain.SegmentRule{countryRule("US")}},
			{ID: "narrow", Priority: 1, PrimaryLandingPageID: "lp-narrow", Rules: []domain.SegmentRule{countryRule("US")}},
		},
	}

	eval, err := e.Evaluate(cfg, &domain.RequestContext{Country: "US"}, nil)

	assert.NoError(t, err)
	assert.Equal(t, "narrow", eval.SegmentID)
}

func TestCampaignEvaluator_PriorityTieBrokenByConfigOrder(t *testing.T) {
	e := NewCampaignEvaluator(zap.NewNop())

	cfg := &domain.CampaignConfig{
		CampaignID: "cmp1",
		Segments: []domain.Segment{
			{ID: "first", Priority: 1, PrimaryLandingPageID: "lp-a", Rules: []domain.SegmentRule{countryRule("US")}},
			{ID: "second", Priority: 1, PrimaryLandingPageID: "lp-b", Rules: []domain.SegmentRule{countryRule("US")}},
		},
	}

	eval, err := e.Evaluate(cfg, &domain.RequestContext{Country: "US"}, nil)

	assert.NoError(t, err)
	assert.Equal(t, "first", eval.SegmentID)
}

func TestCampaignEvaluator_AllRulesMustPass(t *testing.T) {
	e := NewCampaignEvaluator(zap.NewNop())

	cfg := &domain.CampaignConfig{
		CampaignID:           "cmp1",
		DefaultLandingPageID: "lp-default",
		Segments: []domain.Segment{
			{
				ID: "us-mobile", Priority: 1, PrimaryLandingPageID: "lp1",
				Rules: []domain.SegmentRule{
					countryRule("US"),
					{RuleType: domain.RuleDeviceType, Operator: domain.OpEquals, Value: "mobile"},
				},
			},
		},
	}

	eval, err := e.Evaluate(cfg, &domain.RequestContext{Country: "US", DeviceType: "desktop"}, nil)

	assert.NoError(t, err)
	assert.Equal(t, DecisionDefault, eval.Type)
	assert.Equal(t, "lp-default", eval.LandingPageID)
}

func TestCampaignEvaluator_NoMatchNoDefault(t *testing.T) {
	e := NewCampaignEvaluator(zap.NewNop())

	cfg := &domain.CampaignConfig{
		CampaignID: "cmp1",
		Segments: []domain.Segment{
			{ID: "seg", Priority: 1, PrimaryLandingPageID: "lp1", Rules: []domain.SegmentRule{countryRule("US")}},
		},
	}

	_, err := e.Evaluate(cfg, &domain.RequestContext{Country: "JP"}, nil)

	assert.ErrorIs(t, err, domain.ErrNoLandingPage)
}

func TestCampaignEvaluator_RunningABTest(t *testing.T) {
	e := NewCampaignEvaluator(zap.NewNop())

	cfg := &domain.CampaignConfig{
		CampaignID: "cmp1",
		Segments: []domain.Segment{
			{
				ID: "seg", Priority: 1, PrimaryLandingPageID: "lp1",
				Rules: []domain.SegmentRule{countryRule("US")},
				ABTests: []domain.ABTest{
					{
						ID: "test1", Status: domain.TestRunning, PoolingPercent: 100,
						Variants: []domain.ABTestVariant{
							{ID: "a", TrafficAllocation: 50, IsControl: true},
							{ID: "b", TrafficAllocation: 50},
						},
					},
				},
			},
		},
	}

	eval, err := e.Evaluate(cfg, &domain.RequestContext{Country: "US"}, nil)

	assert.NoError(t, err)
	assert.Equal(t, DecisionABTest, eval.Type)
	assert.Equal(t, "test1", eval.ABTest.ID)
	assert.Equal(t, "lp1", eval.LandingPageID, "fall-through target is the segment primary page")
	assert.Empty(t, eval.StickyVariantID)
}

func TestCampaignEvaluator_DraftTestIgnored(t *testing.T) {
	e := NewCampaignEvaluator(zap.NewNop())

	cfg := &domain.CampaignConfig{
		CampaignID: "cmp1",
		Segments: []domain.Segment{
			{
				ID: "seg", Priority: 1, PrimaryLandingPageID: "lp1",
				Rules:   []domain.SegmentRule{countryRule("US")},
				ABTests: []domain.ABTest{{ID: "test1", Status: domain.TestDraft}},
			},
		},
	}

	eval, err := e.Evaluate(cfg, &domain.RequestContext{Country: "US"}, nil)

	assert.NoError(t, err)
	assert.Equal(t, DecisionSegment, eval.Type)
}

func TestCampaignEvaluator_StickyAssignmentReused(t *testing.T) {
	e := NewCampaignEvaluator(zap.NewNop())

	cfg := &domain.CampaignConfig{
		CampaignID: "cmp1",
		Segments: []domain.Segment{
			{
				ID: "seg", Priority: 1, PrimaryLandingPageID: "lp1",
				Rules: []domain.SegmentRule{countryRule("US")},
				ABTests: []domain.ABTest{
					{
						ID: "test1", Status: domain.TestRunning,
						Variants: []domain.ABTestVariant{
							{ID: "a", TrafficAllocation: 50},
							{ID: "b", TrafficAllocation: 50},
						},
					},
				},
			},
		},
	}

	session := &domain.Session{
		SessionID: "s1",
		ABTest:    &domain.ABTestAssignment{TestID: "test1", VariantID: "b"},
	}

	eval, err := e.Evaluate(cfg, &domain.RequestContext{Country: "US"}, session)

	assert.NoError(t, err)
	assert.Equal(t, "b", eval.StickyVariantID)
}

func TestCampaignEvaluator_StickyIgnoredForDeadVariant(t *testing.T) {
	e := NewCampaignEvaluator(zap.NewNop())

	cfg := &domain.CampaignConfig{
		CampaignID: "cmp1",
		Segments: []domain.Segment{
			{
				ID: "seg", Priority: 1, PrimaryLandingPageID: "lp1",
				Rules: []domain.SegmentRule{countryRule("US")},
				ABTests: []domain.ABTest{
					{
						ID:       "test1",
						Status:   domain.TestRunning,
						Variants: []domain.ABTestVariant{{ID: "a", TrafficAllocation: 100}},
					},
				},
			},
		},
	}

	session := &domain.Session{
		SessionID: "s1",
		ABTest:    &domain.ABTestAssignment{TestID: "test1", VariantID: "removed"},
	}

	eval, err := e.Evaluate(cfg, &domain.RequestContext{Country: "US"}, session)

	assert.NoError(t, err)
	assert.Empty(t, eval.StickyVariantID)
}

func TestCampaignEvaluator_MalformedRulePropagates(t *testing.T) {
	e := NewCampaignEvaluator(zap.NewNop())

	cfg := &domain.CampaignConfig{
		CampaignID: "cmp1",
		Segments: []domain.Segment{
			{
				ID: "seg", Priority: 1, PrimaryLandingPageID: "lp1",
				Rules: []domain.SegmentRule{
					{RuleType: domain.RuleHourOfDay, Operator: domain.OpBetween, Value: "not-an-array"},
				},
			},
		},
	}

	_, err := e.Evaluate(cfg, &domain.RequestContext{}, nil)

	assert.ErrorIs(t, err, domain.ErrMalformedRule)
}
