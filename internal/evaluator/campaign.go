package evaluator

import (
	"sort"

	"go.uber.org/zap"

	"github.com/reachforge/campaign-edge-service/internal/domain"
)

// DecisionType classifies the outcome of a campaign evaluation.
type DecisionType string

const (
	DecisionSegment DecisionType = "segment"
	DecisionABTest  DecisionType = "abtest"
	DecisionDefault DecisionType = "default"
)

// Evaluation is the serve decision for one request.
type Evaluation struct {
	Type          DecisionType
	SegmentID     string
	LandingPageID string
	ABTest        *domain.ABTest
	// StickyVariantID is set when the existing session already carries a
	// live assignment for the matched test; the caller must reuse it
	// instead of re-rolling.
	StickyVariantID string
}

// CampaignEvaluator selects the serving decision for a request. Pure apart
// from logging; all state arrives as arguments.
type CampaignEvaluator struct {
	log *zap.Logger
}

// NewCampaignEvaluator creates a campaign evaluator.
func NewCampaignEvaluator(log *zap.Logger) *CampaignEvaluator {
	return &CampaignEvaluator{log: log}
}

// Evaluate walks segments in ascending priority (stable, so config order
// breaks ties) and returns the first segment whose rules all pass. A matched
// segment with a running A/B test yields an abtest decision; otherwise the
// segment's primary landing page. With no match the campaign default
// applies, and if that is absent too, domain.ErrNoLandingPage.
func (e *CampaignEvaluator) Evaluate(cfg *domain.CampaignConfig, ctx *domain.RequestContext, existing *domain.Session) (*Evaluation, error) {
	segments := make([]domain.Segment, len(cfg.Segments))
	copy(segments, cfg.Segments)
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Priority < segments[j].Priority
	})

	for i := range segments {
		seg := &segments[i]
		matched, err := e.segmentMatches(seg, ctx)
		if err != nil {
			return nil, err
		}
		if !matched {
			continue
		}

		if test := runningTest(seg); test != nil {
			eval := &Evaluation{
				Type:      DecisionABTest,
				SegmentID: seg.ID,
				ABTest:    test,
				// Fall-through target when the visitor lands outside the
				// traffic pool.
				LandingPageID: seg.PrimaryLandingPageID,
			}
			if sticky := stickyVariant(test, existing); sticky != "" {
				eval.StickyVariantID = sticky
			}
			return eval, nil
		}

		if seg.PrimaryLandingPageID == "" {
			e.log.Warn("Matched segment has no landing page",
				zap.String("campaign_id", cfg.CampaignID),
				zap.String("segment_id", seg.ID))
			return nil, domain.ErrNoLandingPage
		}

		return &Evaluation{
			Type:          DecisionSegment,
			SegmentID:     seg.ID,
			LandingPageID: seg.PrimaryLandingPageID,
		}, nil
	}

	if cfg.DefaultLandingPageID == "" {
		return nil, domain.ErrNoLandingPage
	}
	return &Evaluation{
		Type:          DecisionDefault,
		LandingPageID: cfg.DefaultLandingPageID,
	}, nil
}

// segmentMatches requires every rule to pass.
func (e *CampaignEvaluator) segmentMatches(seg *domain.Segment, ctx *domain.RequestContext) (bool, error) {
	for _, rule := range seg.Rules {
		ok, err := EvaluateRule(rule, ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func runningTest(seg *domain.Segment) *domain.ABTest {
	for i := range seg.ABTests {
		if seg.ABTests[i].Status == domain.TestRunning {
			return &seg.ABTests[i]
		}
	}
	return nil
}

// stickyVariant returns the session's prior variant when it belongs to this
// test and is still live.
func stickyVariant(test *domain.ABTest, existing *domain.Session) string {
	if existing == nil || existing.ABTest == nil {
		return ""
	}
	if existing.ABTest.TestID != test.ID {
		return ""
	}
	if test.Variant(existing.ABTest.VariantID) == nil {
		return ""
	}
	return existing.ABTest.VariantID
}
