package actor

import (
	"sync"
	"time"

	"github.com/reachforge/campaign-edge-service/internal/domain"
	"github.com/reachforge/campaign-edge-service/internal/evaluator"
)

// TestKey derives the stable registry address for a test so every request
// for the same (campaign, test) pair serializes through one actor.
func TestKey(campaignSlug, testID string) string {
	return campaignSlug + "/" + testID
}

// VariantStats are the per-variant counters exposed by Stats.
type VariantStats struct {
	VariantID   string `json:"variant_id"`
	Exposures   int64  `json:"exposures"`
	Conversions int64  `json:"conversions"`
}

// CompleteReasonDurationElapsed marks tests closed by their configured
// running duration rather than an operator call.
const CompleteReasonDurationElapsed = "duration_elapsed"

// TestStats is a consistent point-in-time snapshot of a test.
type TestStats struct {
	TestID         string         `json:"test_id"`
	Status         string         `json:"status"`
	StartedAt      time.Time      `json:"started_at,omitempty"`
	Winner         string         `json:"winner,omitempty"`
	CompleteReason string         `json:"complete_reason,omitempty"`
	Variants       []VariantStats `json:"variants"`
}

// ABTestActor owns one experiment's lifecycle, traffic pooling, and
// counters. Mutations serialize through the write lock; Stats takes the
// read lock so it never blocks behind an unrelated writer for longer than
// one operation and never observes torn counters.
//
// State machine: draft -> running -> {paused <-> running} -> completed.
type ABTestActor struct {
	mu sync.RWMutex

	test        *domain.ABTest
	status      domain.TestStatus
	startedAt   time.Time
	duration    time.Duration
	completedAt time.Time

	assignments map[string]string // visitor id -> variant id
	exposures   map[string]int64  // variant id -> count
	conversions map[string]int64

	winner         string
	completeReason string
}

// NewABTestActor creates an actor in the draft state.
func NewABTestActor(_ string) *ABTestActor {
	return &ABTestActor{
		status:      domain.TestDraft,
		assignments: make(map[string]string),
		exposures:   make(map[string]int64),
		conversions: make(map[string]int64),
	}
}

// Initialize transitions draft -> running. Re-initializing a running test
// with identical config is idempotent; a differing config is a conflict.
func (a *ABTestActor) Initialize(test *domain.ABTest, duration time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.status {
	case domain.TestCompleted:
		return domain.ErrTestCompleted
	case domain.TestRunning, domain.TestPaused:
		if !sameTestConfig(a.test, test) {
			return domain.ErrConflict
		}
		return nil
	}

	cp := *test
	a.test = &cp
	a.status = domain.TestRunning
	a.startedAt = time.Now()
	a.duration = duration
	for _, v := range test.Variants {
		a.exposures[v.ID] = 0
		a.conversions[v.ID] = 0
	}
	return nil
}

// SelectOrAssign returns the visitor's variant, assigning one on first
// exposure. The pooling draw gates only first exposure: a visitor already
// inside the test stays inside. A false pooled return means the visitor
// falls through to the segment's primary landing page.
func (a *ABTestActor) SelectOrAssign(visitorID string, rnd evaluator.RandFunc) (variantID string, pooled bool, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.expireIfElapsedLocked(time.Now())

	switch a.status {
	case domain.TestCompleted:
		return "", false, domain.ErrTestCompleted
	case domain.TestDraft:
		return "", false, domain.ErrTestNotFound
	case domain.TestPaused:
		return "", false, nil
	}

	if id, ok := a.assignments[visitorID]; ok {
		return id, true, nil
	}

	if a.test.PoolingPercent < 100 && rnd()*100 >= a.test.PoolingPercent {
		return "", false, nil
	}

	id, err := evaluator.SelectVariant(a.test.Variants, rnd)
	if err != nil {
		return "", false, err
	}
	a.assignments[visitorID] = id
	a.exposures[id]++
	return id, true, nil
}

// RecordConversion attributes a conversion to the visitor's assigned
// variant. A visitor with no recorded exposure is a no-op, not an error: a
// missing assignment can't retroactively convert.
func (a *ABTestActor) RecordConversion(visitorID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.expireIfElapsedLocked(time.Now())

	if a.status == domain.TestCompleted {
		return domain.ErrTestCompleted
	}
	if a.status == domain.TestDraft {
		return domain.ErrTestNotFound
	}

	id, ok := a.assignments[visitorID]
	if !ok {
		return nil
	}
	a.conversions[id]++
	return nil
}

// Pause transitions running -> paused.
func (a *ABTestActor) Pause() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.expireIfElapsedLocked(time.Now())

	if a.status == domain.TestCompleted {
		return domain.ErrTestCompleted
	}
	if a.status != domain.TestRunning {
		return domain.ErrInvalidTransition
	}
	a.status = domain.TestPaused
	return nil
}

// Resume transitions paused -> running.
func (a *ABTestActor) Resume() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status == domain.TestCompleted {
		return domain.ErrTestCompleted
	}
	if a.status != domain.TestPaused {
		return domain.ErrInvalidTransition
	}
	a.status = domain.TestRunning
	return nil
}

// Complete terminates the test. Stats stay readable afterwards; all further
// mutations fail with ErrTestCompleted.
func (a *ABTestActor) Complete(reason, winnerID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.expireIfElapsedLocked(time.Now())

	if a.status == domain.TestCompleted {
		return domain.ErrTestCompleted
	}
	if a.status != domain.TestRunning && a.status != domain.TestPaused {
		return domain.ErrInvalidTransition
	}
	a.status = domain.TestCompleted
	a.completeReason = reason
	a.winner = winnerID
	a.completedAt = time.Now()
	return nil
}

// expireIfElapsedLocked completes a running test whose configured duration
// has passed. Zero duration means the test runs until completed manually.
// Caller holds the write lock.
func (a *ABTestActor) expireIfElapsedLocked(now time.Time) {
	if a.status != domain.TestRunning || a.duration <= 0 {
		return
	}
	if now.Sub(a.startedAt) >= a.duration {
		a.status = domain.TestCompleted
		a.completeReason = CompleteReasonDurationElapsed
		a.completedAt = now
	}
}

// Reapable reports whether the test has been completed for longer than the
// retention window.
func (a *ABTestActor) Reapable(now time.Time, retention time.Duration) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.status != domain.TestCompleted || a.completedAt.IsZero() {
		return false
	}
	return now.After(a.completedAt.Add(retention))
}

// Stats returns a consistent snapshot of the per-variant counters.
func (a *ABTestActor) Stats() (TestStats, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.test == nil {
		return TestStats{}, domain.ErrTestNotFound
	}

	stats := TestStats{
		TestID:         a.test.ID,
		Status:         string(a.status),
		StartedAt:      a.startedAt,
		Winner:         a.winner,
		CompleteReason: a.completeReason,
		Variants:       make([]VariantStats, 0, len(a.test.Variants)),
	}
	// An elapsed duration is reported as completed even before a mutation
	// records the transition; Stats holds only the read lock.
	if a.status == domain.TestRunning && a.duration > 0 && time.Since(a.startedAt) >= a.duration {
		stats.Status = string(domain.TestCompleted)
		stats.CompleteReason = CompleteReasonDurationElapsed
	}
	for _, v := range a.test.Variants {
		stats.Variants = append(stats.Variants, VariantStats{
			VariantID:   v.ID,
			Exposures:   a.exposures[v.ID],
			Conversions: a.conversions[v.ID],
		})
	}
	return stats, nil
}

// Status returns the current lifecycle state.
func (a *ABTestActor) Status() domain.TestStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

func sameTestConfig(a, b *domain.ABTest) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.ID != b.ID || a.PoolingPercent != b.PoolingPercent || len(a.Variants) != len(b.Variants) {
		return false
	}
	for i := range a.Variants {
		av, bv := a.Variants[i], b.Variants[i]
		if av.ID != bv.ID || av.TrafficAllocation != bv.TrafficAllocation || av.IsControl != bv.IsControl {
			return false
		}
	}
	return true
}
