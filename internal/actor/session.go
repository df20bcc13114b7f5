package actor

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reachforge/campaign-edge-service/internal/domain"
)

// Enqueuer is the narrow gateway surface the session actor flushes through.
// Hand-off to it is the actor's durability boundary; it never errors.
type Enqueuer interface {
	EnqueueBatch(ctx context.Context, key string, msgs []*domain.QueueMessage)
}

// InitParams are the identity fields required to activate a session.
type InitParams struct {
	SessionID           string
	UserID              string
	AttributionID       string
	CampaignID          string
	WorkspaceID         string
	ProjectID           string
	LandingPageID       string
	ABTestID            string
	ABTestVariantID     string
	TimeoutMinutes      int
	Environment         string
	CampaignEnvironment string
}

// ValidationResult is the outcome of a session validity check.
type ValidationResult struct {
	Valid        bool
	Reason       string // valid, not_found, expired
	Session      *domain.Session
	NewSessionID string
}

// TrackResult reports the post-track state the client observes.
type TrackResult struct {
	Sequence int
	Buffered int
	Flushed  bool
}

// SessionActor owns one session: its lifetime, event sequencing, and the
// pending event buffer. All operations serialize through the actor's mutex,
// so sequence numbers are gapless and buffer appends never race.
//
// Lifecycle: uninitialized -> active -> expired. Expired is terminal; the
// actor hands out a replacement session id and the client re-inits under it.
type SessionActor struct {
	mu sync.Mutex

	state      *domain.Session
	buffer     []*domain.EventRecord
	expired    bool
	renewalID  string
	flushLimit int
	gateway    Enqueuer
	log        *zap.Logger
}

// NewSessionActor creates an uninitialized actor. flushLimit is the buffer
// size that triggers a synchronous flush during Track.
func NewSessionActor(flushLimit int, gateway Enqueuer, log *zap.Logger) *SessionActor {
	return &SessionActor{
		flushLimit: flushLimit,
		gateway:    gateway,
		log:        log,
	}
}

// Init activates the session. Re-invoking on an active session with the same
// identity is idempotent and returns the existing state; differing
// campaign/workspace/project identity is a conflict. The second return
// reports whether a new session was created.
func (a *SessionActor) Init(params InitParams, now time.Time) (*domain.Session, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.expired || (a.state != nil && a.state.Expired(now)) {
		a.expireLocked()
		return nil, false, domain.ErrSessionExpired
	}

	if a.state != nil {
		if a.state.CampaignID != params.CampaignID ||
			a.state.WorkspaceID != params.WorkspaceID ||
			a.state.ProjectID != params.ProjectID {
			return nil, false, domain.ErrConflict
		}
		existing := *a.state
		return &existing, false, nil
	}

	s := &domain.Session{
		SessionID:           params.SessionID,
		UserID:              params.UserID,
		AttributionID:       params.AttributionID,
		CampaignID:          params.CampaignID,
		WorkspaceID:         params.WorkspaceID,
		ProjectID:           params.ProjectID,
		LandingPageID:       params.LandingPageID,
		TimeoutMinutes:      params.TimeoutMinutes,
		CreatedAt:           now,
		LastEventAt:         now,
		Environment:         params.Environment,
		CampaignEnvironment: params.CampaignEnvironment,
	}
	if params.ABTestID != "" {
		s.ABTest = &domain.ABTestAssignment{
			TestID:    params.ABTestID,
			VariantID: params.ABTestVariantID,
		}
	}
	a.state = s

	created := *s
	return &created, true, nil
}

// Validate checks session liveness against the wall clock. The first time
// expiry is detected the actor transitions to its terminal state and mints a
// replacement id; subsequent calls return the same replacement.
func (a *SessionActor) Validate(now time.Time) ValidationResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == nil {
		return ValidationResult{Valid: false, Reason: "not_found"}
	}
	if a.expired || a.state.Expired(now) {
		a.expireLocked()
		return ValidationResult{Valid: false, Reason: "expired", NewSessionID: a.renewalID}
	}

	snap := *a.state
	return ValidationResult{Valid: true, Reason: "valid", Session: &snap}
}

// Track assigns the next sequence number, buffers the event, and refreshes
// the activity clock. Crossing the flush threshold triggers a synchronous
// flush so the caller observes the post-flush buffer size.
func (a *SessionActor) Track(ctx context.Context, rec *domain.EventRecord, now time.Time) (TrackResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == nil {
		return TrackResult{}, domain.ErrSessionNotFound
	}
	if a.expired || a.state.Expired(now) {
		a.expireLocked()
		return TrackResult{}, domain.ErrSessionExpired
	}

	a.state.EventSequence++
	rec.SessionSequence = a.state.EventSequence
	rec.SessionID = a.state.SessionID
	a.buffer = append(a.buffer, rec)
	a.state.LastEventAt = now

	res := TrackResult{Sequence: rec.SessionSequence, Buffered: len(a.buffer)}

	if len(a.buffer) >= a.flushLimit {
		flushed := a.flushLocked(ctx)
		res.Flushed = flushed > 0
		res.Buffered = len(a.buffer)
	}

	return res, nil
}

// Flush drains the buffer into the queue gateway and returns the count
// handed off. Delivery beyond the queue is the consumer's responsibility.
func (a *SessionActor) Flush(ctx context.Context) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == nil {
		return 0, domain.ErrSessionNotFound
	}
	return a.flushLocked(ctx), nil
}

func (a *SessionActor) flushLocked(ctx context.Context) int {
	if len(a.buffer) == 0 {
		return 0
	}

	msgs := make([]*domain.QueueMessage, 0, len(a.buffer))
	for _, rec := range a.buffer {
		data, err := json.Marshal(rec)
		if err != nil {
			a.log.Error("Failed to marshal buffered event",
				zap.String("session_id", a.state.SessionID),
				zap.String("event_id", rec.EventID),
				zap.Error(err))
			continue
		}
		msgs = append(msgs, domain.NewQueueMessage(domain.RecordEvent, data, rec.Timestamp))
	}

	a.gateway.EnqueueBatch(ctx, a.state.SessionID, msgs)

	flushed := len(msgs)
	a.buffer = a.buffer[:0]
	return flushed
}

// Snapshot returns a copy of the session state for read-side callers, or
// nil if the actor was never initialized.
func (a *SessionActor) Snapshot() *domain.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == nil {
		return nil
	}
	snap := *a.state
	return &snap
}

// Reapable reports whether the session has been expired for longer than
// grace. The grace window keeps the renewal id addressable while clients
// still hold the stale session id.
func (a *SessionActor) Reapable(now time.Time, grace time.Duration) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == nil {
		return false
	}
	timeout := time.Duration(a.state.TimeoutMinutes) * time.Minute
	return now.After(a.state.LastEventAt.Add(timeout + grace))
}

// RenewalID returns the replacement session id minted at expiry.
func (a *SessionActor) RenewalID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.renewalID
}

func (a *SessionActor) expireLocked() {
	a.expired = true
	if a.renewalID == "" {
		a.renewalID = uuid.NewString()
	}
}
