package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/reachforge/campaign-edge-service/internal/actor"
	"github.com/reachforge/campaign-edge-service/internal/domain"
	"github.com/reachforge/campaign-edge-service/internal/dto"
)

// TrackingService owns the session actor registry and the tracking flow
// from client-reported events to the queue gateway.
type TrackingService struct {
	sessions    *actor.Registry[*actor.SessionActor]
	gateway     QueueGateway
	clickTokens ClickTokens
	verifier    TokenVerifier
	environment string
	timeoutMin  int
	log         *zap.Logger
}

func NewTrackingService(gateway QueueGateway, clickTokens ClickTokens, verifier TokenVerifier, flushThreshold, defaultTimeoutMin int, environment string, log *zap.Logger) *TrackingService {
	return &TrackingService{
		sessions: actor.NewRegistry(func(key string) *actor.SessionActor {
			return actor.NewSessionActor(flushThreshold, gateway, log)
		}),
		gateway:     gateway,
		clickTokens: clickTokens,
		verifier:    verifier,
		environment: environment,
		timeoutMin:  defaultTimeoutMin,
		log:         log,
	}
}

// InitSession activates the session actor and mints its click token. A
// session record goes to the queue in the background so analytics sees the
// session even if no event ever flushes. Re-initializing an expired id
// returns the replacement id alongside ErrSessionExpired so the client can
// retry under a fresh session.
func (s *TrackingService) InitSession(ctx context.Context, req *dto.InitSessionRequest) (*dto.InitSessionData, string, error) {
	timeout := req.SessionTimeoutMinutes
	if timeout <= 0 {
		timeout = s.timeoutMin
	}

	a := s.sessions.Get(req.SessionID)
	sess, created, err := a.Init(actor.InitParams{
		SessionID:           req.SessionID,
		UserID:              req.UserID,
		AttributionID:       req.AttributionID,
		CampaignID:          req.CampaignID,
		WorkspaceID:         req.WorkspaceID,
		ProjectID:           req.ProjectID,
		LandingPageID:       req.LandingPageID,
		ABTestID:            req.ABTestID,
		ABTestVariantID:     req.ABTestVariantID,
		TimeoutMinutes:      timeout,
		Environment:         s.environment,
		CampaignEnvironment: req.CampaignEnvironment,
	}, time.Now())
	if errors.Is(err, domain.ErrSessionExpired) {
		return nil, a.RenewalID(), err
	}
	if err != nil {
		return nil, "", err
	}

	clickID := ""
	if created {
		clickID, err = s.clickTokens.Create(ctx, &domain.SessionTokenData{
			SessionID:       sess.SessionID,
			UserID:          sess.UserID,
			CampaignID:      sess.CampaignID,
			WorkspaceID:     sess.WorkspaceID,
			ProjectID:       sess.ProjectID,
			LandingPageID:   sess.LandingPageID,
			ABTestID:        req.ABTestID,
			ABTestVariantID: req.ABTestVariantID,
			Timestamp:       sess.CreatedAt.Unix(),
			Environment:     s.environment,
		})
		if err != nil {
			// The session works without off-site attribution.
			s.log.Error("Failed to create click token",
				zap.String("session_id", sess.SessionID),
				zap.Error(err))
		}

		go s.publishSessionRecord(a)
	}

	return &dto.InitSessionData{
		SessionID:              sess.SessionID,
		ClickID:                clickID,
		SessionDurationMinutes: sess.TimeoutMinutes,
	}, "", nil
}

// Session returns a snapshot of a live session, or nil when the id is
// unknown or expired. Serving uses it to honor session-carried test
// assignments.
func (s *TrackingService) Session(sessionID string) *domain.Session {
	a, ok := s.sessions.Lookup(sessionID)
	if !ok {
		return nil
	}
	res := a.Validate(time.Now())
	if !res.Valid {
		return nil
	}
	return res.Session
}

// ReapExpiredSessions removes session actors expired for longer than grace,
// flushing anything still buffered first. Returns the number removed. The
// grace window keeps renewal ids stable while clients catch up.
func (s *TrackingService) ReapExpiredSessions(now time.Time, grace time.Duration) int {
	removed := 0
	for _, key := range s.sessions.Keys() {
		a, ok := s.sessions.Lookup(key)
		if !ok || !a.Reapable(now, grace) {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if _, err := a.Flush(ctx); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			s.log.Error("Failed to flush session before eviction",
				zap.String("session_id", key),
				zap.Error(err))
		}
		cancel()
		s.sessions.Remove(key)
		removed++
	}
	if removed > 0 {
		s.log.Info("Evicted expired session actors", zap.Int("removed", removed))
	}
	return removed
}

// ValidateSession reports session liveness and the renewal id on expiry.
func (s *TrackingService) ValidateSession(sessionID string) actor.ValidationResult {
	a, ok := s.sessions.Lookup(sessionID)
	if !ok {
		return actor.ValidationResult{Valid: false, Reason: "not_found"}
	}
	return a.Validate(time.Now())
}

// TrackEvent sequences and buffers one event. On expiry the replacement
// session id is returned for the client renewal flow.
func (s *TrackingService) TrackEvent(ctx context.Context, req *dto.TrackEventRequest, reqCtx *domain.RequestContext) (*dto.TrackEventData, string, error) {
	a, ok := s.sessions.Lookup(req.SessionID)
	if !ok {
		return nil, "", domain.ErrSessionNotFound
	}

	sess := a.Snapshot()
	if sess == nil {
		return nil, "", domain.ErrSessionNotFound
	}

	rec := s.buildEventRecord(req, sess, reqCtx)
	res, err := a.Track(ctx, rec, time.Now())
	if errors.Is(err, domain.ErrSessionExpired) {
		return nil, a.RenewalID(), err
	}
	if err != nil {
		return nil, "", err
	}

	return &dto.TrackEventData{
		EventSequence:     res.Sequence,
		EventsInBuffer:    res.Buffered,
		FlushedToTinybird: res.Flushed,
	}, "", nil
}

// FlushSession drains the session buffer and refreshes the session record.
func (s *TrackingService) FlushSession(ctx context.Context, sessionID string) (int, error) {
	a, ok := s.sessions.Lookup(sessionID)
	if !ok {
		return 0, domain.ErrSessionNotFound
	}

	flushed, err := a.Flush(ctx)
	if err != nil {
		return 0, err
	}
	if flushed > 0 {
		go s.publishSessionRecord(a)
	}
	return flushed, nil
}

// ExternalTrack queues an off-site conversion, bypassing the session actor.
// Identity comes from the signed token, or from the click token when the
// caller only has the short id.
func (s *TrackingService) ExternalTrack(ctx context.Context, req *dto.ExternalTrackRequest) error {
	identity, err := s.resolveIdentity(ctx, req)
	if err != nil {
		return err
	}

	rec := &domain.EventRecord{
		EventID:         req.EventID,
		EventType:       req.EventType,
		EventPlacement:  "external",
		EventValue:      req.EventValue,
		EventCurrency:   req.EventCurrency,
		SessionID:       identity.SessionID,
		UserID:          identity.UserID,
		CampaignID:      identity.CampaignID,
		WorkspaceID:     identity.WorkspaceID,
		ProjectID:       identity.ProjectID,
		LandingPageID:   identity.LandingPageID,
		ABTestID:        identity.ABTestID,
		ABTestVariantID: identity.ABTestVariantID,
		ClickID:         req.ClickID,
		Environment:     identity.Environment,
		Timestamp:       time.Now().Unix(),
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	// Fire-and-continue with its own logging boundary; the callback
	// response never waits on queue delivery.
	msg := domain.NewQueueMessage(domain.RecordEvent, data, rec.Timestamp)
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.gateway.Enqueue(bgCtx, rec.SessionID, msg)
	}()
	return nil
}

func (s *TrackingService) resolveIdentity(ctx context.Context, req *dto.ExternalTrackRequest) (*domain.SessionTokenData, error) {
	if req.Token != "" {
		claims, err := s.verifier.Verify(req.Token)
		if err != nil {
			return nil, err
		}
		return &domain.SessionTokenData{
			SessionID:       claims.SessionID,
			UserID:          claims.UserID,
			CampaignID:      claims.CampaignID,
			WorkspaceID:     claims.WorkspaceID,
			ProjectID:       claims.ProjectID,
			LandingPageID:   claims.LandingPageID,
			ABTestID:        claims.ABTestID,
			ABTestVariantID: claims.ABTestVariantID,
			Environment:     claims.Environment,
		}, nil
	}
	if req.ClickID != "" {
		return s.clickTokens.Resolve(ctx, req.ClickID)
	}
	return nil, domain.ErrTokenNotFound
}

func (s *TrackingService) buildEventRecord(req *dto.TrackEventRequest, sess *domain.Session, reqCtx *domain.RequestContext) *domain.EventRecord {
	rec := &domain.EventRecord{
		EventID:         req.EventID,
		EventType:       req.EventType,
		EventPlacement:  "internal",
		EventValue:      req.EventValue,
		EventCurrency:   req.EventCurrency,
		UserID:          sess.UserID,
		CampaignID:      sess.CampaignID,
		WorkspaceID:     sess.WorkspaceID,
		ProjectID:       sess.ProjectID,
		LandingPageID:   sess.LandingPageID,
		Country:         req.Country,
		DeviceType:      req.DeviceType,
		Browser:         req.Browser,
		OperatingSystem: req.OperatingSystem,
		Referrer:        req.Referrer,
		Environment:     sess.Environment,
		Timestamp:       time.Now().Unix(),
	}
	if sess.ABTest != nil {
		rec.ABTestID = sess.ABTest.TestID
		rec.ABTestVariantID = sess.ABTest.VariantID
	}
	if reqCtx != nil {
		rec.UserAgent = reqCtx.UserAgent
		if rec.Country == "" {
			rec.Country = reqCtx.Country
		}
		if rec.DeviceType == "" {
			rec.DeviceType = reqCtx.DeviceType
		}
	}
	if len(req.Metadata) > 0 {
		if data, err := json.Marshal(req.Metadata); err == nil {
			rec.Metadata = string(data)
		}
	}
	return rec
}

// publishSessionRecord snapshots the session and enqueues its row.
func (s *TrackingService) publishSessionRecord(a *actor.SessionActor) {
	sess := a.Snapshot()
	if sess == nil {
		return
	}

	rec := &domain.SessionRecord{
		SessionID:           sess.SessionID,
		UserID:              sess.UserID,
		AttributionID:       sess.AttributionID,
		CampaignID:          sess.CampaignID,
		WorkspaceID:         sess.WorkspaceID,
		ProjectID:           sess.ProjectID,
		LandingPageID:       sess.LandingPageID,
		EventCount:          sess.EventSequence,
		CreatedAt:           sess.CreatedAt.Unix(),
		LastEventAt:         sess.LastEventAt.Unix(),
		Environment:         sess.Environment,
		CampaignEnvironment: sess.CampaignEnvironment,
	}
	if sess.ABTest != nil {
		rec.ABTestID = sess.ABTest.TestID
		rec.ABTestVariantID = sess.ABTest.VariantID
	}

	data, err := json.Marshal(rec)
	if err != nil {
		s.log.Error("Failed to marshal session record",
			zap.String("session_id", sess.SessionID),
			zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.gateway.Enqueue(ctx, sess.SessionID, domain.NewQueueMessage(domain.RecordSession, data, time.Now().Unix()))
}
