package domain

import "time"

// ABTestAssignment records which variant a session was exposed to.
type ABTestAssignment struct {
	TestID    string `json:"test_id"`
	VariantID string `json:"variant_id"`
}

// Session is the state owned by a session actor. It is mutated only through
// actor methods; a session is never resurrected after expiry, only
// superseded by a new session id.
type Session struct {
	SessionID           string            `json:"session_id"`
	UserID              string            `json:"user_id"`
	AttributionID       string            `json:"attribution_id,omitempty"`
	CampaignID          string            `json:"campaign_id"`
	WorkspaceID         string            `json:"workspace_id"`
	ProjectID           string            `json:"project_id"`
	LandingPageID       string            `json:"landing_page_id"`
	ABTest              *ABTestAssignment `json:"ab_test,omitempty"`
	TimeoutMinutes      int               `json:"session_timeout_minutes"`
	CreatedAt           time.Time         `json:"created_at"`
	LastEventAt         time.Time         `json:"last_event_at"`
	EventSequence       int               `json:"event_sequence"`
	Environment         string            `json:"environment"`
	CampaignEnvironment string            `json:"campaign_environment"`
}

// Expired reports whether the session timed out relative to now.
func (s *Session) Expired(now time.Time) bool {
	return now.Sub(s.LastEventAt) > time.Duration(s.TimeoutMinutes)*time.Minute
}

// SessionTokenData is the payload mapped from a short click id, used to
// resolve off-site conversion callbacks that cannot carry session cookies.
// Immutable once written; 10-day TTL in the token store.
type SessionTokenData struct {
	SessionID       string `json:"session_id"`
	UserID          string `json:"user_id"`
	CampaignID      string `json:"campaign_id"`
	WorkspaceID     string `json:"workspace_id"`
	ProjectID       string `json:"project_id"`
	LandingPageID   string `json:"landing_page_id"`
	ABTestID        string `json:"ab_test_id,omitempty"`
	ABTestVariantID string `json:"ab_test_variant_id,omitempty"`
	Timestamp       int64  `json:"timestamp"`
	Environment     string `json:"environment"`
}
