package dto

// InitSessionRequest starts a session for a served landing page.
type InitSessionRequest struct {
	SessionID             string `json:"session_id" binding:"required"`
	UserID                string `json:"user_id" binding:"required"`
	AttributionID         string `json:"attribution_id"`
	CampaignID            string `json:"campaign_id" binding:"required"`
	WorkspaceID           string `json:"workspace_id" binding:"required"`
	ProjectID             string `json:"project_id" binding:"required"`
	LandingPageID         string `json:"landing_page_id" binding:"required"`
	ABTestID              string `json:"ab_test_id"`
	ABTestVariantID       string `json:"ab_test_variant_id"`
	SessionTimeoutMinutes int    `json:"session_timeout_minutes"`
	CampaignEnvironment   string `json:"campaign_environment"`
}

// ValidateSessionRequest checks whether a session is still live.
type ValidateSessionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// FlushSessionRequest forces the session's event buffer onto the queue.
type FlushSessionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// TrackEventRequest reports one behavioral event on a live session.
type TrackEventRequest struct {
	EventID         string                 `json:"event_id" binding:"required"`
	EventType       string                 `json:"event_type" binding:"required"`
	SessionID       string                 `json:"session_id" binding:"required"`
	EventValue      float64                `json:"event_value"`
	EventCurrency   string                 `json:"event_currency"`
	Country         string                 `json:"country"`
	DeviceType      string                 `json:"device_type"`
	Browser         string                 `json:"browser"`
	OperatingSystem string                 `json:"operating_system"`
	Referrer        string                 `json:"referrer"`
	Metadata        map[string]interface{} `json:"metadata"`
}

// ExternalTrackRequest reports an off-site conversion. The token carries the
// session identity; click_id is the fallback resolution path.
type ExternalTrackRequest struct {
	Token         string  `json:"token"`
	ClickID       string  `json:"click_id"`
	EventID       string  `json:"event_id" binding:"required"`
	EventType     string  `json:"event_type" binding:"required"`
	EventValue    float64 `json:"event_value"`
	EventCurrency string  `json:"event_currency"`
}

// InitializeTestRequest starts an A/B test actor.
type InitializeTestRequest struct {
	DurationHours int `json:"duration_hours"`
}

// ConversionRequest attributes a conversion to a test visitor. The test is
// addressed by the request path.
type ConversionRequest struct {
	VisitorID string `json:"visitor_id" binding:"required"`
}

// CompleteTestRequest terminates a test.
type CompleteTestRequest struct {
	Reason   string `json:"reason"`
	WinnerID string `json:"winner_id"`
}
