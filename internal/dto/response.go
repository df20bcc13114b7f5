package dto

// ErrorResponse is the generic failure envelope.
type ErrorResponse struct {
	Success      bool   `json:"success"`
	Error        string `json:"error"`
	NewSessionID string `json:"new_session_id,omitempty"`
}

// SuccessResponse wraps a successful payload.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// InitSessionData is the payload returned by session init.
type InitSessionData struct {
	SessionID              string `json:"session_id"`
	ClickID                string `json:"click_id"`
	SessionDurationMinutes int    `json:"session_duration_minutes"`
}

// ValidateSessionResponse reports session liveness.
type ValidateSessionResponse struct {
	Valid        bool        `json:"valid"`
	Reason       string      `json:"reason"`
	Session      interface{} `json:"session,omitempty"`
	NewSessionID string      `json:"new_session_id,omitempty"`
}

// FlushSessionData reports how many events a forced flush handed off.
type FlushSessionData struct {
	FlushedEvents int `json:"flushed_events"`
}

// TrackEventData is the post-track state the client observes.
type TrackEventData struct {
	EventSequence     int  `json:"event_sequence"`
	EventsInBuffer    int  `json:"events_in_buffer"`
	FlushedToTinybird bool `json:"flushed_to_tinybird"`
}

// ServeData describes a serve decision for preview and debugging clients.
type ServeData struct {
	DecisionType    string `json:"decision_type"`
	LandingPageID   string `json:"landing_page_id"`
	SegmentID       string `json:"segment_id,omitempty"`
	ABTestID        string `json:"ab_test_id,omitempty"`
	ABTestVariantID string `json:"ab_test_variant_id,omitempty"`
}
