package domain

import "encoding/json"

// RecordType tags queue messages so consumers can dispatch exhaustively.
type RecordType string

const (
	RecordSession RecordType = "session"
	RecordEvent   RecordType = "event"
	RecordTraffic RecordType = "traffic"
)

// QueueMessage is the transit envelope for analytics records.
type QueueMessage struct {
	Type       RecordType      `json:"type"`
	Data       json.RawMessage `json:"data"`
	Timestamp  int64           `json:"timestamp"`
	RetryCount int             `json:"retryCount"`
}

// EventRecord is an immutable behavioral event. The sequence is assigned by
// the owning session actor and is strictly increasing per session.
type EventRecord struct {
	EventID         string  `json:"event_id" ch:"event_id"`
	EventType       string  `json:"event_type" ch:"event_type"`           // pageview, conversion, engagement, ...
	EventPlacement  string  `json:"event_placement" ch:"event_placement"` // internal or external
	EventValue      float64 `json:"event_value,omitempty" ch:"event_value"`
	EventCurrency   string  `json:"event_currency,omitempty" ch:"event_currency"`
	SessionID       string  `json:"session_id" ch:"session_id"`
	SessionSequence int     `json:"session_event_sequence" ch:"session_event_sequence"`
	UserID          string  `json:"user_id" ch:"user_id"`
	CampaignID      string  `json:"campaign_id" ch:"campaign_id"`
	WorkspaceID     string  `json:"workspace_id" ch:"workspace_id"`
	ProjectID       string  `json:"project_id" ch:"project_id"`
	LandingPageID   string  `json:"landing_page_id" ch:"landing_page_id"`
	ABTestID        string  `json:"ab_test_id,omitempty" ch:"ab_test_id"`
	ABTestVariantID string  `json:"ab_test_variant_id,omitempty" ch:"ab_test_variant_id"`
	ClickID         string  `json:"click_id,omitempty" ch:"click_id"`
	Country         string  `json:"country,omitempty" ch:"country"`
	DeviceType      string  `json:"device_type,omitempty" ch:"device_type"`
	Browser         string  `json:"browser,omitempty" ch:"browser"`
	OperatingSystem string  `json:"operating_system,omitempty" ch:"operating_system"`
	Referrer        string  `json:"referrer,omitempty" ch:"referrer"`
	UserAgent       string  `json:"user_agent,omitempty" ch:"user_agent"`
	Environment     string  `json:"environment" ch:"environment"`
	Timestamp       int64   `json:"timestamp" ch:"timestamp"`
	Metadata        string  `json:"metadata,omitempty" ch:"metadata"`
}

// SessionRecord is the per-session row forwarded to the analytics sink.
type SessionRecord struct {
	SessionID           string `json:"session_id" ch:"session_id"`
	UserID              string `json:"user_id" ch:"user_id"`
	AttributionID       string `json:"attribution_id,omitempty" ch:"attribution_id"`
	CampaignID          string `json:"campaign_id" ch:"campaign_id"`
	WorkspaceID         string `json:"workspace_id" ch:"workspace_id"`
	ProjectID           string `json:"project_id" ch:"project_id"`
	LandingPageID       string `json:"landing_page_id" ch:"landing_page_id"`
	ABTestID            string `json:"ab_test_id,omitempty" ch:"ab_test_id"`
	ABTestVariantID     string `json:"ab_test_variant_id,omitempty" ch:"ab_test_variant_id"`
	EventCount          int    `json:"event_count" ch:"event_count"`
	CreatedAt           int64  `json:"created_at" ch:"created_at"`
	LastEventAt         int64  `json:"last_event_at" ch:"last_event_at"`
	Environment         string `json:"environment" ch:"environment"`
	CampaignEnvironment string `json:"campaign_environment" ch:"campaign_environment"`
}

// TrafficRecord captures one serve decision on the campaign domain.
type TrafficRecord struct {
	RequestID       string `json:"request_id" ch:"request_id"`
	CampaignID      string `json:"campaign_id" ch:"campaign_id"`
	Hostname        string `json:"hostname" ch:"hostname"`
	Slug            string `json:"slug" ch:"slug"`
	DecisionType    string `json:"decision_type" ch:"decision_type"` // segment, abtest, default
	SegmentID       string `json:"segment_id,omitempty" ch:"segment_id"`
	ABTestID        string `json:"ab_test_id,omitempty" ch:"ab_test_id"`
	ABTestVariantID string `json:"ab_test_variant_id,omitempty" ch:"ab_test_variant_id"`
	LandingPageID   string `json:"landing_page_id,omitempty" ch:"landing_page_id"`
	Country         string `json:"country,omitempty" ch:"country"`
	DeviceType      string `json:"device_type,omitempty" ch:"device_type"`
	Environment     string `json:"environment" ch:"environment"`
	Timestamp       int64  `json:"timestamp" ch:"timestamp"`
}

// NewQueueMessage wraps an already-marshaled record in a transit envelope.
func NewQueueMessage(t RecordType, data []byte, ts int64) *QueueMessage {
	return &QueueMessage{Type: t, Data: data, Timestamp: ts}
}
