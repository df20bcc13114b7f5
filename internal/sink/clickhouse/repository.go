package clickhouse

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/reachforge/campaign-edge-service/internal/domain"
)

// Repository implements the sink ingestor on ClickHouse with one table per
// record type.
type Repository struct {
	client *Client
	log    *zap.Logger
}

func NewRepository(client *Client, log *zap.Logger) *Repository {
	return &Repository{client: client, log: log}
}

// InitSchema creates the analytics tables if they don't exist. Events and
// traffic are append-only MergeTree; sessions use ReplacingMergeTree keyed
// on last_event_at so re-flushed session rows collapse to the latest state.
func (r *Repository) InitSchema(ctx context.Context) error {
	queries := []string{
		`
	CREATE TABLE IF NOT EXISTS events (
		event_id String,
		event_type LowCardinality(String),
		event_placement LowCardinality(String),
		event_value Float64,
		event_currency LowCardinality(String),
		session_id String,
		session_event_sequence Int32,
		user_id String,
		campaign_id String,
		workspace_id String,
		project_id String,
		landing_page_id String,
		ab_test_id String,
		ab_test_variant_id String,
		click_id String,
		country LowCardinality(String),
		device_type LowCardinality(String),
		browser LowCardinality(String),
		operating_system LowCardinality(String),
		referrer String,
		user_agent String,
		environment LowCardinality(String),
		timestamp Int64,
		metadata String
	) ENGINE = MergeTree
	ORDER BY (session_id, session_event_sequence)
	PARTITION BY toYYYYMM(toDateTime(timestamp))
	SETTINGS index_granularity = 8192
	`,
		`
	CREATE TABLE IF NOT EXISTS sessions (
		session_id String,
		user_id String,
		attribution_id String,
		campaign_id String,
		workspace_id String,
		project_id String,
		landing_page_id String,
		ab_test_id String,
		ab_test_variant_id String,
		event_count Int32,
		created_at Int64,
		last_event_at Int64,
		environment LowCardinality(String),
		campaign_environment LowCardinality(String)
	) ENGINE = ReplacingMergeTree(last_event_at)
	PRIMARY KEY (session_id)
	ORDER BY (session_id, created_at)
	PARTITION BY toYYYYMM(toDateTime(created_at))
	SETTINGS index_granularity = 8192
	`,
		`
	CREATE TABLE IF NOT EXISTS traffic (
		request_id String,
		campaign_id String,
		hostname String,
		slug String,
		decision_type LowCardinality(String),
		segment_id String,
		ab_test_id String,
		ab_test_variant_id String,
		landing_page_id String,
		country LowCardinality(String),
		device_type LowCardinality(String),
		environment LowCardinality(String),
		timestamp Int64
	) ENGINE = MergeTree
	ORDER BY (campaign_id, timestamp)
	PARTITION BY toYYYYMM(toDateTime(timestamp))
	SETTINGS index_granularity = 8192
	`,
	}

	for _, query := range queries {
		if err := r.client.Conn().Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	r.log.Info("ClickHouse schema initialized successfully")
	return nil
}

// IngestEvents inserts a batch of event rows.
func (r *Repository) IngestEvents(ctx context.Context, records []*domain.EventRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	batch, err := r.client.Conn().PrepareBatch(ctx, "INSERT INTO events")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare events batch: %w", err)
	}

	for _, rec := range records {
		metadata := rec.Metadata
		if metadata == "" {
			metadata = "{}"
		}
		err := batch.Append(
			rec.EventID,
			rec.EventType,
			rec.EventPlacement,
			rec.EventValue,
			rec.EventCurrency,
			rec.SessionID,
			int32(rec.SessionSequence),
			rec.UserID,
			rec.CampaignID,
			rec.WorkspaceID,
			rec.ProjectID,
			rec.LandingPageID,
			rec.ABTestID,
			rec.ABTestVariantID,
			rec.ClickID,
			rec.Country,
			rec.DeviceType,
			rec.Browser,
			rec.OperatingSystem,
			rec.Referrer,
			rec.UserAgent,
			rec.Environment,
			rec.Timestamp,
			metadata,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to append event to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("failed to send events batch: %w", err)
	}
	return len(records), nil
}

// IngestSessions inserts a batch of session rows.
func (r *Repository) IngestSessions(ctx context.Context, records []*domain.SessionRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	batch, err := r.client.Conn().PrepareBatch(ctx, "INSERT INTO sessions")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare sessions batch: %w", err)
	}

	for _, rec := range records {
		err := batch.Append(
			rec.SessionID,
			rec.UserID,
			rec.AttributionID,
			rec.CampaignID,
			rec.WorkspaceID,
			rec.ProjectID,
			rec.LandingPageID,
			rec.ABTestID,
			rec.ABTestVariantID,
			int32(rec.EventCount),
			rec.CreatedAt,
			rec.LastEventAt,
			rec.Environment,
			rec.CampaignEnvironment,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to append session to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("failed to send sessions batch: %w", err)
	}
	return len(records), nil
}

// IngestTraffic inserts a batch of traffic rows.
func (r *Repository) IngestTraffic(ctx context.Context, records []*domain.TrafficRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	batch, err := r.client.Conn().PrepareBatch(ctx, "INSERT INTO traffic")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare traffic batch: %w", err)
	}

	for _, rec := range records {
		err := batch.Append(
			rec.RequestID,
			rec.CampaignID,
			rec.Hostname,
			rec.Slug,
			rec.DecisionType,
			rec.SegmentID,
			rec.ABTestID,
			rec.ABTestVariantID,
			rec.LandingPageID,
			rec.Country,
			rec.DeviceType,
			rec.Environment,
			rec.Timestamp,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to append traffic row to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("failed to send traffic batch: %w", err)
	}
	return len(records), nil
}

// Ping checks if the connection is alive.
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Conn().Ping(ctx)
}

// Close closes the connection.
func (r *Repository) Close() error {
	return r.client.Close()
}
