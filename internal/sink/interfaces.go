// Package sink defines the analytics sink abstraction the batch consumer
// writes through. Two drivers exist: the Tinybird NDJSON HTTP API and a
// self-hosted ClickHouse cluster.
package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/reachforge/campaign-edge-service/internal/domain"
)

// Ingestor delivers record batches to the analytics sink. Each method
// returns how many records the sink accepted.
type Ingestor interface {
	IngestEvents(ctx context.Context, records []*domain.EventRecord) (int, error)
	IngestSessions(ctx context.Context, records []*domain.SessionRecord) (int, error)
	IngestTraffic(ctx context.Context, records []*domain.TrafficRecord) (int, error)

	// Ping checks sink reachability for health reporting.
	Ping(ctx context.Context) error

	// Close releases the driver's resources.
	Close() error
}

// RateLimitError reports a 429 from the sink together with the server's
// pacing hints so the consumer can delay instead of hammering.
type RateLimitError struct {
	RetryAfter time.Duration
	Limit      int
	Remaining  int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("sink rate limited, retry after %s", e.RetryAfter)
}
