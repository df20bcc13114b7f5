package consumer

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/reachforge/campaign-edge-service/internal/domain"
	"github.com/reachforge/campaign-edge-service/internal/observability"
	"github.com/reachforge/campaign-edge-service/internal/sink"
)

// ForwarderConfig configures batching and the sink retry budget.
type ForwarderConfig struct {
	MaxBatchSize   int
	FlushTimeout   time.Duration
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	MaxRetries     int
}

// failureAlertWindow is the number of batch outcomes per failure-rate
// check; failureAlertRate is the fraction of drops that trips the alert.
const (
	failureAlertWindow = 50
	failureAlertRate   = 0.10
)

// Forwarder batches records and delivers them to the analytics sink, one
// sub-batch per record type. The records it holds were already acked on the
// queue, so an exhausted retry budget means the batch is dropped and
// counted, not redelivered.
type Forwarder struct {
	ingestor sink.Ingestor
	config   ForwarderConfig
	log      *zap.Logger

	// Outcome tallies for the rolling failure-rate alert. Only touched
	// from the Start goroutine.
	windowBatches int
	windowDropped int
}

func NewForwarder(ingestor sink.Ingestor, config ForwarderConfig, log *zap.Logger) *Forwarder {
	return &Forwarder{
		ingestor: ingestor,
		config:   config,
		log:      log,
	}
}

// Start batches records until the input channel closes, flushing on size or
// timeout. The final partial batch is flushed on shutdown.
func (f *Forwarder) Start(ctx context.Context, in <-chan *Record) {
	ticker := time.NewTicker(f.config.FlushTimeout)
	defer ticker.Stop()

	batch := make([]*Record, 0, f.config.MaxBatchSize)

	for {
		select {
		case <-ctx.Done():
			f.log.Info("Forwarder shutting down")
			f.flush(context.Background(), batch)
			return

		case rec, ok := <-in:
			if !ok {
				f.log.Info("Forwarder input channel closed")
				f.flush(ctx, batch)
				return
			}

			batch = append(batch, rec)

			if len(batch) >= f.config.MaxBatchSize {
				f.flush(ctx, batch)
				batch = make([]*Record, 0, f.config.MaxBatchSize)
				ticker.Reset(f.config.FlushTimeout)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				f.flush(ctx, batch)
				batch = make([]*Record, 0, f.config.MaxBatchSize)
			}
		}
	}
}

// flush partitions a batch by record type and delivers each partition.
func (f *Forwarder) flush(ctx context.Context, batch []*Record) {
	if len(batch) == 0 {
		return
	}

	var (
		events   []*domain.EventRecord
		sessions []*domain.SessionRecord
		traffic  []*domain.TrafficRecord
	)
	for _, rec := range batch {
		switch rec.Type {
		case domain.RecordEvent:
			events = append(events, rec.Event)
		case domain.RecordSession:
			sessions = append(sessions, rec.Session)
		case domain.RecordTraffic:
			traffic = append(traffic, rec.Traffic)
		}
	}

	f.deliver(ctx, string(domain.RecordEvent), len(events), func(ctx context.Context) (int, error) {
		return f.ingestor.IngestEvents(ctx, events)
	})
	f.deliver(ctx, string(domain.RecordSession), len(sessions), func(ctx context.Context) (int, error) {
		return f.ingestor.IngestSessions(ctx, sessions)
	})
	f.deliver(ctx, string(domain.RecordTraffic), len(traffic), func(ctx context.Context) (int, error) {
		return f.ingestor.IngestTraffic(ctx, traffic)
	})
}

// deliver retries one typed sub-batch with exponential backoff. A 429 waits
// out the server's Retry-After instead of the computed delay and does not
// consume a retry attempt beyond the normal budget.
func (f *Forwarder) deliver(ctx context.Context, recordType string, count int, send func(context.Context) (int, error)) {
	if count == 0 {
		return
	}

	var lastErr error
	for attempt := 0; attempt <= f.config.MaxRetries; attempt++ {
		accepted, err := send(ctx)
		if err == nil {
			observability.RecordsIngestedTotal.WithLabelValues(recordType).Add(float64(accepted))
			if accepted < count {
				f.log.Warn("Sink accepted partial batch",
					zap.String("record_type", recordType),
					zap.Int("accepted", accepted),
					zap.Int("sent", count))
			}
			f.noteOutcome(false)
			return
		}
		lastErr = err

		delay := backoffDelay(attempt, f.config.RetryBaseDelay, f.config.RetryMaxDelay)

		var rlErr *sink.RateLimitError
		if errors.As(err, &rlErr) {
			observability.RateLimitHitsTotal.Inc()
			delay = rlErr.RetryAfter
			f.log.Warn("Sink rate limited",
				zap.String("record_type", recordType),
				zap.Duration("retry_after", rlErr.RetryAfter),
				zap.Int("limit", rlErr.Limit),
				zap.Int("remaining", rlErr.Remaining))
		} else {
			f.log.Warn("Sink batch failed, retrying",
				zap.String("record_type", recordType),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err))
		}

		select {
		case <-ctx.Done():
			observability.BatchesDroppedTotal.Inc()
			f.log.Error("Dropping batch on shutdown",
				zap.String("record_type", recordType),
				zap.Int("record_count", count))
			return
		case <-time.After(delay):
		}
	}

	// These records were acked on the queue and are now gone for good.
	observability.BatchesDroppedTotal.Inc()
	f.log.Error("Dropping batch after exhausting sink retries",
		zap.String("record_type", recordType),
		zap.Int("record_count", count),
		zap.Error(lastErr))
	f.noteOutcome(true)
}

// noteOutcome feeds the rolling failure-rate check. Sustained drops above
// the threshold indicate a sink outage rather than transient flakiness.
func (f *Forwarder) noteOutcome(dropped bool) {
	f.windowBatches++
	if dropped {
		f.windowDropped++
	}
	if f.windowBatches < failureAlertWindow {
		return
	}

	rate := float64(f.windowDropped) / float64(f.windowBatches)
	if rate > failureAlertRate {
		f.log.Error("Sink batch failure rate above threshold",
			zap.Int("batches", f.windowBatches),
			zap.Int("dropped", f.windowDropped),
			zap.Float64("failure_rate", rate))
	}
	f.windowBatches = 0
	f.windowDropped = 0
}
