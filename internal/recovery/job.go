// Package recovery implements the scheduled sweep that replays messages
// parked in the fallback store back onto the queue shards.
package recovery

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/reachforge/campaign-edge-service/internal/domain"
	"github.com/reachforge/campaign-edge-service/internal/observability"
	"github.com/reachforge/campaign-edge-service/internal/store"
)

// Resender is the no-fallback delivery surface of the queue gateway. The
// sweep must not re-park what it just read, so it never uses Enqueue.
type Resender interface {
	TrySend(ctx context.Context, key string, msg *domain.QueueMessage) error
}

// FallbackLister is the fallback store surface the sweep reads and prunes.
type FallbackLister interface {
	List(ctx context.Context, limit int) ([]store.FallbackEntry, error)
	Delete(ctx context.Context, key string) error
}

// Job sweeps the fallback store on an interval. Safe to run concurrently
// with itself: a duplicate sweep only causes redundant re-enqueue attempts,
// which downstream tolerates via at-least-once semantics.
type Job struct {
	gateway  Resender
	fallback FallbackLister
	limit    int
	log      *zap.Logger
}

func NewJob(gateway Resender, fallback FallbackLister, limit int, log *zap.Logger) *Job {
	return &Job{
		gateway:  gateway,
		fallback: fallback,
		limit:    limit,
		log:      log,
	}
}

// Run sweeps on the given interval until the context is cancelled. One
// sweep runs immediately at start.
func (j *Job) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		processed, failed := j.ProcessFallback(ctx)
		if processed > 0 || failed > 0 {
			j.log.Info("Fallback sweep finished",
				zap.Int("processed", processed),
				zap.Int("failed", failed))
		}

		select {
		case <-ctx.Done():
			j.log.Info("Recovery job shutting down")
			return
		case <-ticker.C:
		}
	}
}

// ProcessFallback replays one bounded page of parked messages. A key is
// deleted only after its message is back on a shard; failures stay parked
// for the next sweep.
func (j *Job) ProcessFallback(ctx context.Context) (processed, failed int) {
	entries, err := j.fallback.List(ctx, j.limit)
	if err != nil {
		j.log.Error("Failed to list fallback entries", zap.Error(err))
		return 0, 0
	}

	for _, entry := range entries {
		var msg domain.QueueMessage
		if err := json.Unmarshal(entry.Payload, &msg); err != nil {
			// An unreadable payload can never be replayed; drop it.
			j.log.Error("Deleting undecodable fallback entry",
				zap.String("key", entry.Key),
				zap.Error(err))
			if err := j.fallback.Delete(ctx, entry.Key); err != nil {
				j.log.Error("Failed to delete fallback entry",
					zap.String("key", entry.Key),
					zap.Error(err))
			}
			failed++
			continue
		}

		if err := j.gateway.TrySend(ctx, entry.SessionID, &msg); err != nil {
			j.log.Warn("Fallback replay failed, leaving entry parked",
				zap.String("key", entry.Key),
				zap.Error(err))
			failed++
			continue
		}

		if err := j.fallback.Delete(ctx, entry.Key); err != nil {
			// The message is back on a shard; a lingering key only causes
			// a duplicate replay next sweep.
			j.log.Error("Failed to delete replayed fallback entry",
				zap.String("key", entry.Key),
				zap.Error(err))
		}
		observability.FallbackRecoveredTotal.Inc()
		processed++
	}
	return processed, failed
}
