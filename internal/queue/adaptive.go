// Package queue contains the adaptive shard gateway between the edge API
// and the SQS transport, plus the shard client interfaces.
package queue

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"sync"

	"go.uber.org/zap"

	"github.com/reachforge/campaign-edge-service/internal/domain"
	"github.com/reachforge/campaign-edge-service/internal/observability"
)

// enqueueChunkSize caps how many messages one fan-out goroutine handles so a
// large flush spreads across workers instead of serializing.
const enqueueChunkSize = 50

// FallbackParker is the durability escape hatch used when no shard accepts
// a message.
type FallbackParker interface {
	Park(ctx context.Context, sessionID string, payload []byte) error
}

// Gateway routes messages across queue shards. The shard is picked by
// hashing the session key, so one session's events stay ordered on one
// shard under normal operation. When the home shard fails, delivery fails
// over through the remaining shards; when every shard fails, the message is
// parked in the fallback store. Enqueue never returns an error: the tracking
// path must not surface transport trouble to browsers.
type Gateway struct {
	sender   Sender
	shards   []string
	fallback FallbackParker
	log      *zap.Logger
}

func NewGateway(sender Sender, shards []string, fallback FallbackParker, log *zap.Logger) *Gateway {
	return &Gateway{
		sender:   sender,
		shards:   shards,
		fallback: fallback,
		log:      log,
	}
}

// shardFor maps a session key onto its home shard.
func (g *Gateway) shardFor(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(g.shards)))
}

// TrySend attempts delivery starting at the key's home shard and failing
// over through every other shard. It returns the last shard error and never
// touches the fallback store; the recovery sweep uses it to avoid re-parking
// what it just read.
func (g *Gateway) TrySend(ctx context.Context, key string, msg *domain.QueueMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return g.trySendRaw(ctx, key, body)
}

func (g *Gateway) trySendRaw(ctx context.Context, key string, body []byte) error {
	home := g.shardFor(key)

	var lastErr error
	for i := 0; i < len(g.shards); i++ {
		shard := g.shards[(home+i)%len(g.shards)]
		if err := g.sender.Send(ctx, shard, body); err != nil {
			lastErr = err
			observability.QueueSendTotal.WithLabelValues("failover").Inc()
			g.log.Warn("Shard send failed, trying next",
				zap.String("queue_url", shard),
				zap.String("session_id", key),
				zap.Error(err))
			continue
		}
		observability.QueueSendTotal.WithLabelValues("sent").Inc()
		return nil
	}
	observability.QueueSendTotal.WithLabelValues("failed").Inc()
	return lastErr
}

// Enqueue delivers one message, parking it in the fallback store if every
// shard refuses. Total loss is possible only when Redis is also down, and
// that is logged as the last resort.
func (g *Gateway) Enqueue(ctx context.Context, key string, msg *domain.QueueMessage) {
	body, err := json.Marshal(msg)
	if err != nil {
		g.log.Error("Failed to marshal queue message",
			zap.String("session_id", key),
			zap.Error(err))
		return
	}

	if err := g.trySendRaw(ctx, key, body); err == nil {
		return
	}

	if err := g.fallback.Park(ctx, key, body); err != nil {
		g.log.Error("Message lost: all shards and fallback store failed",
			zap.String("session_id", key),
			zap.Error(err))
		return
	}
	observability.FallbackParkedTotal.Inc()
	g.log.Warn("Message parked in fallback store",
		zap.String("session_id", key))
}

// EnqueueBatch fans a flush out in chunks of up to 50 messages. It blocks
// until every message is either on a shard or parked, so the caller's
// flushed response is truthful about hand-off.
func (g *Gateway) EnqueueBatch(ctx context.Context, key string, msgs []*domain.QueueMessage) {
	if len(msgs) == 0 {
		return
	}

	var wg sync.WaitGroup
	for start := 0; start < len(msgs); start += enqueueChunkSize {
		end := start + enqueueChunkSize
		if end > len(msgs) {
			end = len(msgs)
		}
		wg.Add(1)
		go func(chunk []*domain.QueueMessage) {
			defer wg.Done()
			for _, msg := range chunk {
				g.Enqueue(ctx, key, msg)
			}
		}(msgs[start:end])
	}
	wg.Wait()
}
