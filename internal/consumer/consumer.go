package consumer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/reachforge/campaign-edge-service/internal/config"
	"github.com/reachforge/campaign-edge-service/internal/queue"
	"github.com/reachforge/campaign-edge-service/internal/sink"
)

// Consumer wires one receiver per queue shard into a shared parser and
// forwarder pipeline.
type Consumer struct {
	receivers []*Receiver
	parser    *ParserStage
	forwarder *Forwarder
	log       *zap.Logger
}

// NewConsumer builds the pipeline from configuration.
func NewConsumer(cfg *config.Config, shards []queue.Consumer, ingestor sink.Ingestor, log *zap.Logger) *Consumer {
	receivers := make([]*Receiver, 0, len(shards))
	for _, shard := range shards {
		receivers = append(receivers, NewReceiver(shard, ReceiverConfig{
			MaxMessages:     10,
			WaitTimeSeconds: 20,
		}, log))
	}

	retryBase := time.Duration(cfg.ConsumerRetryBaseDelayMs) * time.Millisecond
	retryMax := time.Duration(cfg.ConsumerRetryMaxDelaySec) * time.Second

	parser := NewParserStage(ParserConfig{
		RetryBaseDelay: retryBase,
		RetryMaxDelay:  retryMax,
		MaxRetries:     cfg.ConsumerMaxRetries,
	}, log)

	forwarder := NewForwarder(ingestor, ForwarderConfig{
		MaxBatchSize:   cfg.ConsumerBatchSizeMax,
		FlushTimeout:   time.Duration(cfg.ConsumerBatchTimeoutSec) * time.Second,
		RetryBaseDelay: retryBase,
		RetryMaxDelay:  retryMax,
		MaxRetries:     cfg.ConsumerMaxRetries,
	}, log)

	return &Consumer{
		receivers: receivers,
		parser:    parser,
		forwarder: forwarder,
		log:       log,
	}
}

// Start runs the pipeline until the context is cancelled and all stages
// drain.
func (c *Consumer) Start(ctx context.Context) error {
	messageChan := make(chan shardMessage, 100)
	recordChan := make(chan *Record, 100)

	var wg sync.WaitGroup

	var receiverWg sync.WaitGroup
	for _, r := range c.receivers {
		receiverWg.Add(1)
		go func(r *Receiver) {
			defer receiverWg.Done()
			r.Start(ctx, messageChan)
		}(r)
	}

	// The message channel closes once every shard receiver exits, letting
	// the parser and forwarder drain in order.
	wg.Add(1)
	go func() {
		defer wg.Done()
		receiverWg.Wait()
		close(messageChan)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.parser.Start(ctx, messageChan, recordChan)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.forwarder.Start(ctx, recordChan)
	}()

	wg.Wait()
	return nil
}
