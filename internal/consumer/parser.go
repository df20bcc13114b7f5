package consumer

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/reachforge/campaign-edge-service/internal/observability"
)

// ParserConfig bounds the malformed-message redelivery budget.
type ParserConfig struct {
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	MaxRetries     int
}

// ParserStage decodes raw messages into typed records. Well-formed messages
// are acked immediately: from here on, durability rests on the sink batch
// call, and a failed batch is counted as dropped rather than redelivered.
// Malformed messages are delayed for redelivery with exponential backoff and
// dropped after MaxRetries attempts.
type ParserStage struct {
	config ParserConfig
	log    *zap.Logger
}

func NewParserStage(config ParserConfig, log *zap.Logger) *ParserStage {
	return &ParserStage{config: config, log: log}
}

// Start parses until the input channel closes.
func (p *ParserStage) Start(ctx context.Context, in <-chan shardMessage, out chan<- *Record) {
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			p.log.Info("Parser stage shutting down")
			return
		case sm, ok := <-in:
			if !ok {
				p.log.Info("Parser stage input channel closed")
				return
			}

			rec := p.parseMessage(ctx, sm)
			if rec == nil {
				continue
			}

			select {
			case <-ctx.Done():
				return
			case out <- rec:
			}
		}
	}
}

func (p *ParserStage) parseMessage(ctx context.Context, sm shardMessage) *Record {
	rec, err := DecodeRecord([]byte(aws.ToString(sm.msg.Body)))
	if err != nil {
		p.handleMalformed(ctx, sm, err)
		return nil
	}

	if err := p.deleteMessage(ctx, sm); err != nil {
		// The record still flows downstream; the queue redelivers and the
		// sink may see a duplicate, which it tolerates.
		p.log.Error("Failed to ack message",
			zap.String("message_id", aws.ToString(sm.msg.MessageId)),
			zap.Error(err))
	}
	return rec
}

// handleMalformed delays redelivery with min(2^retries * base, cap) backoff
// and drops the message after the retry budget is spent.
func (p *ParserStage) handleMalformed(ctx context.Context, sm shardMessage, parseErr error) {
	retries := receiveRetries(sm.msg)

	if retries >= p.config.MaxRetries {
		observability.MalformedDroppedTotal.Inc()
		p.log.Error("Dropping malformed message after retries",
			zap.String("message_id", aws.ToString(sm.msg.MessageId)),
			zap.Int("retries", retries),
			zap.Error(parseErr))
		if err := p.deleteMessage(ctx, sm); err != nil {
			p.log.Error("Failed to delete malformed message",
				zap.String("message_id", aws.ToString(sm.msg.MessageId)),
				zap.Error(err))
		}
		return
	}

	delay := backoffDelay(retries, p.config.RetryBaseDelay, p.config.RetryMaxDelay)
	p.log.Warn("Delaying malformed message for redelivery",
		zap.String("message_id", aws.ToString(sm.msg.MessageId)),
		zap.Int("retries", retries),
		zap.Duration("delay", delay),
		zap.Error(parseErr))

	// SQS visibility is whole seconds; rounding down would make the first
	// sub-second backoff an immediate redelivery.
	timeoutSecs := int32((delay + time.Second - 1) / time.Second)
	if timeoutSecs < 1 {
		timeoutSecs = 1
	}

	_, err := sm.shard.ChangeMessageVisibility(ctx, &awssqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(sm.shard.QueueURL()),
		ReceiptHandle:     sm.msg.ReceiptHandle,
		VisibilityTimeout: timeoutSecs,
	})
	if err != nil {
		p.log.Error("Failed to change message visibility",
			zap.String("message_id", aws.ToString(sm.msg.MessageId)),
			zap.Error(err))
	}
}

func (p *ParserStage) deleteMessage(ctx context.Context, sm shardMessage) error {
	_, err := sm.shard.DeleteMessage(ctx, &awssqs.DeleteMessageInput{
		QueueUrl:      aws.String(sm.shard.QueueURL()),
		ReceiptHandle: sm.msg.ReceiptHandle,
	})
	return err
}

// receiveRetries counts prior deliveries from the SQS receive-count
// attribute. The first delivery has count 1 and zero retries.
func receiveRetries(msg types.Message) int {
	raw, ok := msg.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)]
	if !ok {
		return 0
	}
	count, err := strconv.Atoi(raw)
	if err != nil || count < 1 {
		return 0
	}
	return count - 1
}

// backoffDelay computes min(2^retries * base, ceiling).
func backoffDelay(retries int, base, ceiling time.Duration) time.Duration {
	delay := time.Duration(math.Pow(2, float64(retries))) * base
	if delay > ceiling || delay <= 0 {
		return ceiling
	}
	return delay
}
