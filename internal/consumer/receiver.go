package consumer

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/reachforge/campaign-edge-service/internal/queue"
)

// ReceiverConfig configures one shard receiver.
type ReceiverConfig struct {
	MaxMessages     int32
	WaitTimeSeconds int32
}

// shardMessage pairs a raw SQS message with the shard it came from so the
// parser can ack or delay it on the right queue.
type shardMessage struct {
	msg   types.Message
	shard queue.Consumer
}

// Receiver long-polls one queue shard and feeds raw messages downstream.
type Receiver struct {
	shard  queue.Consumer
	config ReceiverConfig
	log    *zap.Logger
}

func NewReceiver(shard queue.Consumer, config ReceiverConfig, log *zap.Logger) *Receiver {
	return &Receiver{
		shard:  shard,
		config: config,
		log:    log,
	}
}

// Start receives until the context is cancelled. The output channel is
// shared across shard receivers, so the caller closes it, not this stage.
func (r *Receiver) Start(ctx context.Context, out chan<- shardMessage) {
	for {
		select {
		case <-ctx.Done():
			r.log.Info("Receiver shutting down",
				zap.String("queue_url", r.shard.QueueURL()))
			return
		default:
			result, err := r.shard.ReceiveMessages(ctx, &awssqs.ReceiveMessageInput{
				QueueUrl:            aws.String(r.shard.QueueURL()),
				MaxNumberOfMessages: r.config.MaxMessages,
				WaitTimeSeconds:     r.config.WaitTimeSeconds,
				// ApproximateReceiveCount drives the malformed-message
				// redelivery budget.
				MessageSystemAttributeNames: []types.MessageSystemAttributeName{
					types.MessageSystemAttributeNameApproximateReceiveCount,
				},
			})

			if err != nil {
				r.log.Error("Error receiving messages from SQS",
					zap.String("queue_url", r.shard.QueueURL()),
					zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}

			if len(result.Messages) == 0 {
				continue
			}

			for _, msg := range result.Messages {
				select {
				case <-ctx.Done():
					r.log.Info("Receiver shutting down while sending messages")
					return
				case out <- shardMessage{msg: msg, shard: r.shard}:
				}
			}
		}
	}
}
