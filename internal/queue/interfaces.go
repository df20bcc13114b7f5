package queue

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// Sender delivers a raw message body to a specific queue shard.
type Sender interface {
	Send(ctx context.Context, queueURL string, body []byte) error
}

// Consumer is the receive-side surface one shard drain loop needs.
// ChangeMessageVisibility implements redelivery backoff for messages the
// parser refuses to ack.
type Consumer interface {
	ReceiveMessages(ctx context.Context, input *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, input *sqs.DeleteMessageInput) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, input *sqs.ChangeMessageVisibilityInput) (*sqs.ChangeMessageVisibilityOutput, error)
	QueueURL() string
}
