package sqs

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
)

// Client wraps one SQS connection shared by every shard queue.
type Client struct {
	client *sqs.Client
	log    *zap.Logger
}

// NewClient creates the SQS client. A non-empty endpoint switches to local
// development mode against ElasticMQ with static dummy credentials.
func NewClient(ctx context.Context, region, endpoint string, log *zap.Logger) (*Client, error) {
	configOpts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}

	var clientOpts []func(*sqs.Options)

	if endpoint != "" {
		log.Info("Configuring SQS for local development",
			zap.String("endpoint", endpoint))
		configOpts = append(configOpts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("dummy", "dummy", "")))

		clientOpts = append(clientOpts, func(o *sqs.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}

	cfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Info("SQS client created", zap.String("region", region))

	return &Client{
		client: sqs.NewFromConfig(cfg, clientOpts...),
		log:    log,
	}, nil
}

// Send delivers one message body to the given shard queue.
func (c *Client) Send(ctx context.Context, queueURL string, body []byte) error {
	_, err := c.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("failed to send message to %s: %w", queueURL, err)
	}
	return nil
}

// Bind returns a per-shard consumer view over the shared client.
func (c *Client) Bind(queueURL string) *BoundQueue {
	return &BoundQueue{client: c.client, queueURL: queueURL}
}

// BoundQueue is the receive-side of one shard queue.
type BoundQueue struct {
	client   *sqs.Client
	queueURL string
}

// ReceiveMessages receives messages from the bound shard.
func (q *BoundQueue) ReceiveMessages(ctx context.Context, input *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error) {
	return q.client.ReceiveMessage(ctx, input)
}

// DeleteMessage acks a message on the bound shard.
func (q *BoundQueue) DeleteMessage(ctx context.Context, input *sqs.DeleteMessageInput) (*sqs.DeleteMessageOutput, error) {
	return q.client.DeleteMessage(ctx, input)
}

// ChangeMessageVisibility delays redelivery of an unacked message.
func (q *BoundQueue) ChangeMessageVisibility(ctx context.Context, input *sqs.ChangeMessageVisibilityInput) (*sqs.ChangeMessageVisibilityOutput, error) {
	return q.client.ChangeMessageVisibility(ctx, input)
}

// QueueURL returns the bound shard URL.
func (q *BoundQueue) QueueURL() string {
	return q.queueURL
}
