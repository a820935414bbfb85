// Package queue wraps the SQS work queue. Messages are delivered at least
// once; deleting a message is the acknowledgment that processing succeeded.
package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog/log"

	"agrosynchro-engine/internal/config"
)

// ErrNotConfigured is returned when the queue URL is missing; the consumer
// loop declines to start instead of crash-looping.
var ErrNotConfigured = errors.New("queue: SQS_QUEUE_URL not configured")

// Message is one unit of work plus the receipt handle needed to acknowledge it.
type Message struct {
	Body          []byte
	ReceiptHandle string
}

type Client struct {
	sqs      *sqs.Client
	queueURL string

	batchSize  int32
	waitTime   int32
	visibility int32
}

func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg.QueueURL == "" {
		return nil, ErrNotConfigured
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	log.Info().Str("queue_url", cfg.QueueURL).Str("region", cfg.AWSRegion).Msg("SQS client initialized")

	return &Client{
		sqs:        sqs.NewFromConfig(awsCfg),
		queueURL:   cfg.QueueURL,
		batchSize:  int32(cfg.QueueBatchSize),
		waitTime:   int32(cfg.QueueWaitTime.Seconds()),
		visibility: int32(cfg.QueueVisibilityTimeout.Seconds()),
	}, nil
}

// Receive long-polls for up to the configured batch of messages. An empty
// slice and nil error means the wait timed out with nothing queued.
func (c *Client) Receive(ctx context.Context) ([]Message, error) {
	out, err := c.sqs.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: c.batchSize,
		WaitTimeSeconds:     c.waitTime,
		VisibilityTimeout:   c.visibility,
	})
	if err != nil {
		return nil, fmt.Errorf("receive message: %w", err)
	}

	messages := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		messages = append(messages, Message{
			Body:          []byte(aws.ToString(m.Body)),
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
		})
	}
	return messages, nil
}

// Delete acknowledges a message so it is never redelivered.
func (c *Client) Delete(ctx context.Context, receiptHandle string) error {
	_, err := c.sqs.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// Send enqueues one payload; used by the gateway.
func (c *Client) Send(ctx context.Context, body []byte) error {
	_, err := c.sqs.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(c.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}
