package aws

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
)

// SQSAPI is the subset of the SQS client the consumer needs.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Message is a received SQS message.
type Message struct {
	ID   string
	Body string
}

// MessageHandler processes one message. Returning an error leaves the message
// on the queue so it becomes visible again after the visibility timeout.
type MessageHandler func(ctx context.Context, msg Message) error

// SQSConsumer long-polls a queue and deletes each message only after its
// handler succeeded.
type SQSConsumer struct {
	client       SQSAPI
	queueURL     string
	logger       *zap.Logger
	waitSeconds  int32
	errorBackoff time.Duration
}

// NewSQSConsumer creates a new SQS consumer for the given queue URL.
func NewSQSConsumer(cfg sdkaws.Config, queueURL string, logger *zap.Logger) *SQSConsumer {
	return NewSQSConsumerWithClient(sqs.NewFromConfig(cfg), queueURL, logger)
}

// NewSQSConsumerWithClient builds a consumer around an existing client.
func NewSQSConsumerWithClient(client SQSAPI, queueURL string, logger *zap.Logger) *SQSConsumer {
	return &SQSConsumer{
		client:       client,
		queueURL:     queueURL,
		logger:       logger,
		waitSeconds:  20,
		errorBackoff: 5 * time.Second,
	}
}

// StartPolling processes messages one at a time until ctx is cancelled.
func (c *SQSConsumer) StartPolling(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Starting SQS polling", zap.String("queue", c.queueURL))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("SQS polling stopped", zap.String("queue", c.queueURL))
			return ctx.Err()
		default:
		}

		if _, err := c.PollOnce(ctx, handler); err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Error("Error polling SQS", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(c.errorBackoff):
			}
		}
	}
}

// PollOnce receives a single batch and returns how many messages were acknowledged.
func (c *SQSConsumer) PollOnce(ctx context.Context, handler MessageHandler) (int, error) {
	result, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            &c.queueURL,
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     c.waitSeconds,
		VisibilityTimeout:   30,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to receive messages: %w", err)
	}

	acked := 0
	for _, msg := range result.Messages {
		if msg.Body == nil || msg.ReceiptHandle == nil {
			continue
		}

		m := Message{Body: *msg.Body}
		if msg.MessageId != nil {
			m.ID = *msg.MessageId
		}

		if err := handler(ctx, m); err != nil {
			c.logger.Warn("Message handler failed, leaving message for redelivery",
				zap.String("message_id", m.ID),
				zap.Error(err),
			)
			continue
		}

		if _, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      &c.queueURL,
			ReceiptHandle: msg.ReceiptHandle,
		}); err != nil {
			c.logger.Error("Failed to delete message", zap.String("message_id", m.ID), zap.Error(err))
			continue
		}
		acked++
	}

	return acked, nil
}
