package consumer

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gigconnectportfolio/gigconnect-order-service/models"
	aws_pkg "github.com/gigconnectportfolio/gigconnect-order-service/pkg/aws"
	"github.com/gigconnectportfolio/gigconnect-order-service/repository"
	"github.com/gigconnectportfolio/gigconnect-order-service/services"
	"go.uber.org/zap"
)

// ReviewApplier is the part of the order engine the consumer drives.
type ReviewApplier interface {
	ApplyReview(ctx context.Context, msg *models.ReviewMessage) (*models.Order, *services.ServiceError)
}

// Poller yields queue messages to a handler until ctx is done.
type Poller interface {
	StartPolling(ctx context.Context, handler aws_pkg.MessageHandler) error
}

// ReviewConsumer applies review messages from the review queue to orders.
// Malformed messages are acknowledged and dropped; store failures leave the
// message on the queue for redelivery.
type ReviewConsumer struct {
	poller  Poller
	orders  ReviewApplier
	ledger  repository.MessageLedger
	metrics *aws_pkg.MetricsClient
	logger  *zap.Logger
}

// NewReviewConsumer wires the consumer. ledger and metrics may be nil.
func NewReviewConsumer(poller Poller, orders ReviewApplier, ledger repository.MessageLedger, metrics *aws_pkg.MetricsClient, logger *zap.Logger) *ReviewConsumer {
	return &ReviewConsumer{
		poller:  poller,
		orders:  orders,
		ledger:  ledger,
		metrics: metrics,
		logger:  logger,
	}
}

// Start blocks until ctx is cancelled.
func (c *ReviewConsumer) Start(ctx context.Context) error {
	c.logger.Info("Review consumer started")
	err := c.poller.StartPolling(ctx, c.HandleMessage)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// snsEnvelope unwraps the SNS to SQS wrapper when the queue is subscribed to a topic.
type snsEnvelope struct {
	Message string `json:"Message"`
}

// HandleMessage returns an error only when the message should be redelivered.
func (c *ReviewConsumer) HandleMessage(ctx context.Context, msg aws_pkg.Message) error {
	if err := c.metrics.RecordCount(ctx, aws_pkg.MetricSQSMessages, map[string]string{"Queue": "reviews"}); err != nil {
		c.logger.Debug("Failed to record metric", zap.Error(err))
	}

	body := msg.Body
	var envelope snsEnvelope
	if err := json.Unmarshal([]byte(body), &envelope); err == nil && envelope.Message != "" {
		body = envelope.Message
	}

	var review models.ReviewMessage
	if err := json.Unmarshal([]byte(body), &review); err != nil {
		c.logger.Error("Dropping malformed review message", zap.String("message_id", msg.ID), zap.Error(err))
		return nil
	}
	if review.OrderID == "" || review.Type == "" {
		c.logger.Error("Dropping review message with missing fields",
			zap.String("message_id", msg.ID),
			zap.String("order_id", review.OrderID),
			zap.String("type", review.Type),
		)
		return nil
	}

	tracked := c.ledger != nil && msg.ID != ""
	if tracked {
		seen, err := c.ledger.IsProcessed(ctx, msg.ID)
		if err != nil {
			return err
		}
		if seen {
			c.logger.Info("Skipping duplicate review message", zap.String("message_id", msg.ID))
			return nil
		}
	}

	_, svcErr := c.orders.ApplyReview(ctx, &review)
	if svcErr == nil {
		c.logger.Info("Review applied",
			zap.String("order_id", review.OrderID),
			zap.String("type", review.Type),
			zap.Int("rating", review.Rating),
		)
		if tracked {
			// the review is stored; a missing record only costs a repeat apply
			if err := c.ledger.MarkProcessed(ctx, msg.ID); err != nil {
				c.logger.Warn("Failed to record processed message", zap.String("message_id", msg.ID), zap.Error(err))
			}
		}
		return nil
	}

	switch svcErr.Kind {
	case services.KindValidation, services.KindNotFound:
		c.logger.Warn("Dropping review message",
			zap.String("message_id", msg.ID),
			zap.String("order_id", review.OrderID),
			zap.String("reason", svcErr.Message),
		)
		return nil
	}

	c.logger.Error("Failed to apply review", zap.String("order_id", review.OrderID), zap.Error(svcErr))
	return svcErr
}
