package events

import (
	"context"
	"errors"
	"fmt"

	aws_pkg "github.com/gigconnectportfolio/gigconnect-order-service/pkg/aws"
	"github.com/segmentio/kafka-go"
)

var ErrUnknownExchange = errors.New("no destination configured for exchange")

// Publisher delivers order events to other services. Delivery is best effort;
// callers log failures and move on.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, payload []byte, description string) error
	Close() error
}

// SNSPublisher maps each exchange to an SNS topic and carries the routing key
// as a message attribute so subscriptions can filter on it.
type SNSPublisher struct {
	client aws_pkg.SNSPublisher
	topics map[string]string
}

func NewSNSPublisher(client aws_pkg.SNSPublisher, topics map[string]string) *SNSPublisher {
	return &SNSPublisher{client: client, topics: topics}
}

func (p *SNSPublisher) Publish(ctx context.Context, exchange, routingKey string, payload []byte, description string) error {
	topicArn := p.topics[exchange]
	if topicArn == "" {
		return fmt.Errorf("%w: %s", ErrUnknownExchange, exchange)
	}
	attrs := map[string]string{
		"exchange":    exchange,
		"routing_key": routingKey,
	}
	if description != "" {
		attrs["description"] = description
	}
	return p.client.Publish(ctx, topicArn, payload, attrs)
}

func (p *SNSPublisher) Close() error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes each exchange to a topic of the same name, keyed by
// routing key.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}
}

func NewKafkaPublisherWithWriter(w messageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, exchange, routingKey string, payload []byte, description string) error {
	msg := kafka.Message{
		Topic: exchange,
		Key:   []byte(routingKey),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "routing_key", Value: []byte(routingKey)},
			{Key: "description", Value: []byte(description)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write kafka message to %s: %w", exchange, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
