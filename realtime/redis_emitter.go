package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gigconnectportfolio/gigconnect-order-service/models"
	"github.com/redis/go-redis/v9"
)

// EventOrderNotification is the event name clients listen for.
const EventOrderNotification = "order notification"

const channelPrefix = "order:notifications:"

// Channel returns the pub/sub channel carrying live notifications for userTo.
func Channel(userTo string) string {
	return channelPrefix + userTo
}

// Emitter pushes a stored notification to connected clients.
type Emitter interface {
	Emit(ctx context.Context, payload models.LiveNotification) error
}

// Subscriber yields live payloads for one recipient until closed.
type Subscriber interface {
	Subscribe(ctx context.Context, userTo string) (<-chan []byte, func() error, error)
}

type redisPubSub interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// RedisEmitter fans notifications out over Redis pub/sub so every replica's
// stream handlers receive them.
type RedisEmitter struct {
	client redisPubSub
}

func NewRedisEmitter(client redisPubSub) *RedisEmitter {
	return &RedisEmitter{client: client}
}

func (e *RedisEmitter) Emit(ctx context.Context, payload models.LiveNotification) error {
	if payload.Notification == nil {
		return fmt.Errorf("live notification without notification")
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal live notification: %w", err)
	}
	if err := e.client.Publish(ctx, Channel(payload.Notification.UserTo), b).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (e *RedisEmitter) Subscribe(ctx context.Context, userTo string) (<-chan []byte, func() error, error) {
	pubsub := e.client.Subscribe(ctx, Channel(userTo))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			select {
			case out <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, pubsub.Close, nil
}

// NoopEmitter is used when Redis is not configured.
type NoopEmitter struct{}

func (NoopEmitter) Emit(context.Context, models.LiveNotification) error { return nil }
