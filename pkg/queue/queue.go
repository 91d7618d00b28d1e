// Package queue moves background task messages from the API to the worker.
// Two drivers share the same Message envelope: a redis list and a RabbitMQ queue.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mo-amir99/course-platform-go/pkg/config"
)

// ErrClosed is returned when publishing on a closed queue.
var ErrClosed = errors.New("queue closed")

// Message is the envelope stored on the wire.
type Message struct {
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	Attempts   int             `json:"attempts"`
}

// NewMessage marshals payload into a Message of the given type.
func NewMessage(taskType string, payload interface{}) (Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal %s payload: %w", taskType, err)
	}
	return Message{Type: taskType, Payload: body, EnqueuedAt: time.Now().UTC()}, nil
}

// Decode unmarshals the payload into dest.
func (m Message) Decode(dest interface{}) error {
	if err := json.Unmarshal(m.Payload, dest); err != nil {
		return fmt.Errorf("decode %s payload: %w", m.Type, err)
	}
	return nil
}

// HandlerFunc processes one message. A returned error makes the driver retry
// the message until MaxAttempts, after which it is dead-lettered.
type HandlerFunc func(ctx context.Context, msg Message) error

// Publisher enqueues messages.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Consumer delivers messages to a handler until ctx is cancelled.
type Consumer interface {
	Consume(ctx context.Context, handler HandlerFunc) error
	Close() error
}

// Queue is both ends of a driver.
type Queue interface {
	Publisher
	Consumer
}

// MaxAttempts bounds redelivery of a failing message.
const MaxAttempts = 3

// New builds the driver selected by cfg.Queue.Driver. rdb is only used by the redis driver.
func New(cfg config.QueueConfig, rdb *redis.Client, logger *slog.Logger) (Queue, error) {
	switch cfg.Driver {
	case "redis":
		if rdb == nil {
			return nil, errors.New("redis queue requires a redis client")
		}
		return NewRedisQueue(rdb, cfg.NotificationQueue, cfg.Concurrency, logger), nil
	case "amqp":
		return NewAMQPQueue(cfg.AMQPURL, cfg.NotificationQueue, cfg.Concurrency, logger)
	default:
		return nil, fmt.Errorf("unsupported queue driver %q", cfg.Driver)
	}
}
