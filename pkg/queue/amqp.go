package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPQueue publishes to and consumes from a durable RabbitMQ queue on the default exchange.
type AMQPQueue struct {
	mu          sync.Mutex
	conn        *amqp.Connection
	ch          *amqp.Channel
	name        string
	concurrency int
	logger      *slog.Logger
}

func sanitizeURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	parsed, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
		return "", fmt.Errorf("invalid AMQP scheme: %q", parsed.Scheme)
	}
	return clean, nil
}

// NewAMQPQueue dials RabbitMQ and declares the queue.
func NewAMQPQueue(rawURL, name string, concurrency int, logger *slog.Logger) (*AMQPQueue, error) {
	cleanURL, err := sanitizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	if concurrency < 1 {
		concurrency = 1
	}

	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	q := &AMQPQueue{conn: conn, name: name, concurrency: concurrency, logger: logger}
	if err := q.openChannel(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return q, nil
}

func (q *AMQPQueue) openChannel() error {
	ch, err := q.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(q.name, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("declare queue %s: %w", q.name, err)
	}
	q.ch = ch
	return nil
}

// Publish sends msg as a persistent JSON message. A closed channel is reopened once.
func (q *AMQPQueue) Publish(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.conn == nil || q.conn.IsClosed() {
		return ErrClosed
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    msg.EnqueuedAt,
		Type:         msg.Type,
		Body:         body,
	}

	err = q.ch.PublishWithContext(ctx, "", q.name, false, false, publishing)
	if err == nil {
		return nil
	}

	q.logger.Warn("amqp publish failed; reopening channel", slog.String("queue", q.name), slog.Any("error", err))
	if chErr := q.openChannel(); chErr != nil {
		return errors.Join(err, chErr)
	}
	return q.ch.PublishWithContext(ctx, "", q.name, false, false, publishing)
}

// Consume registers a consumer with prefetch equal to the concurrency and runs
// that many workers. Failed messages are requeued until MaxAttempts.
func (q *AMQPQueue) Consume(ctx context.Context, handler HandlerFunc) error {
	q.mu.Lock()
	ch, err := q.conn.Channel()
	q.mu.Unlock()
	if err != nil {
		return fmt.Errorf("open consumer channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(q.concurrency, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, q.name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", q.name, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < q.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range deliveries {
				q.handle(ctx, d, handler)
			}
		}()
	}
	wg.Wait()

	if ctx.Err() != nil {
		return nil
	}
	return errors.New("amqp delivery channel closed")
}

func (q *AMQPQueue) handle(ctx context.Context, d amqp.Delivery, handler HandlerFunc) {
	var msg Message
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		q.logger.Error("dropping malformed message", slog.String("queue", q.name), slog.Any("error", err))
		_ = d.Nack(false, false)
		return
	}

	err := handler(ctx, msg)
	if err == nil {
		_ = d.Ack(false)
		return
	}

	msg.Attempts++
	q.logger.Warn("message handler failed",
		slog.String("type", msg.Type),
		slog.Int("attempts", msg.Attempts),
		slog.Any("error", err),
	)

	// Nack-requeue would not carry the attempt count, so republish instead.
	if msg.Attempts < MaxAttempts {
		if pubErr := q.Publish(context.WithoutCancel(ctx), msg); pubErr != nil {
			q.logger.Error("amqp requeue failed", slog.Any("error", pubErr))
			_ = d.Nack(false, true)
			return
		}
	}
	_ = d.Ack(false)
}

// Close gracefully closes the channel and connection.
func (q *AMQPQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	var errs []error
	if q.ch != nil {
		errs = append(errs, q.ch.Close())
	}
	if q.conn != nil && !q.conn.IsClosed() {
		errs = append(errs, q.conn.Close())
	}
	return errors.Join(errs...)
}
