package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue is a reliable list queue: BLMOVE parks a message on a processing
// list until the handler returns, and exhausted messages land on a failed list.
type RedisQueue struct {
	rdb         *redis.Client
	name        string
	processing  string
	failed      string
	concurrency int
	pollTimeout time.Duration
	logger      *slog.Logger
}

// NewRedisQueue creates a queue backed by the list "queue:<name>".
func NewRedisQueue(rdb *redis.Client, name string, concurrency int, logger *slog.Logger) *RedisQueue {
	if concurrency < 1 {
		concurrency = 1
	}
	key := "queue:" + name
	return &RedisQueue{
		rdb:         rdb,
		name:        key,
		processing:  key + ":processing",
		failed:      key + ":failed",
		concurrency: concurrency,
		pollTimeout: 5 * time.Second,
		logger:      logger,
	}
}

// Publish pushes msg on the head of the list; consumers pop from the tail.
func (q *RedisQueue) Publish(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.name, body).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", q.name, err)
	}
	return nil
}

// Consume starts the configured number of workers and blocks until ctx is done.
// Messages left on the processing list by a crashed worker are requeued first.
func (q *RedisQueue) Consume(ctx context.Context, handler HandlerFunc) error {
	if err := q.recoverProcessing(ctx); err != nil {
		return err
	}

	var wg sync.WaitGroup
	for i := 0; i < q.concurrency; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			q.work(ctx, worker, handler)
		}(i)
	}
	wg.Wait()
	return nil
}

func (q *RedisQueue) work(ctx context.Context, worker int, handler HandlerFunc) {
	for {
		if ctx.Err() != nil {
			return
		}

		raw, err := q.rdb.BLMove(ctx, q.name, q.processing, "RIGHT", "LEFT", q.pollTimeout).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			q.logger.Error("redis queue receive failed", slog.Int("worker", worker), slog.Any("error", err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		q.handle(ctx, raw, handler)
	}
}

func (q *RedisQueue) handle(ctx context.Context, raw string, handler HandlerFunc) {
	// Acknowledge with a fresh context so a shutdown mid-handler does not strand the message.
	ack := func() {
		ackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := q.rdb.LRem(ackCtx, q.processing, 1, raw).Err(); err != nil {
			q.logger.Error("redis queue ack failed", slog.Any("error", err))
		}
	}

	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		q.logger.Error("dropping malformed message", slog.String("queue", q.name), slog.Any("error", err))
		q.deadLetter(ctx, raw)
		ack()
		return
	}

	err := handler(ctx, msg)
	if err == nil {
		ack()
		return
	}

	msg.Attempts++
	q.logger.Warn("message handler failed",
		slog.String("type", msg.Type),
		slog.Int("attempts", msg.Attempts),
		slog.Any("error", err),
	)

	retry, _ := json.Marshal(msg)
	if msg.Attempts >= MaxAttempts {
		q.deadLetter(ctx, string(retry))
	} else if err := q.rdb.LPush(context.WithoutCancel(ctx), q.name, retry).Err(); err != nil {
		q.logger.Error("redis queue requeue failed", slog.Any("error", err))
	}
	ack()
}

func (q *RedisQueue) deadLetter(ctx context.Context, raw string) {
	if err := q.rdb.LPush(context.WithoutCancel(ctx), q.failed, raw).Err(); err != nil {
		q.logger.Error("redis queue dead-letter failed", slog.Any("error", err))
	}
}

func (q *RedisQueue) recoverProcessing(ctx context.Context) error {
	moved := 0
	for {
		err := q.rdb.LMove(ctx, q.processing, q.name, "RIGHT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return fmt.Errorf("recover %s: %w", q.processing, err)
		}
		moved++
	}
	if moved > 0 {
		q.logger.Info("requeued in-flight messages", slog.String("queue", q.name), slog.Int("count", moved))
	}
	return nil
}

// Len reports the number of waiting messages.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.name).Result()
}

// Close is a no-op; the redis client is owned by the caller.
func (q *RedisQueue) Close() error {
	return nil
}
