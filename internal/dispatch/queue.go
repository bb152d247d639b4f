package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mmynk/welfareguard/internal/metrics"
)

// ErrMalformedTask is returned by Dequeue for an entry that could not be
// decoded. The entry is dropped from the processing list.
var ErrMalformedTask = errors.New("malformed task")

// Queue is the broker contract the worker pool depends on.
type Queue interface {
	Enqueue(ctx context.Context, t Task) error
	// Dequeue blocks for up to timeout. It returns (nil, nil) when no task arrived.
	Dequeue(ctx context.Context, timeout time.Duration) (*Task, error)
	Ack(ctx context.Context, t *Task) error
	Retry(ctx context.Context, t *Task) error
}

// RedisQueue is a reliable list queue. Dequeued tasks are moved atomically
// onto a processing list and stay there until acknowledged, so a crashed
// worker's tasks survive until Recover runs.
type RedisQueue struct {
	client     *redis.Client
	key        string
	processing string
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// NewRedisQueue creates a queue on the list named name.
func NewRedisQueue(client *redis.Client, name string) *RedisQueue {
	return &RedisQueue{
		client:     client,
		key:        name,
		processing: name + ":processing",
	}
}

// Enqueue pushes a task onto the head of the queue.
func (q *RedisQueue) Enqueue(ctx context.Context, t Task) error {
	payload, err := t.encode()
	if err != nil {
		return err
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue task %s: %w", t.ID, err)
	}
	return nil
}

// Dequeue moves the oldest task onto the processing list and returns it.
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Task, error) {
	payload, err := q.client.BLMove(ctx, q.key, q.processing, "RIGHT", "LEFT", timeout).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue: %w", err)
	}

	t, err := decodeTask(payload)
	if err != nil {
		if rmErr := q.client.LRem(ctx, q.processing, 1, payload).Err(); rmErr != nil {
			slog.Warn("Failed to drop malformed task", "error", rmErr)
		}
		return nil, err
	}
	return t, nil
}

// Ack removes a finished task from the processing list.
func (q *RedisQueue) Ack(ctx context.Context, t *Task) error {
	if err := q.client.LRem(ctx, q.processing, 1, t.payload).Err(); err != nil {
		return fmt.Errorf("failed to ack task %s: %w", t.ID, err)
	}
	return nil
}

// Retry re-queues a task with its attempt counter incremented. The removal
// from the processing list and the push happen in one transaction.
func (q *RedisQueue) Retry(ctx context.Context, t *Task) error {
	next := *t
	next.Attempt++
	payload, err := next.encode()
	if err != nil {
		return err
	}

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, q.processing, 1, t.payload)
		pipe.LPush(ctx, q.key, payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to retry task %s: %w", t.ID, err)
	}
	return nil
}

// Recover moves every entry left on the processing list back onto the queue
// and returns how many were moved. Call it before any worker starts.
func (q *RedisQueue) Recover(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := q.client.LMove(ctx, q.processing, q.key, "LEFT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("failed to recover processing tasks: %w", err)
		}
		moved++
	}
}

// Depth returns the number of queued and in-flight tasks.
func (q *RedisQueue) Depth(ctx context.Context) (queued, inFlight int64, err error) {
	pipe := q.client.Pipeline()
	queuedCmd := pipe.LLen(ctx, q.key)
	inFlightCmd := pipe.LLen(ctx, q.processing)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to read queue depth: %w", err)
	}
	return queuedCmd.Val(), inFlightCmd.Val(), nil
}

// MonitorDepth publishes the queue depth every interval until ctx is
// cancelled. Read failures are logged and retried on the next tick.
func (q *RedisQueue) MonitorDepth(ctx context.Context, m *metrics.Metrics, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			queued, inFlight, err := q.Depth(ctx)
			if err != nil {
				if ctx.Err() == nil {
					slog.Warn("Failed to read queue depth", "error", err)
				}
				continue
			}
			m.SetQueueDepth(queued, inFlight)
		}
	}
}

// Ping checks the broker connection.
func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}
