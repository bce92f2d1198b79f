// Package broker implements the named priority queues described in §4.7:
// JSON task payloads, task priority 1-10 (default 5), task IDs equal to
// job IDs, at-least-once delivery with a bounded retry count. Queues are
// held in Redis sorted sets so BZPOPMAX-style dequeue naturally honors
// priority without the fixed-priority-level list fan-out the examples use.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pipeworks/taskmesh/internal/metrics"
)

const (
	// MinPriority and MaxPriority bound a task's priority (§4.7: "1-10").
	MinPriority = 1
	MaxPriority = 10
	// DefaultPriority is used when a caller does not specify one.
	DefaultPriority = 5
	// MaxRetries bounds broker-level re-execution of a failed task (§7:
	// "broker tasks retry per broker policy (<=3)").
	MaxRetries = 3

	queueKeyPrefix      = "queue:"
	processingKeyPrefix = "processing:"
)

// ErrEmpty is returned by Dequeue when no task is ready within the given
// wait window.
var ErrEmpty = errors.New("broker: queue empty")

// Task is one unit of work enqueued onto a named queue. Name mirrors the
// broker task names in §6, e.g. "email_embedding.task_processing".
type Task struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Priority int             `json:"priority"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
	EnqueuedAt time.Time     `json:"enqueued_at"`
}

// ClampPriority normalizes p into [MinPriority, MaxPriority]: zero becomes
// DefaultPriority and other out-of-range values clamp to the nearest bound.
func ClampPriority(p int) int {
	if p == 0 {
		return DefaultPriority
	}
	if p < MinPriority {
		return MinPriority
	}
	if p > MaxPriority {
		return MaxPriority
	}
	return p
}

// Broker enqueues and dequeues Tasks against a set of named Redis-backed
// priority queues.
type Broker struct {
	client *redis.Client
}

// New constructs a Broker over an existing Redis client.
func New(client *redis.Client) *Broker {
	return &Broker{client: client}
}

func queueKey(name string) string {
	return queueKeyPrefix + name
}

func processingKey(name string) string {
	return processingKeyPrefix + name
}

// score combines priority and insertion order so higher-priority tasks
// sort first while same-priority tasks stay FIFO: the integer part carries
// priority (ZPOPMAX favors the highest score) and the fractional part
// carries a normalized timestamp so earlier tasks of equal priority score
// higher than later ones.
func score(priority int, enqueuedAt time.Time) float64 {
	// Subtract a shrinking fraction of the unix millisecond clock so ties
	// break FIFO to the millisecond (older tasks score marginally higher).
	age := 1.0 - float64(enqueuedAt.UnixMilli())/1e13
	return float64(priority) + age
}

// Enqueue places a task JSON payload onto the named queue with the given
// priority and task ID (== job ID per §4.7).
func (b *Broker) Enqueue(ctx context.Context, queue, taskID string, priority int, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("broker: marshal payload: %w", err)
	}
	now := time.Now().UTC()
	task := Task{
		ID:         taskID,
		Name:       queue,
		Priority:   ClampPriority(priority),
		Payload:    raw,
		EnqueuedAt: now,
	}
	encoded, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("broker: marshal task: %w", err)
	}
	if err := b.client.ZAdd(ctx, queueKey(queue), redis.Z{
		Score:  score(task.Priority, now),
		Member: encoded,
	}).Err(); err != nil {
		return fmt.Errorf("broker: enqueue %s: %w", queue, err)
	}
	metrics.BrokerEnqueueTotal.WithLabelValues(queue).Inc()
	if depth, err := b.Len(ctx, queue); err == nil {
		metrics.BrokerQueueDepth.WithLabelValues(queue).Set(float64(depth))
	}
	return nil
}

// Dequeue pops the highest-priority ready task from queue, blocking up to
// timeout. It returns ErrEmpty if nothing is available in that window. The
// popped task is mirrored into a processing set so Ack/Nack can find it;
// callers that crash before Ack leave it there for out-of-band recovery.
func (b *Broker) Dequeue(ctx context.Context, queue string, timeout time.Duration) (*Task, error) {
	res, err := b.client.BZPopMax(ctx, timeout, queueKey(queue)).Result()
	if errors.Is(err, redis.Nil) {
		metrics.BrokerDequeueTotal.WithLabelValues(queue, "empty").Inc()
		return nil, ErrEmpty
	}
	if err != nil {
		metrics.BrokerDequeueTotal.WithLabelValues(queue, "error").Inc()
		return nil, fmt.Errorf("broker: dequeue %s: %w", queue, err)
	}
	member, ok := res.Member.(string)
	if !ok {
		metrics.BrokerDequeueTotal.WithLabelValues(queue, "error").Inc()
		return nil, fmt.Errorf("broker: dequeue %s: unexpected member type %T", queue, res.Member)
	}
	var task Task
	if err := json.Unmarshal([]byte(member), &task); err != nil {
		metrics.BrokerDequeueTotal.WithLabelValues(queue, "error").Inc()
		return nil, fmt.Errorf("broker: decode task: %w", err)
	}
	if err := b.client.HSet(ctx, processingKey(queue), task.ID, member).Err(); err != nil {
		metrics.BrokerDequeueTotal.WithLabelValues(queue, "error").Inc()
		return nil, fmt.Errorf("broker: mark processing: %w", err)
	}
	metrics.BrokerDequeueTotal.WithLabelValues(queue, "delivered").Inc()
	return &task, nil
}

// Ack removes a successfully processed task from the processing set.
func (b *Broker) Ack(ctx context.Context, queue, taskID string) error {
	return b.client.HDel(ctx, processingKey(queue), taskID).Err()
}

// Nack re-enqueues a failed task with its attempt count incremented, up to
// MaxRetries; beyond that it is dropped from the processing set and the
// caller is told delivery is exhausted via the returned bool.
func (b *Broker) Nack(ctx context.Context, queue string, task *Task) (retried bool, err error) {
	if err := b.client.HDel(ctx, processingKey(queue), task.ID).Err(); err != nil {
		return false, fmt.Errorf("broker: clear processing: %w", err)
	}
	task.Attempts++
	if task.Attempts > MaxRetries {
		return false, nil
	}
	now := time.Now().UTC()
	task.EnqueuedAt = now
	encoded, err := json.Marshal(task)
	if err != nil {
		return false, fmt.Errorf("broker: marshal retried task: %w", err)
	}
	if err := b.client.ZAdd(ctx, queueKey(queue), redis.Z{
		Score:  score(task.Priority, now),
		Member: encoded,
	}).Err(); err != nil {
		return false, fmt.Errorf("broker: requeue: %w", err)
	}
	return true, nil
}

// Len reports the number of tasks currently waiting on queue.
func (b *Broker) Len(ctx context.Context, queue string) (int64, error) {
	return b.client.ZCard(ctx, queueKey(queue)).Result()
}

// Ping reports whether the broker's backing Redis is reachable.
func (b *Broker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}
