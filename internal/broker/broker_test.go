package broker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestBroker(t *testing.T) *Broker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client)
}

func TestBroker_EnqueueDequeue_RoundTrip(t *testing.T) {
	b := newTestBroker(t)
	ctx := context.Background()

	require.NoError(t, b.Enqueue(ctx, "email_embedding.task_processing", "job-1", DefaultPriority, map[string]string{"arg": "email:job-1:acme"}))

	task, err := b.Dequeue(ctx, "email_embedding.task_processing", time.Second)
	require.NoError(t, err)
	require.Equal(t, "job-1", task.ID)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(task.Payload, &payload))
	require.Equal(t, "email:job-1:acme", payload["arg"])
}

func TestBroker_Dequeue_HigherPriorityFirst(t *testing.T) {
	b := newTestBroker(t)
	ctx := context.Background()

	require.NoError(t, b.Enqueue(ctx, "q", "low", 2, map[string]string{}))
	require.NoError(t, b.Enqueue(ctx, "q", "high", 9, map[string]string{}))
	require.NoError(t, b.Enqueue(ctx, "q", "mid", 5, map[string]string{}))

	first, err := b.Dequeue(ctx, "q", time.Second)
	require.NoError(t, err)
	require.Equal(t, "high", first.ID)

	second, err := b.Dequeue(ctx, "q", time.Second)
	require.NoError(t, err)
	require.Equal(t, "mid", second.ID)

	third, err := b.Dequeue(ctx, "q", time.Second)
	require.NoError(t, err)
	require.Equal(t, "low", third.ID)
}

func TestBroker_Dequeue_EmptyReturnsErrEmpty(t *testing.T) {
	b := newTestBroker(t)
	_, err := b.Dequeue(context.Background(), "empty", 10*time.Millisecond)
	require.ErrorIs(t, err, ErrEmpty)
}

func TestBroker_Ack_RemovesFromProcessing(t *testing.T) {
	b := newTestBroker(t)
	ctx := context.Background()
	require.NoError(t, b.Enqueue(ctx, "q", "job-1", DefaultPriority, map[string]string{}))

	task, err := b.Dequeue(ctx, "q", time.Second)
	require.NoError(t, err)
	require.NoError(t, b.Ack(ctx, "q", task.ID))
}

func TestBroker_Nack_RetriesUntilMaxRetries(t *testing.T) {
	b := newTestBroker(t)
	ctx := context.Background()
	require.NoError(t, b.Enqueue(ctx, "q", "job-1", DefaultPriority, map[string]string{}))

	task, err := b.Dequeue(ctx, "q", time.Second)
	require.NoError(t, err)

	for i := 0; i < MaxRetries; i++ {
		retried, err := b.Nack(ctx, "q", task)
		require.NoError(t, err)
		require.True(t, retried, "attempt %d should retry", i)

		task, err = b.Dequeue(ctx, "q", time.Second)
		require.NoError(t, err)
	}

	retried, err := b.Nack(ctx, "q", task)
	require.NoError(t, err)
	require.False(t, retried, "exhausted retries should not retry")

	length, err := b.Len(ctx, "q")
	require.NoError(t, err)
	require.Zero(t, length)
}

func TestClampPriority(t *testing.T) {
	require.Equal(t, DefaultPriority, ClampPriority(0))
	require.Equal(t, MinPriority, ClampPriority(-5))
	require.Equal(t, MaxPriority, ClampPriority(99))
	require.Equal(t, 7, ClampPriority(7))
}
