package kv

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/pipeworks/taskmesh/internal/model"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client)
}

func seed(t *testing.T, r *Repository, id string, status model.Status, source model.Source) {
	t.Helper()
	require.NoError(t, r.Seed(context.Background(), &model.Job{
		ID:     id,
		Type:   model.TypeEmbedding,
		Source: source,
		Owner:  "acme",
		Status: status,
		Data:   map[string]interface{}{"k": "v"},
	}))
}

func TestKVRepository_GetData_NotFound(t *testing.T) {
	r := newTestRepo(t)
	_, err := r.GetData(context.Background(), "missing", "")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestKVRepository_SeedAndGet(t *testing.T) {
	r := newTestRepo(t)
	seed(t, r, "job-1", model.StatusPending, model.SourceEmail)

	data, err := r.GetData(context.Background(), "job-1", "")
	require.NoError(t, err)
	require.Equal(t, "v", data["k"])

	typ, err := r.GetType(context.Background(), "job-1", "")
	require.NoError(t, err)
	require.Equal(t, model.TypeEmbedding, typ)
}

func TestKVRepository_Claim_OnlyOneWinner(t *testing.T) {
	r := newTestRepo(t)
	seed(t, r, "job-2", model.StatusPending, model.SourceEmail)

	const attempts = 8
	var wg sync.WaitGroup
	wins := make([]bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := r.Claim(context.Background(), "job-2", "worker-"+itoa(i), 5*time.Minute)
			wins[i] = ok && err == nil
		}(i)
	}
	wg.Wait()

	winCount := 0
	for _, w := range wins {
		if w {
			winCount++
		}
	}
	require.Equal(t, 1, winCount)
}

func TestKVRepository_ListPending_TransitionsToScheduled(t *testing.T) {
	r := newTestRepo(t)
	seed(t, r, "job-3", model.StatusPending, model.SourceSharePoint)
	seed(t, r, "job-4", model.StatusPending, model.SourceEmail)

	candidates, err := r.ListPending(context.Background(), model.SourceSharePoint, 10)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, "job-3", candidates[0].JobID)

	status, err := r.client.Get(context.Background(), statusKey("job-3")).Result()
	require.NoError(t, err)
	require.Equal(t, string(model.StatusScheduled), status)
}

func TestKVRepository_StoreResultsAndError(t *testing.T) {
	r := newTestRepo(t)
	seed(t, r, "job-5", model.StatusProcessing, model.SourceEmail)

	require.NoError(t, r.StoreResults(context.Background(), "job-5", "", map[string]interface{}{"ok": true}, 0))
	status, err := r.client.Get(context.Background(), statusKey("job-5")).Result()
	require.NoError(t, err)
	require.Equal(t, string(model.StatusCompleted), status)

	seed(t, r, "job-6", model.StatusProcessing, model.SourceEmail)
	require.NoError(t, r.StoreError(context.Background(), "job-6", "", "boom"))
	status, err = r.client.Get(context.Background(), statusKey("job-6")).Result()
	require.NoError(t, err)
	require.Equal(t, string(model.StatusFailed), status)
}

func TestKVRepository_GetStatusResultsError(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	seed(t, r, "job-7", model.StatusPending, model.SourceEmail)

	status, err := r.GetStatus(ctx, "job-7", "")
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, status)

	_, err = r.GetResults(ctx, "job-7", "")
	require.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, r.StoreResults(ctx, "job-7", "", map[string]interface{}{"ok": true}, 0))
	results, err := r.GetResults(ctx, "job-7", "")
	require.NoError(t, err)
	require.Equal(t, true, results["ok"])

	_, err = r.GetError(ctx, "job-7", "")
	require.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, r.StoreError(ctx, "job-7", "", "boom"))
	msg, err := r.GetError(ctx, "job-7", "")
	require.NoError(t, err)
	require.Equal(t, "boom", msg)
}

func TestKVRepository_GetStatus_NotFound(t *testing.T) {
	r := newTestRepo(t)
	_, err := r.GetStatus(context.Background(), "missing", "")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func itoa(i int) string {
	digits := "0123456789"
	if i == 0 {
		return "0"
	}
	var b []byte
	for i > 0 {
		b = append([]byte{digits[i%10]}, b...)
		i /= 10
	}
	return string(b)
}
