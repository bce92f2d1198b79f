package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pipeworks/taskmesh/internal/broker"
	"github.com/pipeworks/taskmesh/internal/model"
	"github.com/pipeworks/taskmesh/internal/storage/kv"
)

func newHarness(t *testing.T) (*kv.Repository, *broker.Broker) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return kv.New(client), broker.New(client)
}

func TestScheduler_SweepOne_EnqueuesTaskForPendingJob(t *testing.T) {
	repo, b := newHarness(t)
	ctx := context.Background()

	require.NoError(t, repo.Seed(ctx, &model.Job{
		ID:     "job-1",
		Type:   model.TypeEmbedding,
		Source: model.SourceEmail,
		Owner:  "acme",
		Status: model.StatusPending,
		Data:   map[string]interface{}{},
	}))

	s := New(repo, b, Config{Sources: []model.Source{model.SourceEmail}}, zerolog.Nop())
	require.NoError(t, s.sweepOne(ctx, model.SourceEmail))

	task, err := b.Dequeue(ctx, "email_embedding.task_processing", time.Second)
	require.NoError(t, err)
	require.Equal(t, "job-1", task.ID)

	typ, err := repo.GetType(ctx, "job-1", "acme")
	require.NoError(t, err)
	require.Equal(t, model.TypeEmbedding, typ)
}

func TestScheduler_SweepOne_NoPendingJobsIsNoop(t *testing.T) {
	repo, b := newHarness(t)
	s := New(repo, b, Config{Sources: []model.Source{model.SourceEmail}}, zerolog.Nop())
	require.NoError(t, s.sweepOne(context.Background(), model.SourceEmail))
}

func TestConfig_SetDefaults(t *testing.T) {
	cfg := Config{}
	cfg.setDefaults()
	require.Equal(t, DefaultSweepInterval, cfg.SweepInterval)
	require.Equal(t, DefaultJanitorInterval, cfg.JanitorInterval)
	require.Equal(t, DefaultSweepLimit, cfg.SweepLimit)
}
