package relational

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/pipeworks/taskmesh/internal/model"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(DDLSQLite)
	require.NoError(t, err)
	return New(db, DialectSQLite)
}

func seedJob(t *testing.T, r *Repository, id string, status model.Status, source model.Source) {
	t.Helper()
	require.NoError(t, r.Insert(context.Background(), &model.Job{
		ID:       id,
		Type:     model.TypeEmbedding,
		Source:   source,
		Owner:    "acme",
		Status:   status,
		Priority: model.DefaultPriority,
		Data:     map[string]interface{}{"k": "v"},
	}))
}

func TestRepository_GetData_NotFound(t *testing.T) {
	r := newTestRepo(t)
	_, err := r.GetData(context.Background(), "missing", "")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestRepository_InsertAndGetData(t *testing.T) {
	r := newTestRepo(t)
	seedJob(t, r, "job-1", model.StatusPending, model.SourceEmail)

	data, err := r.GetData(context.Background(), "job-1", "acme")
	require.NoError(t, err)
	require.Equal(t, "v", data["k"])

	typ, err := r.GetType(context.Background(), "job-1", "")
	require.NoError(t, err)
	require.Equal(t, model.TypeEmbedding, typ)
}

func TestRepository_Claim_OnlyOneWinnerConcurrently(t *testing.T) {
	r := newTestRepo(t)
	seedJob(t, r, "job-2", model.StatusPending, model.SourceEmail)

	const attempts = 8
	var wg sync.WaitGroup
	wins := make([]bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := r.Claim(context.Background(), "job-2", "acme", 5*time.Minute)
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
	require.Equal(t, 1, winCount, "exactly one concurrent claim should succeed")
}

func TestRepository_Claim_FailsWhenNotPending(t *testing.T) {
	r := newTestRepo(t)
	seedJob(t, r, "job-3", model.StatusCompleted, model.SourceEmail)

	ok, err := r.Claim(context.Background(), "job-3", "acme", time.Minute)
	require.False(t, ok)
	require.ErrorIs(t, err, model.ErrAlreadyClaimed)
}

func TestRepository_ListPending_TransitionsToScheduled(t *testing.T) {
	r := newTestRepo(t)
	seedJob(t, r, "job-4", model.StatusPending, model.SourceSharePoint)
	seedJob(t, r, "job-5", model.StatusPending, model.SourceSharePoint)
	seedJob(t, r, "job-6", model.StatusPending, model.SourceEmail)

	candidates, err := r.ListPending(context.Background(), model.SourceSharePoint, 10)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	typ, err := r.GetType(context.Background(), "job-4", "")
	require.NoError(t, err)
	require.Equal(t, model.TypeEmbedding, typ)

	var status string
	require.NoError(t, r.db.QueryRow("SELECT status FROM jobs WHERE id = ?", "job-4").Scan(&status))
	require.Equal(t, string(model.StatusScheduled), status)

	// job-6 belongs to a different source and must be untouched.
	require.NoError(t, r.db.QueryRow("SELECT status FROM jobs WHERE id = ?", "job-6").Scan(&status))
	require.Equal(t, string(model.StatusPending), status)
}

func TestRepository_ResetExpiredLocks(t *testing.T) {
	r := newTestRepo(t)
	seedJob(t, r, "job-7", model.StatusPending, model.SourceEmail)

	ok, err := r.Claim(context.Background(), "job-7", "acme", -time.Minute)
	require.True(t, ok)
	require.NoError(t, err)

	n, err := r.ResetExpiredLocks(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	typ, err := r.GetType(context.Background(), "job-7", "")
	require.NoError(t, err)
	require.Equal(t, model.TypeEmbedding, typ)

	var status string
	require.NoError(t, r.db.QueryRow("SELECT status FROM jobs WHERE id = ?", "job-7").Scan(&status))
	require.Equal(t, string(model.StatusPending), status)
}

func TestRepository_StoreResultsAndError(t *testing.T) {
	r := newTestRepo(t)
	seedJob(t, r, "job-8", model.StatusProcessing, model.SourceEmail)

	require.NoError(t, r.StoreResults(context.Background(), "job-8", "acme", map[string]interface{}{"ok": true}, time.Hour))
	var status string
	require.NoError(t, r.db.QueryRow("SELECT status FROM jobs WHERE id = ?", "job-8").Scan(&status))
	require.Equal(t, string(model.StatusCompleted), status)

	seedJob(t, r, "job-9", model.StatusProcessing, model.SourceEmail)
	require.NoError(t, r.StoreError(context.Background(), "job-9", "acme", "boom"))
	require.NoError(t, r.db.QueryRow("SELECT status FROM jobs WHERE id = ?", "job-9").Scan(&status))
	require.Equal(t, string(model.StatusFailed), status)
}

func TestRepository_GetStatusResultsError(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	seedJob(t, r, "job-10", model.StatusPending, model.SourceEmail)

	status, err := r.GetStatus(ctx, "job-10", "acme")
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, status)

	_, err = r.GetResults(ctx, "job-10", "acme")
	require.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, r.StoreResults(ctx, "job-10", "acme", map[string]interface{}{"ok": true}, time.Hour))
	results, err := r.GetResults(ctx, "job-10", "acme")
	require.NoError(t, err)
	require.Equal(t, true, results["ok"])

	seedJob(t, r, "job-11", model.StatusProcessing, model.SourceEmail)
	_, err = r.GetError(ctx, "job-11", "acme")
	require.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, r.StoreError(ctx, "job-11", "acme", "boom"))
	msg, err := r.GetError(ctx, "job-11", "acme")
	require.NoError(t, err)
	require.Equal(t, "boom", msg)
}

func TestRepository_GetStatus_NotFound(t *testing.T) {
	r := newTestRepo(t)
	_, err := r.GetStatus(context.Background(), "missing", "")
	require.ErrorIs(t, err, model.ErrNotFound)
}
