// Package storage defines the polymorphic Job Repository contract (§4.3)
// implemented by two backend variants: kv and relational.
// Tenancy lives in the call path (job IDs, owners passed per-call), not in
// instance state, so a single Repository instance serves every tenant.
package storage

import (
	"context"
	"time"

	"github.com/pipeworks/taskmesh/internal/model"
)

// Repository is the uniform contract every backend satisfies.
type Repository interface {
	// Create inserts a new job row carrying j.Status; HTTP ingest
	// handlers create jobs in status=pending.
	Create(ctx context.Context, j *model.Job) error

	// GetData returns the job's opaque payload, or model.ErrNotFound.
	GetData(ctx context.Context, jobID, owner string) (map[string]interface{}, error)

	// GetType returns the job's type, or model.ErrNotFound.
	GetType(ctx context.Context, jobID, owner string) (model.Type, error)

	// GetStatus returns the job's current status, or model.ErrNotFound.
	GetStatus(ctx context.Context, jobID, owner string) (model.Status, error)

	// GetResults returns the job's results, or model.ErrNotFound if the
	// job does not exist or has not completed.
	GetResults(ctx context.Context, jobID, owner string) (map[string]interface{}, error)

	// GetError returns the job's stored error message, or model.ErrNotFound
	// if the job does not exist or has not failed.
	GetError(ctx context.Context, jobID, owner string) (string, error)

	// StoreResults idempotently overwrites the job's results and marks it
	// completed.
	StoreResults(ctx context.Context, jobID, owner string, results map[string]interface{}, ttl time.Duration) error

	// UpdateStatus sets status and updated_at. Returns model.ErrNotFound if
	// the job does not exist.
	UpdateStatus(ctx context.Context, jobID, owner string, status model.Status, ttl time.Duration) error

	// StoreError sets status=failed and records msg as the job's error.
	StoreError(ctx context.Context, jobID, owner, msg string) error

	// Claim atomically transitions jobID from pending (or scheduled) to
	// processing with lock_expires_at = now + ttl. Returns true only for
	// the caller that wins the race; model.ErrAlreadyClaimed otherwise.
	Claim(ctx context.Context, jobID, owner string, ttl time.Duration) (bool, error)

	// ListPending returns up to limit candidates for source and atomically
	// transitions them from pending to scheduled within the same call.
	ListPending(ctx context.Context, source model.Source, limit int) ([]Candidate, error)

	// ResetExpiredLocks transitions any job with status=processing and
	// lock_expires_at < now back to pending (the janitor sweep, §4.3).
	ResetExpiredLocks(ctx context.Context) (int, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}

// Candidate is one pending-job reference returned by ListPending, encoding
// "source:id:owner" per §6's broker task argument convention.
type Candidate struct {
	Source model.Source
	JobID  string
	Owner  string
}

// Key renders the candidate in the "source:id:owner" form used as broker
// task arguments.
func (c Candidate) Key() string {
	return string(c.Source) + ":" + c.JobID + ":" + c.Owner
}
