package relational

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pipeworks/taskmesh/internal/model"
	"github.com/pipeworks/taskmesh/internal/storage"
)

// Dialect selects placeholder syntax and row-locking behavior.
type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectSQLite
)

// Repository is the relational Job Repository backend. Atomic claim is
// implemented as a conditional UPDATE ... WHERE status IN (pending,
// scheduled) whose RowsAffected reports whether this caller won the race,
// the same compare-and-set shape the outbox worker uses for its
// SELECT ... FOR UPDATE SKIP LOCKED lease, simplified to a single-row CAS
// since claim targets exactly one job ID.
type Repository struct {
	db      *sql.DB
	dialect Dialect
}

// New constructs a relational Repository. The caller must have already run
// the appropriate DDL (DDLPostgres or DDLSQLite).
func New(db *sql.DB, dialect Dialect) *Repository {
	return &Repository{db: db, dialect: dialect}
}

var _ storage.Repository = (*Repository)(nil)

func (r *Repository) ph(n int) string {
	if r.dialect == DialectSQLite {
		return "?"
	}
	return fmt.Sprintf("$%d", n)
}

func (r *Repository) now() string {
	if r.dialect == DialectSQLite {
		return "CURRENT_TIMESTAMP"
	}
	return "now()"
}

func (r *Repository) GetData(ctx context.Context, jobID, owner string) (map[string]interface{}, error) {
	q := fmt.Sprintf("SELECT data FROM jobs WHERE id = %s", r.ph(1))
	args := []any{jobID}
	if owner != "" {
		q += fmt.Sprintf(" AND owner = %s", r.ph(2))
		args = append(args, owner)
	}
	var raw []byte
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get job data: %w", err)
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode job data: %w", err)
	}
	return data, nil
}

func (r *Repository) GetType(ctx context.Context, jobID, owner string) (model.Type, error) {
	q := fmt.Sprintf("SELECT type FROM jobs WHERE id = %s", r.ph(1))
	args := []any{jobID}
	if owner != "" {
		q += fmt.Sprintf(" AND owner = %s", r.ph(2))
		args = append(args, owner)
	}
	var t string
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", model.ErrNotFound
		}
		return "", fmt.Errorf("get job type: %w", err)
	}
	return model.Type(t), nil
}

func (r *Repository) GetStatus(ctx context.Context, jobID, owner string) (model.Status, error) {
	q := fmt.Sprintf("SELECT status FROM jobs WHERE id = %s", r.ph(1))
	args := []any{jobID}
	if owner != "" {
		q += fmt.Sprintf(" AND owner = %s", r.ph(2))
		args = append(args, owner)
	}
	var s string
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", model.ErrNotFound
		}
		return "", fmt.Errorf("get job status: %w", err)
	}
	return model.Status(s), nil
}

func (r *Repository) GetResults(ctx context.Context, jobID, owner string) (map[string]interface{}, error) {
	q := fmt.Sprintf("SELECT results FROM jobs WHERE id = %s", r.ph(1))
	args := []any{jobID}
	if owner != "" {
		q += fmt.Sprintf(" AND owner = %s", r.ph(2))
		args = append(args, owner)
	}
	var raw sql.NullString
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get job results: %w", err)
	}
	if !raw.Valid {
		return nil, model.ErrNotFound
	}
	var results map[string]interface{}
	if err := json.Unmarshal([]byte(raw.String), &results); err != nil {
		return nil, fmt.Errorf("decode job results: %w", err)
	}
	return results, nil
}

func (r *Repository) GetError(ctx context.Context, jobID, owner string) (string, error) {
	q := fmt.Sprintf("SELECT error FROM jobs WHERE id = %s", r.ph(1))
	args := []any{jobID}
	if owner != "" {
		q += fmt.Sprintf(" AND owner = %s", r.ph(2))
		args = append(args, owner)
	}
	var errMsg sql.NullString
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&errMsg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", model.ErrNotFound
		}
		return "", fmt.Errorf("get job error: %w", err)
	}
	if !errMsg.Valid {
		return "", model.ErrNotFound
	}
	return errMsg.String, nil
}

func (r *Repository) StoreResults(ctx context.Context, jobID, owner string, results map[string]interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		expiresAt = &t
	}

	q := fmt.Sprintf(
		"UPDATE jobs SET results = %s, status = %s, expires_at = %s, updated_at = %s WHERE id = %s",
		r.ph(1), r.ph(2), r.ph(3), r.now(), r.ph(4),
	)
	args := []any{string(raw), string(model.StatusCompleted), expiresAt, jobID}
	if owner != "" {
		q += fmt.Sprintf(" AND owner = %s", r.ph(5))
		args = append(args, owner)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("store results: %w", err)
	}
	return r.requireAffected(res)
}

func (r *Repository) UpdateStatus(ctx context.Context, jobID, owner string, status model.Status, ttl time.Duration) error {
	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		expiresAt = &t
	}
	q := fmt.Sprintf(
		"UPDATE jobs SET status = %s, expires_at = COALESCE(%s, expires_at), updated_at = %s WHERE id = %s",
		r.ph(1), r.ph(2), r.now(), r.ph(3),
	)
	args := []any{string(status), expiresAt, jobID}
	if owner != "" {
		q += fmt.Sprintf(" AND owner = %s", r.ph(4))
		args = append(args, owner)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return r.requireAffected(res)
}

func (r *Repository) StoreError(ctx context.Context, jobID, owner, msg string) error {
	q := fmt.Sprintf(
		"UPDATE jobs SET status = %s, error = %s, updated_at = %s WHERE id = %s",
		r.ph(1), r.ph(2), r.now(), r.ph(3),
	)
	args := []any{string(model.StatusFailed), msg, jobID}
	if owner != "" {
		q += fmt.Sprintf(" AND owner = %s", r.ph(4))
		args = append(args, owner)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("store error: %w", err)
	}
	return r.requireAffected(res)
}

// Claim is the atomic compare-and-set at the heart of §4.3: an UPDATE
// guarded by a status IN (pending, scheduled) predicate. Exactly one
// concurrent caller's UPDATE affects a row; the rest observe zero rows
// affected and return model.ErrAlreadyClaimed.
func (r *Repository) Claim(ctx context.Context, jobID, owner string, ttl time.Duration) (bool, error) {
	lockExpiresAt := time.Now().Add(ttl)
	q := fmt.Sprintf(
		`UPDATE jobs SET status = %s, lock_expires_at = %s, updated_at = %s
		 WHERE id = %s AND status IN (%s, %s)`,
		r.ph(1), r.ph(2), r.now(), r.ph(3), r.ph(4), r.ph(5),
	)
	args := []any{string(model.StatusProcessing), lockExpiresAt, jobID, string(model.StatusPending), string(model.StatusScheduled)}
	if owner != "" {
		q += fmt.Sprintf(" AND owner = %s", r.ph(6))
		args = append(args, owner)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, fmt.Errorf("claim: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim rows affected: %w", err)
	}
	if n == 0 {
		return false, model.ErrAlreadyClaimed
	}
	return true, nil
}

// ListPending selects up to limit pending rows for source, ordered by
// priority then age, and transitions them to scheduled within the same
// transaction so a concurrent sweep cannot double-enqueue the same
// candidates (§9 open question: list_pending transitions to "scheduled").
func (r *Repository) ListPending(ctx context.Context, source model.Source, limit int) ([]storage.Candidate, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list pending begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	selectQ := fmt.Sprintf(
		"SELECT id, owner FROM jobs WHERE status = %s AND source = %s ORDER BY priority DESC, created_at ASC LIMIT %s",
		r.ph(1), r.ph(2), r.ph(3),
	)
	if r.dialect == DialectPostgres {
		selectQ += " FOR UPDATE SKIP LOCKED"
	}

	rows, err := tx.QueryContext(ctx, selectQ, string(model.StatusPending), string(source), limit)
	if err != nil {
		return nil, fmt.Errorf("list pending select: %w", err)
	}
	var candidates []storage.Candidate
	for rows.Next() {
		var id, owner string
		if err := rows.Scan(&id, &owner); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("list pending scan: %w", err)
		}
		candidates = append(candidates, storage.Candidate{Source: source, JobID: id, Owner: owner})
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("list pending rows: %w", err)
	}
	_ = rows.Close()

	for _, c := range candidates {
		updQ := fmt.Sprintf("UPDATE jobs SET status = %s, updated_at = %s WHERE id = %s", r.ph(1), r.now(), r.ph(2))
		if _, err := tx.ExecContext(ctx, updQ, string(model.StatusScheduled), c.JobID); err != nil {
			return nil, fmt.Errorf("list pending transition: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("list pending commit: %w", err)
	}
	return candidates, nil
}

// ResetExpiredLocks is the janitor sweep: any job stuck in processing with
// an expired lock returns to pending for re-discovery.
func (r *Repository) ResetExpiredLocks(ctx context.Context) (int, error) {
	q := fmt.Sprintf(
		"UPDATE jobs SET status = %s, lock_expires_at = NULL, updated_at = %s WHERE status = %s AND lock_expires_at < %s",
		r.ph(1), r.now(), r.ph(2), r.now(),
	)
	res, err := r.db.ExecContext(ctx, q, string(model.StatusPending), string(model.StatusProcessing))
	if err != nil {
		return 0, fmt.Errorf("reset expired locks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset expired locks rows affected: %w", err)
	}
	return int(n), nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Create satisfies storage.Repository's uniform creation method by
// delegating to Insert.
func (r *Repository) Create(ctx context.Context, j *model.Job) error {
	return r.Insert(ctx, j)
}

// Insert creates a new job row carrying j.Status; used by the HTTP ingest
// handlers (which pass status=pending) and by tests that seed fixtures.
func (r *Repository) Insert(ctx context.Context, j *model.Job) error {
	raw, err := json.Marshal(j.Data)
	if err != nil {
		return fmt.Errorf("encode job data: %w", err)
	}
	q := fmt.Sprintf(
		"INSERT INTO jobs (id, type, source, owner, status, priority, data, created_at, updated_at) VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s)",
		r.ph(1), r.ph(2), r.ph(3), r.ph(4), r.ph(5), r.ph(6), r.ph(7), r.now(), r.now(),
	)
	_, err = r.db.ExecContext(ctx, q, j.ID, string(j.Type), string(j.Source), j.Owner, string(j.Status), j.Priority, string(raw))
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}
