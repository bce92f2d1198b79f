// Package kv implements storage.Repository directly over Redis, grounded
// on the original platform's RedisJobRepository: per-field keys under
// job:{id}:{data|status|type|results|error}, a SETNX lock for claim, and a
// key-scan for list_pending.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pipeworks/taskmesh/internal/model"
	"github.com/pipeworks/taskmesh/internal/storage"
)

// Default TTLs mirror the original platform's Redis key lifetimes.
const (
	ResultsTTL = 7 * 24 * time.Hour
	StatusTTL  = 7 * 24 * time.Hour
	ErrorTTL   = 24 * time.Hour
)

// Repository is the KV Job Repository backend.
type Repository struct {
	client *redis.Client
}

// New constructs a KV Repository over an existing Redis client.
func New(client *redis.Client) *Repository {
	return &Repository{client: client}
}

var _ storage.Repository = (*Repository)(nil)

func dataKey(jobID string) string    { return fmt.Sprintf("job:%s:data", jobID) }
func statusKey(jobID string) string  { return fmt.Sprintf("job:%s:status", jobID) }
func typeKey(jobID string) string    { return fmt.Sprintf("job:%s:type", jobID) }
func resultsKey(jobID string) string { return fmt.Sprintf("job:%s:results", jobID) }
func errorKey(jobID string) string   { return fmt.Sprintf("job:%s:error", jobID) }
func ownerKey(jobID string) string   { return fmt.Sprintf("job:%s:owner", jobID) }
func sourceKey(jobID string) string  { return fmt.Sprintf("job:%s:source", jobID) }
func lockKey(jobID string) string    { return fmt.Sprintf("job:%s:lock", jobID) }

func (r *Repository) GetData(ctx context.Context, jobID, owner string) (map[string]interface{}, error) {
	raw, err := r.client.Get(ctx, dataKey(jobID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv get data: %w", err)
	}
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("kv decode data: %w", err)
	}
	return data, nil
}

func (r *Repository) GetType(ctx context.Context, jobID, owner string) (model.Type, error) {
	v, err := r.client.Get(ctx, typeKey(jobID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", model.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("kv get type: %w", err)
	}
	return model.Type(v), nil
}

func (r *Repository) GetStatus(ctx context.Context, jobID, owner string) (model.Status, error) {
	v, err := r.client.Get(ctx, statusKey(jobID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", model.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("kv get status: %w", err)
	}
	return model.Status(v), nil
}

func (r *Repository) GetResults(ctx context.Context, jobID, owner string) (map[string]interface{}, error) {
	raw, err := r.client.Get(ctx, resultsKey(jobID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv get results: %w", err)
	}
	var results map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &results); err != nil {
		return nil, fmt.Errorf("kv decode results: %w", err)
	}
	return results, nil
}

func (r *Repository) GetError(ctx context.Context, jobID, owner string) (string, error) {
	v, err := r.client.Get(ctx, errorKey(jobID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", model.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("kv get error: %w", err)
	}
	return v, nil
}

func (r *Repository) StoreResults(ctx context.Context, jobID, owner string, results map[string]interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("kv encode results: %w", err)
	}
	if ttl <= 0 {
		ttl = ResultsTTL
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, resultsKey(jobID), raw, ttl)
	pipe.Set(ctx, statusKey(jobID), string(model.StatusCompleted), StatusTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("kv store results: %w", err)
	}
	return nil
}

func (r *Repository) UpdateStatus(ctx context.Context, jobID, owner string, status model.Status, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = StatusTTL
	}
	exists, err := r.client.Exists(ctx, dataKey(jobID)).Result()
	if err != nil {
		return fmt.Errorf("kv update status exists check: %w", err)
	}
	if exists == 0 {
		return model.ErrNotFound
	}
	if err := r.client.Set(ctx, statusKey(jobID), string(status), ttl).Err(); err != nil {
		return fmt.Errorf("kv update status: %w", err)
	}
	return nil
}

func (r *Repository) StoreError(ctx context.Context, jobID, owner, msg string) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, errorKey(jobID), msg, ErrorTTL)
	pipe.Set(ctx, statusKey(jobID), string(model.StatusFailed), StatusTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("kv store error: %w", err)
	}
	return nil
}

// Claim uses SETNX on job:{id}:lock with the claim TTL as the atomic
// primitive, per §4.3 ("For the KV backend: SETNX on {job}:lock with TTL").
// Ownership of the lock key IS the claim; status is updated only after the
// lock is won.
func (r *Repository) Claim(ctx context.Context, jobID, owner string, ttl time.Duration) (bool, error) {
	status, err := r.client.Get(ctx, statusKey(jobID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("kv claim status check: %w", err)
	}
	if status != "" && status != string(model.StatusPending) && status != string(model.StatusScheduled) {
		return false, model.ErrAlreadyClaimed
	}

	won, err := r.client.SetNX(ctx, lockKey(jobID), owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("kv claim setnx: %w", err)
	}
	if !won {
		return false, model.ErrAlreadyClaimed
	}
	if err := r.client.Set(ctx, statusKey(jobID), string(model.StatusProcessing), StatusTTL).Err(); err != nil {
		return false, fmt.Errorf("kv claim status set: %w", err)
	}
	return true, nil
}

// ListPending scans job:*:status keys for source-matching pending jobs,
// matching the original platform's get_pending_jobs scan, and transitions
// each to scheduled.
func (r *Repository) ListPending(ctx context.Context, source model.Source, limit int) ([]storage.Candidate, error) {
	var candidates []storage.Candidate
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, "job:*:status", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("kv list pending scan: %w", err)
		}
		for _, k := range keys {
			jobID := jobIDFromStatusKey(k)
			if jobID == "" {
				continue
			}
			status, err := r.client.Get(ctx, k).Result()
			if err != nil {
				continue
			}
			if status != string(model.StatusPending) {
				continue
			}
			src, err := r.client.Get(ctx, sourceKey(jobID)).Result()
			if err != nil || model.Source(src) != source {
				continue
			}
			owner, _ := r.client.Get(ctx, ownerKey(jobID)).Result()
			candidates = append(candidates, storage.Candidate{Source: source, JobID: jobID, Owner: owner})
			if len(candidates) >= limit {
				break
			}
		}
		cursor = next
		if cursor == 0 || len(candidates) >= limit {
			break
		}
	}

	for _, c := range candidates {
		if err := r.client.Set(ctx, statusKey(c.JobID), string(model.StatusScheduled), StatusTTL).Err(); err != nil {
			return nil, fmt.Errorf("kv list pending transition: %w", err)
		}
	}
	return candidates, nil
}

// ResetExpiredLocks relies on the lock key's own Redis TTL rather than a
// scan: when job:{id}:lock expires, the key simply disappears. The janitor
// sweep here instead resets any job whose status is "processing" but whose
// lock key no longer exists, a direct Redis analogue of lock_expires_at <
// now.
func (r *Repository) ResetExpiredLocks(ctx context.Context) (int, error) {
	reset := 0
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, "job:*:status", 100).Result()
		if err != nil {
			return reset, fmt.Errorf("kv reset expired locks scan: %w", err)
		}
		for _, k := range keys {
			jobID := jobIDFromStatusKey(k)
			if jobID == "" {
				continue
			}
			status, err := r.client.Get(ctx, k).Result()
			if err != nil || status != string(model.StatusProcessing) {
				continue
			}
			exists, err := r.client.Exists(ctx, lockKey(jobID)).Result()
			if err != nil || exists > 0 {
				continue
			}
			if err := r.client.Set(ctx, k, string(model.StatusPending), StatusTTL).Err(); err == nil {
				reset++
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return reset, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Create satisfies storage.Repository's uniform creation method by
// delegating to Seed.
func (r *Repository) Create(ctx context.Context, j *model.Job) error {
	return r.Seed(ctx, j)
}

// Seed stores the initial data/type/source/owner/status fields for a new
// job; used by HTTP ingest handlers when the KV backend is selected.
func (r *Repository) Seed(ctx context.Context, j *model.Job) error {
	raw, err := json.Marshal(j.Data)
	if err != nil {
		return fmt.Errorf("kv seed encode: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, dataKey(j.ID), raw, 0)
	pipe.Set(ctx, typeKey(j.ID), string(j.Type), 0)
	pipe.Set(ctx, sourceKey(j.ID), string(j.Source), 0)
	pipe.Set(ctx, ownerKey(j.ID), j.Owner, 0)
	pipe.Set(ctx, statusKey(j.ID), string(j.Status), StatusTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func jobIDFromStatusKey(key string) string {
	// key shape: job:{id}:status
	const prefix = "job:"
	const suffix = ":status"
	if len(key) <= len(prefix)+len(suffix) {
		return ""
	}
	if key[:len(prefix)] != prefix || key[len(key)-len(suffix):] != suffix {
		return ""
	}
	return key[len(prefix) : len(key)-len(suffix)]
}
