package auth

import (
	"context"
	"fmt"
	"time"
)

// ZSetStore is the subset of the Cache Layer's sorted-set operations the
// rate limiter needs. Satisfied by *cache.Cache.
type ZSetStore interface {
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRemRangeByScore(ctx context.Context, key string, min, max float64) error
	ZCard(ctx context.Context, key string) (int64, error)
}

// TierLimits bounds one client tier's request rate and concurrency (§6:
// "rate_limits.tiers.{free,pro,enterprise}.{requests_per_minute,
// max_concurrent}").
type TierLimits struct {
	RequestsPerMinute int
	MaxConcurrent     int
}

// RateLimiter enforces a one-minute window per client using a Redis sorted
// set keyed `rate_limit:{client}:{bucket}` (§6's persisted state layout),
// where the bucket is the current UTC minute: each request adds a member
// scored by its Unix timestamp in nanoseconds, members older than one
// minute are trimmed, and the remaining cardinality is compared against
// the tier's per-minute limit. Because the key changes at every minute
// boundary, the count starts from zero each calendar minute.
type RateLimiter struct {
	store ZSetStore
	now   func() time.Time
}

// NewRateLimiter builds a RateLimiter over store.
func NewRateLimiter(store ZSetStore) *RateLimiter {
	return &RateLimiter{store: store, now: time.Now}
}

// Result carries the outcome of an Allow check, shaped for the
// X-RateLimit-* response headers and the 429 error body (§6).
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

const window = time.Minute

// Allow records one request attempt for clientID against limits and
// reports whether it falls within the tier's per-minute cap.
func (l *RateLimiter) Allow(ctx context.Context, clientID string, limits TierLimits) (Result, error) {
	now := l.now()
	key := rateLimitKey(clientID, now)
	windowStart := now.Add(-window)

	if err := l.store.ZRemRangeByScore(ctx, key, 0, float64(windowStart.UnixNano())); err != nil {
		return Result{}, fmt.Errorf("auth: trim rate limit window: %w", err)
	}

	count, err := l.store.ZCard(ctx, key)
	if err != nil {
		return Result{}, fmt.Errorf("auth: read rate limit count: %w", err)
	}

	resetAt := now.Add(window)
	if int(count) >= limits.RequestsPerMinute {
		return Result{Allowed: false, Limit: limits.RequestsPerMinute, Remaining: 0, ResetAt: resetAt}, nil
	}

	member := fmt.Sprintf("%d-%d", now.UnixNano(), count)
	if err := l.store.ZAdd(ctx, key, float64(now.UnixNano()), member); err != nil {
		return Result{}, fmt.Errorf("auth: record rate limit entry: %w", err)
	}

	remaining := limits.RequestsPerMinute - int(count) - 1
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: true, Limit: limits.RequestsPerMinute, Remaining: remaining, ResetAt: resetAt}, nil
}

// rateLimitKey buckets by client and the current minute, matching §6's
// `rate_limit:{client}:{bucket}` key convention.
func rateLimitKey(clientID string, now time.Time) string {
	bucket := now.UTC().Format("200601021504")
	return "rate_limit:" + clientID + ":" + bucket
}
