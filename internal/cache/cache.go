// Package cache implements the two-tier read-through/write-through Cache
// Layer: a fast tier (Redis) fronting a durable tier (Postgres/SQLite).
// Modeled on the hybrid hot/durable cache design in the platform this
// codebase descends from, generalized from a single Redis+Postgres pairing
// to the FastTier/DurableTier interfaces below.
package cache

import (
	"context"
	"time"
)

// DefaultRehydrateTTL is applied to the fast tier when a value is
// repopulated after a durable-tier hit and the durable tier did not report
// its own TTL (§4.2 get: "asynchronously repopulate fast tier with TTL
// derived from durable TTL (default 1h)").
const DefaultRehydrateTTL = time.Hour

// FastTier is the hot, low-latency tier (backed by Redis in production,
// miniredis in tests).
type FastTier interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)
	IncrByFloat(ctx context.Context, key string, delta float64) (float64, error)
	TTL(ctx context.Context, key string) (time.Duration, bool, error)
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRemRangeByScore(ctx context.Context, key string, min, max float64) error
	ZCard(ctx context.Context, key string) (int64, error)
	Ping(ctx context.Context) error
}

// DurableTier is the survivable tier (backed by Postgres/SQLite's
// cache_data table per §6 persisted state layout).
type DurableTier interface {
	Get(ctx context.Context, key string) (value string, expiresAt *time.Time, found bool, err error)
	Set(ctx context.Context, key, value string, expiresAt *time.Time) error
	Delete(ctx context.Context, key string) error
	// SnapshotSortedSet persists a best-effort serialized view of a sorted
	// set for forensic recovery; it is not replayed on rehydrate.
	SnapshotSortedSet(ctx context.Context, key string, members map[string]float64) error
	Ping(ctx context.Context) error
}

// Cache composes the two tiers into the read-through/write-through
// operations described by §4.2.
type Cache struct {
	fast    FastTier
	durable DurableTier
}

// New constructs a Cache over the given tiers.
func New(fast FastTier, durable DurableTier) *Cache {
	return &Cache{fast: fast, durable: durable}
}

// Get reads the fast tier first; on miss it reads the durable tier and, on
// a durable hit, asynchronously repopulates the fast tier.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	if v, ok, err := c.fast.Get(ctx, key); err != nil {
		return "", false, err
	} else if ok {
		return v, true, nil
	}

	v, expiresAt, found, err := c.durable.Get(ctx, key)
	if err != nil {
		return "", false, err
	}
	if !found {
		return "", false, nil
	}

	ttl := DefaultRehydrateTTL
	if expiresAt != nil {
		if remaining := time.Until(*expiresAt); remaining > 0 {
			ttl = remaining
		}
	}
	go c.rehydrate(key, v, ttl)

	return v, true, nil
}

func (c *Cache) rehydrate(key, value string, ttl time.Duration) {
	_ = c.fast.Set(context.Background(), key, value, ttl)
}

// Set writes to both tiers. ttl of zero means no expiry.
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.fast.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		expiresAt = &t
	}
	return c.durable.Set(ctx, key, value, expiresAt)
}

// SetEx is Set with an explicit TTL, matching the spec's setex(k,ttl,v)
// naming.
func (c *Cache) SetEx(ctx context.Context, key string, ttl time.Duration, value string) error {
	return c.Set(ctx, key, value, ttl)
}

// Delete removes key from both tiers; deletions propagate.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.fast.Delete(ctx, key); err != nil {
		return err
	}
	return c.durable.Delete(ctx, key)
}

// TTL reads the fast tier first, falling back to the durable tier and
// rehydrating the fast tier on a durable-only hit.
func (c *Cache) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	if ttl, ok, err := c.fast.TTL(ctx, key); err != nil {
		return 0, false, err
	} else if ok {
		return ttl, true, nil
	}

	v, expiresAt, found, err := c.durable.Get(ctx, key)
	if err != nil || !found {
		return 0, false, err
	}
	var ttl time.Duration
	if expiresAt != nil {
		ttl = time.Until(*expiresAt)
	}
	go c.rehydrate(key, v, ttl)
	return ttl, true, nil
}

// Ping reports healthy if either tier responds.
func (c *Cache) Ping(ctx context.Context) error {
	fastErr := c.fast.Ping(ctx)
	if fastErr == nil {
		return nil
	}
	return c.durable.Ping(ctx)
}
