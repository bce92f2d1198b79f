package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTier implements FastTier over github.com/redis/go-redis/v9, wired
// either to a real Redis deployment or, in tests, to a miniredis instance.
type RedisTier struct {
	client *redis.Client
}

// NewRedisTier constructs a RedisTier from an existing client.
func NewRedisTier(client *redis.Client) *RedisTier {
	return &RedisTier{client: client}
}

func (r *RedisTier) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisTier) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisTier) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisTier) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	return r.client.IncrBy(ctx, key, delta).Result()
}

func (r *RedisTier) IncrByFloat(ctx context.Context, key string, delta float64) (float64, error) {
	return r.client.IncrByFloat(ctx, key, delta).Result()
}

func (r *RedisTier) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	d, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, false, err
	}
	if d < 0 {
		return 0, false, nil
	}
	return d, true, nil
}

func (r *RedisTier) ZAdd(ctx context.Context, key string, score float64, member string) error {
	return r.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
}

func (r *RedisTier) ZRemRangeByScore(ctx context.Context, key string, min, max float64) error {
	return r.client.ZRemRangeByScore(ctx, key, formatScore(min), formatScore(max)).Err()
}

func (r *RedisTier) ZCard(ctx context.Context, key string) (int64, error) {
	return r.client.ZCard(ctx, key).Result()
}

func (r *RedisTier) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func formatScore(v float64) string {
	return ftoa(v)
}
