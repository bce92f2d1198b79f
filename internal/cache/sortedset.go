package cache

import "context"

// ZAdd executes on the fast tier only; sorted sets are not mirrored to the
// durable tier per write, since members/scores change at high frequency.
// A durable copy exists only when a caller invokes SnapshotZSet; the rate
// limiter does not.
func (c *Cache) ZAdd(ctx context.Context, key string, score float64, member string) error {
	return c.fast.ZAdd(ctx, key, score, member)
}

// ZRemRangeByScore removes members scored within [min, max] from the fast
// tier, used by the rate limiter to expire old window entries.
func (c *Cache) ZRemRangeByScore(ctx context.Context, key string, min, max float64) error {
	return c.fast.ZRemRangeByScore(ctx, key, min, max)
}

// ZCard returns the member count of the sorted set on the fast tier.
func (c *Cache) ZCard(ctx context.Context, key string) (int64, error) {
	return c.fast.ZCard(ctx, key)
}

// SnapshotZSet persists a best-effort view of a sorted set's members to the
// durable tier for forensic recovery; it is not replayed by Get.
func (c *Cache) SnapshotZSet(ctx context.Context, key string, members map[string]float64) error {
	return c.durable.SnapshotSortedSet(ctx, key, members)
}
