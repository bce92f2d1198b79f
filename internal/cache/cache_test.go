package cache

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(DDLSQLite)
	require.NoError(t, err)

	return New(NewRedisTier(client), NewSQLTier(db, DialectSQLite))
}

func TestCache_SetGet_RoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "job:1:status", "pending", 0))

	v, ok, err := c.Get(ctx, "job:1:status")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "pending", v)
}

func TestCache_Get_FallsBackToDurableAndRehydrates(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	// Write only to the durable tier, bypassing the fast tier, to simulate
	// a fast-tier eviction or restart.
	require.NoError(t, c.durable.Set(ctx, "job:2:status", "completed", nil))

	v, ok, err := c.Get(ctx, "job:2:status")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "completed", v)

	require.Eventually(t, func() bool {
		v, ok, _ := c.fast.Get(ctx, "job:2:status")
		return ok && v == "completed"
	}, time.Second, 10*time.Millisecond, "fast tier should be rehydrated")
}

func TestCache_Delete_PropagatesToBothTiers(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "job:3:status", "failed", 0))
	require.NoError(t, c.Delete(ctx, "job:3:status"))

	_, ok, err := c.fast.Get(ctx, "job:3:status")
	require.NoError(t, err)
	require.False(t, ok)

	_, _, ok, err = c.durable.Get(ctx, "job:3:status")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCache_IncrBy_MirrorsToDurable(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	v, err := c.IncrBy(ctx, "openai:monthly_tokens", 100)
	require.NoError(t, err)
	require.Equal(t, int64(100), v)

	require.Eventually(t, func() bool {
		val, _, ok, _ := c.durable.Get(ctx, "openai:monthly_tokens")
		return ok && val == "100"
	}, time.Second, 10*time.Millisecond)
}

func TestCache_SortedSet_RateLimitWindow(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	key := "rate_limit:client-1:202601010000"
	now := float64(time.Now().Unix())
	for i := 0; i < 3; i++ {
		require.NoError(t, c.ZAdd(ctx, key, now+float64(i), itoa(int64(i))))
	}

	count, err := c.ZCard(ctx, key)
	require.NoError(t, err)
	require.Equal(t, int64(3), count)

	require.NoError(t, c.ZRemRangeByScore(ctx, key, 0, now))
	count, err = c.ZCard(ctx, key)
	require.NoError(t, err)
	require.Less(t, count, int64(3))
}

func TestCache_Ping_HealthyWhenEitherTierResponds(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Ping(context.Background()))
}
