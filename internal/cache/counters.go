package cache

import "context"

// Incr atomically increments key on the fast tier and best-effort mirrors
// the resulting value to the durable tier (durable tier stores the latest
// observed value; no replay, per §4.2).
func (c *Cache) Incr(ctx context.Context, key string) (int64, error) {
	return c.IncrBy(ctx, key, 1)
}

// IncrBy atomically adds delta to key on the fast tier.
func (c *Cache) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	v, err := c.fast.IncrBy(ctx, key, delta)
	if err != nil {
		return 0, err
	}
	c.mirrorCounter(key, v)
	return v, nil
}

// IncrByFloat atomically adds delta to key on the fast tier.
func (c *Cache) IncrByFloat(ctx context.Context, key string, delta float64) (float64, error) {
	v, err := c.fast.IncrByFloat(ctx, key, delta)
	if err != nil {
		return 0, err
	}
	c.mirrorCounterFloat(key, v)
	return v, nil
}

func (c *Cache) mirrorCounter(key string, value int64) {
	go func() {
		_ = c.durable.Set(context.Background(), key, itoa(value), nil)
	}()
}

func (c *Cache) mirrorCounterFloat(key string, value float64) {
	go func() {
		_ = c.durable.Set(context.Background(), key, ftoa(value), nil)
	}()
}
