package cache

import (
	"context"
	"errors"
	"time"
)

// LayeredCache reads through an in-memory L1 before hitting Redis L2.
// Writes go to both layers; L2 failures surface, L1 never fails.
type LayeredCache struct {
	l1 *MemoryCache
	l2 *RedisCache
}

func NewLayeredCache(l1 *MemoryCache, l2 *RedisCache) *LayeredCache {
	return &LayeredCache{l1: l1, l2: l2}
}

func (c *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	_ = c.l1.Set(ctx, key, value, expiration)
	return c.l2.Set(ctx, key, value, expiration)
}

func (c *LayeredCache) Get(ctx context.Context, key string) (interface{}, error) {
	if v, err := c.l1.Get(ctx, key); err == nil {
		return v, nil
	}
	v, err := c.l2.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (c *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = c.l1.Delete(ctx, keys...)
	return c.l2.Delete(ctx, keys...)
}

func (c *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	if ok, _ := c.l1.Exists(ctx, keys...); ok {
		return true, nil
	}
	return c.l2.Exists(ctx, keys...)
}

func (c *LayeredCache) Close() error {
	err1 := c.l1.Close()
	err2 := c.l2.Close()
	return errors.Join(err1, err2)
}
