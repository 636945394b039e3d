package service

import (
	"context"
	"sync"
	"time"
)

// cacheGenerations counts invalidations per cache key in this process. A
// read-through fill compares the count before and after it writes, so a value
// computed before a concurrent award committed never outlives that award.
type cacheGenerations struct {
	mu    sync.Mutex
	byKey map[string]uint64
}

func newCacheGenerations() *cacheGenerations {
	return &cacheGenerations{byKey: map[string]uint64{}}
}

func (g *cacheGenerations) current(key string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.byKey[key]
}

func (g *cacheGenerations) bump(keys ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, key := range keys {
		g.byKey[key]++
	}
}

// invalidateCached bumps the generation of every key before dropping it.
func (c *Core) invalidateCached(ctx context.Context, keys ...string) error {
	c.generations.bump(keys...)
	return c.cache.Invalidate(ctx, keys...)
}

// fillCache stores value under key unless the key was invalidated after
// generation was read. The check runs after the write: any invalidation that
// raced ahead of the write is then seen and the entry is dropped again.
func (c *Core) fillCache(ctx context.Context, key string, generation uint64, value interface{}, ttl time.Duration) error {
	if c.generations.current(key) != generation {
		return nil
	}
	if err := c.cache.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	if c.generations.current(key) != generation {
		c.logger.Debug().Str("key", key).Msg("cache entry went stale while filling, dropping it")
		return c.cache.Invalidate(ctx, key)
	}
	return nil
}
