// Package cache is the Cache Layer (C3): a two-tier cache with an
// in-process LRU tier (L1) and an external key/value store tier (L2),
// file-scoped invalidation, and the explicit enum-safe codec in codec.go.
// Grounded on the teacher's internal/tools/web/cache.go (LRU + atomic
// stats, L1) and internal/redis/redis.go (L2), with the hierarchical key
// scheme and soft-failure-on-L2 contract from spec §4.3.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"dev.helix.code/internal/logging"
)

// L2Store is the subset of the Redis client the cache layer needs. Kept as
// an interface so tests can substitute an in-memory fake instead of a live
// Redis connection.
type L2Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, pattern string) ([]string, error)
	IsEnabled() bool
}

type l1Entry struct {
	value     []byte
	expiresAt time.Time
}

// Cache is the two-tier cache. L1 is always present; L2 is optional
// (nil-safe — a nil or disabled L2Store degrades every L2 touch point to a
// no-op, matching the "operations degrade to L1-only" contract).
type Cache struct {
	l1       *lru.Cache[string, l1Entry]
	l2       L2Store
	log      *logging.Logger
	stats    Stats
	mu       sync.Mutex // serializes the degraded-once-per-window warning
	degraded bool
}

// New builds a Cache. l1Entries bounds L1 by entry count (spec's "bounded
// by entry count with LRU eviction"); l2 may be nil to run L1-only.
func New(l1Entries int, l2 L2Store, log *logging.Logger) (*Cache, error) {
	c := &Cache{l2: l2, log: log}
	l1, err := lru.NewWithEvict[string, l1Entry](l1Entries, func(string, l1Entry) {
		c.stats.L1.Evictions.Add(1)
	})
	if err != nil {
		return nil, fmt.Errorf("cache: creating L1: %w", err)
	}
	c.l1 = l1
	return c, nil
}

// Key scheme helpers (spec §4.3): hierarchical, colon-delimited, always
// namespace-prefixed.

func FileNodesKey(filePath, contentHash string) string {
	return fmt.Sprintf("file:nodes:%s:%s", filePath, contentHash)
}

func FileRelsKey(filePath, contentHash string) string {
	return fmt.Sprintf("file:rels:%s:%s", filePath, contentHash)
}

func LangExtKey(extension string) string { return "lang:ext:" + extension }

func LangNameKey(tag string) string { return "lang:name:" + tag }

func QueryKey(op, argHash string) string { return fmt.Sprintf("query:%s:%s", op, argHash) }

// Get checks L1, then L2; on an L2 hit it populates L1 with ttl.
func (c *Cache) Get(ctx context.Context, key string, ttl time.Duration) ([]byte, bool) {
	if v, ok := c.l1Get(key); ok {
		c.stats.L1.Hits.Add(1)
		return v, true
	}
	c.stats.L1.Misses.Add(1)

	if c.l2 == nil || !c.l2.IsEnabled() {
		return nil, false
	}
	v, err := c.l2.Get(ctx, key)
	if err != nil {
		c.stats.L2.Misses.Add(1)
		if err.Error() != "redis: nil" {
			c.noteDegraded(err)
		}
		return nil, false
	}
	c.stats.L2.Hits.Add(1)
	c.l1Set(key, v, ttl)
	return v, true
}

// Set writes both tiers. The L2 write is fire-and-forget with a small
// bounded retry; a persistent L2 failure is a soft failure (cache-degraded)
// and never blocks or errors out to the caller.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	c.l1Set(key, value, ttl)

	if c.l2 == nil || !c.l2.IsEnabled() {
		return
	}
	go func() {
		const maxAttempts = 3
		var err error
		for attempt := 0; attempt < maxAttempts; attempt++ {
			if err = c.l2.Set(context.Background(), key, value, ttl); err == nil {
				return
			}
			time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
		}
		c.noteDegraded(err)
	}()
}

// InvalidateFile removes every key prefixed `file:*:<file_path>:*` from
// both tiers, the one operation guaranteed to remove from both tiers before
// returning (spec §4.3 "Consistency").
func (c *Cache) InvalidateFile(ctx context.Context, filePath string) {
	prefixes := []string{
		fmt.Sprintf("file:nodes:%s:", filePath),
		fmt.Sprintf("file:rels:%s:", filePath),
	}
	c.invalidateMatchingL1(func(key string) bool {
		for _, p := range prefixes {
			if strings.HasPrefix(key, p) {
				return true
			}
		}
		return false
	})

	if c.l2 == nil || !c.l2.IsEnabled() {
		return
	}
	for _, p := range prefixes {
		keys, err := c.l2.Keys(ctx, p+"*")
		if err != nil {
			c.noteDegraded(err)
			continue
		}
		if len(keys) > 0 {
			if err := c.l2.Del(ctx, keys...); err != nil {
				c.noteDegraded(err)
			}
		}
	}
}

// InvalidatePrefix removes every key starting with prefix from both tiers.
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) {
	c.invalidateMatchingL1(func(key string) bool { return strings.HasPrefix(key, prefix) })

	if c.l2 == nil || !c.l2.IsEnabled() {
		return
	}
	keys, err := c.l2.Keys(ctx, prefix+"*")
	if err != nil {
		c.noteDegraded(err)
		return
	}
	if len(keys) > 0 {
		if err := c.l2.Del(ctx, keys...); err != nil {
			c.noteDegraded(err)
		}
	}
}

// Stats returns a snapshot of both tiers' hit/miss/eviction counters.
func (c *Cache) Stats() Stats {
	return Stats{L1: c.stats.L1.snapshot(), L2: c.stats.L2.snapshot()}
}

func (c *Cache) l1Get(key string) ([]byte, bool) {
	entry, ok := c.l1.Get(key)
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		c.l1.Remove(key)
		return nil, false
	}
	return entry.value, true
}

func (c *Cache) l1Set(key string, value []byte, ttl time.Duration) {
	c.l1.Add(key, l1Entry{value: value, expiresAt: time.Now().Add(ttl)})
}

func (c *Cache) invalidateMatchingL1(match func(string) bool) {
	for _, key := range c.l1.Keys() {
		if match(key) {
			c.l1.Remove(key)
		}
	}
}

// noteDegraded logs cache-degraded at WARN at most once per window; a
// background goroutine clears the flag after the window elapses.
func (c *Cache) noteDegraded(err error) {
	c.mu.Lock()
	already := c.degraded
	c.degraded = true
	c.mu.Unlock()

	if already {
		return
	}
	if c.log != nil {
		c.log.Warn("cache-degraded: L2 unreachable, continuing on L1 only: %v", err)
	}
	go func() {
		time.Sleep(30 * time.Second)
		c.mu.Lock()
		c.degraded = false
		c.mu.Unlock()
	}()
}
