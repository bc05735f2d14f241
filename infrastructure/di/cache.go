package di

import (
	"context"
	"sync"
	"time"

	"astraea-backend/application/ports"
	"astraea-backend/pkg/observability"
)

// MemoryCache is the default read-model cache. It backs both the query bus
// caching middleware and the analysis read path when no external cache is
// configured.
type MemoryCache struct {
	mu       sync.RWMutex
	entries  map[string]cacheEntry
	stop     chan struct{}
	stopOnce sync.Once
}

type cacheEntry struct {
	value     interface{}
	expiresAt time.Time
}

// NewMemoryCache creates the cache and starts its expiry sweeper.
func NewMemoryCache() *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]cacheEntry),
		stop:    make(chan struct{}),
	}
	go c.sweep()
	return c
}

// Get returns the cached value when present and not expired.
func (c *MemoryCache) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.value, true
}

// Set stores a value with a TTL in seconds. A non-positive TTL keeps the
// entry until Delete or Clear.
func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}, ttl int) error {
	entry := cacheEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(time.Duration(ttl) * time.Second)
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return nil
}

// Delete removes a single entry.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Clear drops every entry.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
	return nil
}

// Close stops the expiry sweeper.
func (c *MemoryCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *MemoryCache) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, entry := range c.entries {
				if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// instrumentedCache counts hits and misses on the way through to the
// underlying cache.
type instrumentedCache struct {
	inner   ports.Cache
	metrics *observability.Collector
}

func newInstrumentedCache(inner ports.Cache, metrics *observability.Collector) ports.Cache {
	if metrics == nil {
		return inner
	}
	return &instrumentedCache{inner: inner, metrics: metrics}
}

func (c *instrumentedCache) Get(ctx context.Context, key string) (interface{}, bool) {
	value, ok := c.inner.Get(ctx, key)
	if ok {
		c.metrics.CacheHits.Inc()
	} else {
		c.metrics.CacheMisses.Inc()
	}
	return value, ok
}

func (c *instrumentedCache) Set(ctx context.Context, key string, value interface{}, ttl int) error {
	return c.inner.Set(ctx, key, value, ttl)
}

func (c *instrumentedCache) Delete(ctx context.Context, key string) error {
	return c.inner.Delete(ctx, key)
}

func (c *instrumentedCache) Clear(ctx context.Context) error {
	return c.inner.Clear(ctx)
}
