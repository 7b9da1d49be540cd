// Package cache provides a generic in-memory cache with per-entry TTL.
// Entries are invalidated by age only.
package cache

import (
	"context"
	"sync"
	"time"
)

type item[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a concurrency-safe TTL cache.
type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]item[V]
	now   func() time.Time

	stop chan struct{}
	once sync.Once
}

// New creates a cache and starts a janitor that evicts expired entries every
// cleanupInterval. A zero interval disables the janitor.
func New[K comparable, V any](cleanupInterval time.Duration) *Cache[K, V] {
	c := &Cache[K, V]{
		items: make(map[K]item[V]),
		now:   time.Now,
		stop:  make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go c.janitor(cleanupInterval)
	}

	return c
}

// WithClock overrides the time source. Intended for tests.
func (c *Cache[K, V]) WithClock(now func() time.Time) *Cache[K, V] {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
	return c
}

// Get returns the value for key if present and not expired.
func (c *Cache[K, V]) Get(_ context.Context, key K) (V, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	now := c.now()
	c.mu.RUnlock()

	if !ok || !now.Before(it.expiresAt) {
		var zero V
		return zero, false
	}
	return it.value, true
}

// Set stores value under key for ttl.
func (c *Cache[K, V]) Set(_ context.Context, key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = item[V]{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
}

// Delete removes key.
func (c *Cache[K, V]) Delete(_ context.Context, key K) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired or not.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the janitor.
func (c *Cache[K, V]) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Cache[K, V]) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *Cache[K, V]) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, it := range c.items {
		if !now.Before(it.expiresAt) {
			delete(c.items, k)
		}
	}
}
