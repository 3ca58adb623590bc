// Package cache provides a session-scoped TTL cache for derived views
// (limit snapshots, forecasts, balance results). It is an explicit
// service instance handed to the components that need it, never a
// process-wide singleton.
package cache

import (
	"strings"
	"sync"
	"time"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is a bounded-TTL in-memory cache, safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	nowFn   func() time.Time
}

// New creates a cache whose entries expire after ttl.
func New(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		nowFn:   time.Now,
	}
}

// NewWithNow creates a cache with an injected time source. Used in tests.
func NewWithNow(ttl time.Duration, nowFn func() time.Time) *Cache {
	c := New(ttl)
	c.nowFn = nowFn
	return c
}

// Key builds a cache key from a user ID and further parts.
func Key(userID string, parts ...string) string {
	return userID + ":" + strings.Join(parts, ":")
}

// Get returns the cached value for key, or ok=false when absent or
// past its TTL.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists || c.nowFn().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// Set stores value under key with the cache's TTL.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: c.nowFn().Add(c.ttl)}
}

// Invalidate drops a single key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidateUser drops every entry belonging to the user. Called
// synchronously whenever the user's underlying data changes.
func (c *Cache) InvalidateUser(userID string) {
	prefix := userID + ":"
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
