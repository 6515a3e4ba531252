// Package cache provides time-bounded key/value stores used to avoid
// repeating aggregation work within a short window.
package cache

import (
	"sync"
	"time"
)

// Store is the contract shared by the in-memory and Redis-backed caches.
// None of its operations report errors: a cache that cannot answer behaves
// like a cold cache.
type Store[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V, ttl time.Duration)
	Has(key string) bool
	Clear(keys ...string)
}

// entry holds a cached value together with the moment it was stored and
// how long it stays readable.
type entry[V any] struct {
	value    V
	storedAt time.Time
	ttl      time.Duration
}

func (e entry[V]) stale(now time.Time) bool {
	return now.Sub(e.storedAt) > e.ttl
}

// Cache is a concurrency-safe in-memory Store with lazy expiration. Stale
// entries are removed when they are next read; there is no background sweep
// and no bound on the number of entries.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	nowFunc func() time.Time
}

// Option configures a Cache.
type Option[V any] func(*Cache[V])

// WithClock replaces time.Now as the cache's time source.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *Cache[V]) { c.nowFunc = now }
}

// New creates an empty Cache.
func New[V any](opts ...Option[V]) *Cache[V] {
	c := &Cache[V]{
		entries: make(map[string]entry[V]),
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set stores or overwrites the value for key.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, storedAt: c.nowFunc(), ttl: ttl}
}

// Get returns the value for key while it is fresh. A stale entry is deleted
// and reported as a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookup(key)
}

// Has reports whether a fresh entry exists for key, evicting it if stale.
func (c *Cache[V]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.lookup(key)
	return ok
}

// Clear removes the given keys, or every entry when called without keys.
func (c *Cache[V]) Clear(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(keys) == 0 {
		c.entries = make(map[string]entry[V])
		return
	}
	for _, k := range keys {
		delete(c.entries, k)
	}
}

// Len returns the number of stored entries, including stale ones that have
// not been read since they expired.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// lookup must be called with mu held.
func (c *Cache[V]) lookup(key string) (V, bool) {
	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if e.stale(c.nowFunc()) {
		delete(c.entries, key)
		return zero, false
	}
	return e.value, true
}
