// Package cache provides the in-process TTL caches shared across requests.
//
// Each TTL instance owns its own lock. Entries are never evicted proactively;
// staleness is checked on read and a recomputed value overwrites the slot.
// The caches are local to one process.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// TTL is a mutex-guarded key/value store whose entries are valid while
// now - storedAt <= ttl.
type TTL[V any] struct {
	mu    sync.Mutex
	items map[string]entry[V]
	ttl   time.Duration
	now   func() time.Time
}

// NewTTL creates a cache with the provided ttl
func NewTTL[V any](ttl time.Duration) *TTL[V] {
	return &TTL[V]{
		items: make(map[string]entry[V]),
		ttl:   ttl,
		now:   time.Now,
	}
}

// WithClock replaces the time source, used by tests
func (c *TTL[V]) WithClock(now func() time.Time) *TTL[V] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
	return c
}

// Get returns the value for key when present and still within the ttl window
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if c.now().Sub(e.storedAt) > c.ttl {
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, stamped with the current time
func (c *TTL[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry[V]{value: value, storedAt: c.now()}
}

// Len returns the number of slots, including stale ones
func (c *TTL[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
