// Package cache provides a small bounded in-memory TTL cache.
//
// It memoizes pipeline results and rendered images so repeated requests do
// not re-spend model calls or render fetches. The cache is an injected
// dependency, never ambient global state: callers construct it with a size
// and TTL and pass it to whoever needs it, so tests can substitute a fresh
// or absent cache.
//
// Staleness is an acceptable outcome here, not a correctness violation —
// Get/Set are atomic with respect to eviction bookkeeping, but there is no
// cross-request coordination beyond the mutex.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// sweepInterval bounds how often expired entries are swept inline.
// Sweeping happens during normal Get/Set calls; there is no background
// goroutine to manage.
const sweepInterval = time.Minute

type entry[V any] struct {
	value   V
	addedAt time.Time
}

// Cache is a bounded map with TTL eviction, safe for concurrent use.
type Cache[V any] struct {
	mu         sync.Mutex
	entries    map[string]entry[V]
	maxEntries int
	ttl        time.Duration
	lastSweep  time.Time
	now        func() time.Time // injectable for tests
}

// New creates a cache holding at most maxEntries values for at most ttl.
func New[V any](maxEntries int, ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		entries:    make(map[string]entry[V]),
		maxEntries: maxEntries,
		ttl:        ttl,
		lastSweep:  time.Now(),
		now:        time.Now,
	}
}

// Get returns the cached value for key, if present and unexpired.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.sweepLocked(now)

	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if now.Sub(e.addedAt) > c.ttl {
		delete(c.entries, key)
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, evicting the oldest entry if the cache is at
// capacity.
func (c *Cache[V]) Set(key string, value V) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.sweepLocked(now)

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = entry[V]{value: value, addedAt: now}
}

// Len returns the current number of entries (expired included until swept).
func (c *Cache[V]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// sweepLocked drops expired entries at most once per sweepInterval.
func (c *Cache[V]) sweepLocked(now time.Time) {
	if now.Sub(c.lastSweep) < sweepInterval {
		return
	}
	for k, e := range c.entries {
		if now.Sub(e.addedAt) > c.ttl {
			delete(c.entries, k)
		}
	}
	c.lastSweep = now
}

// evictOldestLocked removes the entry with the oldest insertion time.
// Linear scan — the cache is small and bounded.
func (c *Cache[V]) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for k, e := range c.entries {
		if first || e.addedAt.Before(oldestAt) {
			oldestKey, oldestAt = k, e.addedAt
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}

// Key builds a stable cache key from its parts: each part is trimmed,
// joined with a separator that cannot occur in trimmed text boundaries,
// and hashed.
func Key(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(strings.TrimSpace(p)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// GenerationKey keys a generation result by the normalized request text and
// diagram kind.
func GenerationKey(description, kind string) string {
	return Key(strings.ToLower(description), kind)
}

// RenderKey keys a rendered image by diagram text and output format.
func RenderKey(diagramText, format string) string {
	return Key(diagramText, format)
}
