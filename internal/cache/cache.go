// Package cache memoizes query results within one process. Entries are
// keyed by (query name, canonical parameters, freshness token); expiry is
// TTL-based and checked lazily on Get. Concurrent sub-queries may race to
// populate the same key; last writer wins, which is safe because values
// for an identical key are equal.
package cache

import (
	"sync"
	"time"

	"github.com/cinedex-io/cinedex/internal/domain"
)

// Key identifies one cached result set.
type Key struct {
	Query  string
	Params string
	Token  string
}

type entry struct {
	result    domain.ResultSet
	createdAt time.Time
}

// Stats tracks cache effectiveness.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Entries   int
}

// Cache is a thread-safe TTL result cache.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]entry
	ttl     time.Duration
	now     func() time.Time

	hits      int64
	misses    int64
	evictions int64
}

// New creates a cache with the given TTL. A zero or negative TTL disables
// caching entirely: Get always misses and Put is a no-op.
func New(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[Key]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the live entry for a key. Expired entries are evicted on
// the spot and reported as misses.
func (c *Cache) Get(key Key) (domain.ResultSet, bool) {
	if c.ttl <= 0 {
		return domain.ResultSet{}, false
	}

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		c.mu.Lock()
		c.misses++
		c.mu.Unlock()
		return domain.ResultSet{}, false
	}

	if c.now().Sub(e.createdAt) > c.ttl {
		c.mu.Lock()
		// Re-check: a fresh value may have been written since the RLock.
		if cur, still := c.entries[key]; still && cur.createdAt.Equal(e.createdAt) {
			delete(c.entries, key)
			c.evictions++
		}
		c.misses++
		c.mu.Unlock()
		return domain.ResultSet{}, false
	}

	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
	return e.result, true
}

// Put stores a result set under a key with the current timestamp.
func (c *Cache) Put(key Key, result domain.ResultSet) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = entry{result: result, createdAt: c.now()}
	c.mu.Unlock()
}

// InvalidateAll drops every entry. Called when the freshness token
// changes, i.e. a new data-refresh cycle begins.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.evictions += int64(len(c.entries))
	c.entries = make(map[Key]entry)
	c.mu.Unlock()
}

// GetStats returns a snapshot of cache counters.
func (c *Cache) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Entries:   len(c.entries),
	}
}

// SetNowFunc overrides the clock, for tests.
func (c *Cache) SetNowFunc(now func() time.Time) { c.now = now }
