package answer

import (
	"sync"
	"time"
)

// Cache defaults.
const (
	DefaultCacheTTL     = time.Hour
	DefaultCacheEntries = 100
)

// cachedEntry pairs a finished result with its insertion time.
type cachedEntry struct {
	result    Result
	timestamp time.Time
}

// ResponseCache is a bounded store of completed runs keyed by
// normalized query. Expiry is lazy: stale entries are deleted on
// lookup, not by a background sweeper. When an insert would exceed the
// bound, the single oldest entry by insertion time is evicted first.
type ResponseCache struct {
	mu      sync.Mutex
	entries map[string]cachedEntry
	maxSize int
	now     func() time.Time
}

// NewResponseCache creates a cache bounded to maxSize entries.
func NewResponseCache(maxSize int) *ResponseCache {
	if maxSize <= 0 {
		maxSize = DefaultCacheEntries
	}
	return &ResponseCache{
		entries: make(map[string]cachedEntry),
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Get returns a copy of the cached result for query if one exists and
// is younger than ttl. A stale entry is deleted on the spot and
// reported as a miss; a fresh read has no other side effect.
func (c *ResponseCache) Get(query string, ttl time.Duration) (*Result, bool) {
	key := CacheKey(query)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.timestamp) >= ttl {
		delete(c.entries, key)
		return nil, false
	}
	result := entry.result
	return &result, true
}

// Set stores a completed result under the query's normalized key,
// evicting the oldest entry when the cache is full.
func (c *ResponseCache) Set(query string, result Result) {
	key := CacheKey(query)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[key] = cachedEntry{result: result, timestamp: c.now()}
}

// Clear drops every entry.
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cachedEntry)
}

// Size reports the number of stored entries, including any that have
// expired but not yet been looked up.
func (c *ResponseCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictOldest removes the entry with the earliest insertion time.
// Caller holds c.mu.
func (c *ResponseCache) evictOldest() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for key, entry := range c.entries {
		if first || entry.timestamp.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.timestamp
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}
