package answer

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock hands out strictly increasing times under test control.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestCache(maxSize int) (*ResponseCache, *fakeClock) {
	cache := NewResponseCache(maxSize)
	clock := newFakeClock()
	cache.now = clock.Now
	return cache, clock
}

// ============================================================================
// TTL expiry
// ============================================================================

func TestResponseCache_HitWithinTTL(t *testing.T) {
	cache, clock := newTestCache(10)

	// Given an entry inserted at T
	cache.Set("how to install", Result{Answer: "run npm install"})

	// When looking it up just before T+ttl
	clock.Advance(time.Hour - time.Second)
	got, ok := cache.Get("how to install", time.Hour)

	// Then it is still served
	require.True(t, ok)
	assert.Equal(t, "run npm install", got.Answer)
}

func TestResponseCache_ExpiresAtTTL(t *testing.T) {
	cache, clock := newTestCache(10)
	cache.Set("how to install", Result{Answer: "run npm install"})

	// When looking it up exactly at T+ttl
	clock.Advance(time.Hour)
	_, ok := cache.Get("how to install", time.Hour)

	// Then the entry is gone, lazily deleted
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Size())
}

func TestResponseCache_NormalizedKeysCollide(t *testing.T) {
	cache, _ := newTestCache(10)

	// Given an entry stored under one phrasing
	cache.Set("React integrate", Result{Answer: "use the SDK"})

	// Then a reworded lookup hits the same entry
	got, ok := cache.Get("integrate, react!", time.Hour)
	require.True(t, ok)
	assert.Equal(t, "use the SDK", got.Answer)
}

func TestResponseCache_GetReturnsCopy(t *testing.T) {
	cache, _ := newTestCache(10)
	cache.Set("q", Result{Answer: "original"})

	// When mutating a returned result
	got, ok := cache.Get("q", time.Hour)
	require.True(t, ok)
	got.Answer = "mutated"
	got.FromCache = true

	// Then the stored entry is unaffected
	again, ok := cache.Get("q", time.Hour)
	require.True(t, ok)
	assert.Equal(t, "original", again.Answer)
	assert.False(t, again.FromCache)
}

// ============================================================================
// Bounded size and eviction
// ============================================================================

func TestResponseCache_EvictsSingleOldest(t *testing.T) {
	cache, clock := newTestCache(3)

	// Given a full cache with distinct insertion times
	for i := 0; i < 3; i++ {
		cache.Set(fmt.Sprintf("query number %d", i), Result{Answer: fmt.Sprintf("a%d", i)})
		clock.Advance(time.Second)
	}
	require.Equal(t, 3, cache.Size())

	// When inserting one more
	cache.Set("query number 3", Result{Answer: "a3"})

	// Then only the oldest entry was evicted
	assert.Equal(t, 3, cache.Size())
	_, ok := cache.Get("query number 0", time.Hour)
	assert.False(t, ok, "oldest entry should be evicted")
	for i := 1; i <= 3; i++ {
		_, ok := cache.Get(fmt.Sprintf("query number %d", i), time.Hour)
		assert.True(t, ok, "entry %d should survive", i)
	}
}

func TestResponseCache_OverwriteDoesNotEvict(t *testing.T) {
	cache, clock := newTestCache(2)
	cache.Set("first query", Result{Answer: "a"})
	clock.Advance(time.Second)
	cache.Set("second query", Result{Answer: "b"})
	clock.Advance(time.Second)

	// When re-setting an existing key at capacity
	cache.Set("first query", Result{Answer: "a2"})

	// Then nothing is evicted and the value is replaced
	assert.Equal(t, 2, cache.Size())
	got, ok := cache.Get("first query", time.Hour)
	require.True(t, ok)
	assert.Equal(t, "a2", got.Answer)
	_, ok = cache.Get("second query", time.Hour)
	assert.True(t, ok)
}

func TestResponseCache_ClearAndSize(t *testing.T) {
	cache, _ := newTestCache(10)
	cache.Set("one thing", Result{})
	cache.Set("another thing", Result{})
	require.Equal(t, 2, cache.Size())

	cache.Clear()

	assert.Equal(t, 0, cache.Size())
	_, ok := cache.Get("one thing", time.Hour)
	assert.False(t, ok)
}

func TestNewResponseCache_DefaultBound(t *testing.T) {
	cache := NewResponseCache(0)
	assert.Equal(t, DefaultCacheEntries, cache.maxSize)
}
