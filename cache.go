package main

import (
	"crypto/sha256"
	"encoding/hex"
	"log"
	"sync"
	"time"
)

type cacheEntry struct {
	value    any
	storedAt time.Time
}

// ResponseCache is a TTL-bounded, content-addressed store shared by all
// pipeline operations. Eviction is staleness-driven: when the entry count
// exceeds maxEntries, a sweep drops everything older than the TTL. There is
// no LRU ordering and no persistence across restarts.
type ResponseCache struct {
	mu         sync.Mutex
	entries    map[string]cacheEntry
	ttl        time.Duration
	maxEntries int
	prefixLen  int
	now        func() time.Time

	hits   int64
	misses int64
}

func NewResponseCache(ttl time.Duration, maxEntries, prefixLen int) *ResponseCache {
	return &ResponseCache{
		entries:    make(map[string]cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		prefixLen:  prefixLen,
		now:        time.Now,
	}
}

// Key hashes only the first prefixLen bytes of content: articles run to
// megabytes and hashing the whole text per lookup is not worth it. Two
// inputs that differ only beyond the prefix therefore share an entry. That
// collision is a deliberate approximation, inherited from the original
// behavior, not a bug to fix here.
func (c *ResponseCache) Key(taskType, content, auxKey string) string {
	return taskType + ":" + c.PrefixDigest(content) + ":" + auxKey
}

// PrefixDigest hashes the same prefix window Key uses. Callers that key
// on several contents at once fold one digest per content into auxKey.
func (c *ResponseCache) PrefixDigest(content string) string {
	prefix := content
	if len(prefix) > c.prefixLen {
		prefix = prefix[:c.prefixLen]
	}
	sum := sha256.Sum256([]byte(prefix))
	return hex.EncodeToString(sum[:])
}

func (c *ResponseCache) Get(taskType, content, auxKey string) (any, bool) {
	key := c.Key(taskType, content, auxKey)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if c.now().Sub(entry.storedAt) > c.ttl {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}
	c.hits++
	return entry.value, true
}

func (c *ResponseCache) Put(taskType, content, auxKey string, value any) {
	key := c.Key(taskType, content, auxKey)

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		removed := c.sweepLocked()
		log.Printf("cache sweep on overflow removed=%d live=%d", removed, len(c.entries))
	}
	c.entries[key] = cacheEntry{value: value, storedAt: c.now()}
}

// Sweep removes all stale entries and reports how many were dropped.
func (c *ResponseCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked()
}

func (c *ResponseCache) sweepLocked() int {
	cutoff := c.now().Add(-c.ttl)
	removed := 0
	for key, entry := range c.entries {
		if entry.storedAt.Before(cutoff) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *ResponseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns cumulative hit/miss counters for log reporting.
func (c *ResponseCache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
