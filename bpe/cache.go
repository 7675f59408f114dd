package bpe

import "sync"

type cacheEntry struct {
	pieces []string
	counts []int
}

// Cache memoizes merge results keyed by the projected pre-token string. All
// lock acquisition is non-blocking: under contention both Lookup and Store
// give up immediately and the caller recomputes, which is always correct.
// The latency of a recompute is bounded while a blocked lock is not.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewCache returns an empty merge cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Lookup returns the memoized pieces and character counts for key. A false
// hit means either the key is absent or the read lock was contended.
func (c *Cache) Lookup(key string) (pieces []string, counts []int, hit bool) {
	if !c.mu.TryRLock() {
		return nil, nil, false
	}
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, nil, false
	}
	return entry.pieces, entry.counts, true
}

// Store memoizes a merge result. It is a no-op when the write lock is
// contended.
func (c *Cache) Store(key string, pieces []string, counts []int) {
	if !c.mu.TryLock() {
		return
	}
	c.entries[key] = cacheEntry{pieces: pieces, counts: counts}
	c.mu.Unlock()
}

// Len returns the number of memoized entries, or -1 if the lock is contended.
func (c *Cache) Len() int {
	if !c.mu.TryRLock() {
		return -1
	}
	defer c.mu.RUnlock()
	return len(c.entries)
}
