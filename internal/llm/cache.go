package llm

import (
	"sync"
	"time"
)

// cacheEntry represents a cached batch response.
type cacheEntry struct {
	expiry   time.Time
	response BatchResponse
}

// batchCache provides thread-safe caching for batch responses, keyed on the
// request contents.
type batchCache struct {
	entries map[string]cacheEntry
	stopCh  chan struct{}
	ttl     time.Duration
	mu      sync.RWMutex
}

// newBatchCache creates a new cache with the specified TTL.
func newBatchCache(ttl time.Duration) *batchCache {
	if ttl == 0 {
		ttl = 15 * time.Minute // Default TTL
	}

	cache := &batchCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	// Start cleanup goroutine
	go cache.cleanup()

	return cache
}

// get retrieves a response from the cache if it exists and hasn't expired.
func (c *batchCache) get(key string) (BatchResponse, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return BatchResponse{}, false
	}

	if time.Now().After(entry.expiry) {
		return BatchResponse{}, false
	}

	return entry.response, true
}

// set stores a response in the cache.
func (c *batchCache) set(key string, response BatchResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		response: response,
		expiry:   time.Now().Add(c.ttl),
	}
}

// cleanup periodically removes expired entries.
func (c *batchCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// size returns the number of entries in the cache.
func (c *batchCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup goroutine.
func (c *batchCache) Close() {
	close(c.stopCh)
}
