package keycache

import (
	"sync"
	"time"
)

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu   sync.RWMutex
	data map[string]Entry
	now  func() time.Time
}

// NewMemoryCache creates an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: make(map[string]Entry), now: time.Now}
}

// Get returns the live entry for imageURL.
func (c *MemoryCache) Get(imageURL string) (Entry, bool) {
	c.mu.RLock()
	e, ok := c.data[imageURL]
	c.mu.RUnlock()
	if !ok {
		return Entry{}, false
	}
	if e.expired(c.now()) {
		c.mu.Lock()
		delete(c.data, imageURL)
		c.mu.Unlock()
		return Entry{}, false
	}
	return e, true
}

// Set stores e under imageURL.
func (c *MemoryCache) Set(imageURL string, e Entry) error {
	c.mu.Lock()
	c.data[imageURL] = e
	c.mu.Unlock()
	return nil
}

// Len reports the number of stored entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
