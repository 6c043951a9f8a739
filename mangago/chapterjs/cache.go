package chapterjs

import (
	"context"
	"sync"
	"time"
)

// DefaultScriptTTL bounds how long a deobfuscated script is reused.
const DefaultScriptTTL = 5 * time.Minute

type scriptCacheEntry struct {
	script string
	expAt  time.Time
}

// ScriptCache maps a chapter script URL to its deobfuscated text.
//
// A single mutex is held across lookup, compute and insert so concurrent
// requests for the same chapter fetch and deobfuscate it once. Expired entries
// are evicted on the next lookup of their key.
type ScriptCache struct {
	mu      sync.Mutex
	entries map[string]scriptCacheEntry
	ttl     time.Duration
	now     func() time.Time

	stats CacheStats
}

// CacheStats counts ScriptCache traffic since creation.
type CacheStats struct {
	Hits        int64
	Misses      int64
	Failures    int64
	ComputeTime time.Duration
}

// AvgComputeTime is the mean duration of successful computes.
func (s CacheStats) AvgComputeTime() time.Duration {
	computed := s.Misses - s.Failures
	if computed <= 0 {
		return 0
	}
	return s.ComputeTime / time.Duration(computed)
}

// NewScriptCache returns an empty cache. A non-positive ttl selects
// DefaultScriptTTL and a nil now selects time.Now.
func NewScriptCache(ttl time.Duration, now func() time.Time) *ScriptCache {
	if ttl <= 0 {
		ttl = DefaultScriptTTL
	}
	if now == nil {
		now = time.Now
	}
	return &ScriptCache{
		entries: make(map[string]scriptCacheEntry),
		ttl:     ttl,
		now:     now,
	}
}

// GetOrCompute returns the cached script for key, calling compute on a miss.
// Errors from compute are returned and not cached.
func (c *ScriptCache) GetOrCompute(key string, compute func() (string, error)) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, ok := c.entries[key]; ok {
		if now.Before(e.expAt) {
			c.stats.Hits++
			return e.script, nil
		}
		delete(c.entries, key)
	}

	c.stats.Misses++
	start := time.Now()
	script, err := compute()
	if err != nil {
		c.stats.Failures++
		return "", err
	}
	c.stats.ComputeTime += time.Since(start)
	c.entries[key] = scriptCacheEntry{script: script, expAt: c.now().Add(c.ttl)}
	return script, nil
}

// Get returns a live entry without computing anything.
func (c *ScriptCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if !c.now().Before(e.expAt) {
		delete(c.entries, key)
		return "", false
	}
	return e.script, true
}

// Purge drops every expired entry.
func (c *ScriptCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expAt) {
			delete(c.entries, k)
		}
	}
}

// Stats returns a snapshot of the hit and miss counters.
func (c *ScriptCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Len reports the number of entries, expired or not.
func (c *ScriptCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// FetchFunc downloads the raw text at url.
type FetchFunc func(ctx context.Context, url string) (string, error)

// Loader fetches chapter scripts and returns them deobfuscated, going
// through a ScriptCache.
type Loader struct {
	Cache *ScriptCache
	Fetch FetchFunc
}

// Load returns the deobfuscated script served at scriptURL.
func (l *Loader) Load(ctx context.Context, scriptURL string) (string, error) {
	return l.Cache.GetOrCompute(scriptURL, func() (string, error) {
		raw, err := l.Fetch(ctx, scriptURL)
		if err != nil {
			return "", err
		}
		return Deobfuscate(raw)
	})
}
