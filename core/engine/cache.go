// Package engine - Run result cache
// Results are keyed by snapshot identity, the full parameter tuple and the market
// profile fingerprint. Entries live until invalidated unless a TTL is configured.
package engine

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"crossmarket/core/determinism"
	"crossmarket/core/types"
)

var cacheKeys = determinism.NewIDGenerator("crossmarket/run-cache")

// CacheKey derives the cache key of a run
func CacheKey(snapshotID string, params types.Params, profilesFingerprint string) string {
	return string(cacheKeys.Generate(snapshotID, params.Canonical(), profilesFingerprint))
}

// CacheEntry is a cached run with governance metadata
type CacheEntry struct {
	Key          string
	Result       *RunResult
	SnapshotID   string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	AccessCount  int
	LastAccessed time.Time
}

// IsExpired checks if the entry has expired. A zero ExpiresAt never expires.
func (e *CacheEntry) IsExpired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// CachePolicy defines cache behavior
type CachePolicy struct {
	// TTL for entries; zero keeps entries until invalidated
	TTL time.Duration `json:"ttl" yaml:"ttl"`

	// MaxEntries bounds the cache; the least recently used entry is evicted
	MaxEntries int `json:"max_entries" yaml:"max_entries"`
}

// DefaultCachePolicy returns the default policy
func DefaultCachePolicy() CachePolicy {
	return CachePolicy{
		TTL:        0,
		MaxEntries: 64,
	}
}

// Cache memoizes run results and coalesces identical concurrent runs
type Cache struct {
	policy  CachePolicy
	entries map[string]*CacheEntry
	group   singleflight.Group
	now     func() time.Time

	hits   int64
	misses int64

	mu sync.RWMutex
}

// NewCache creates an empty cache
func NewCache(policy CachePolicy) *Cache {
	return &Cache{
		policy:  policy,
		entries: make(map[string]*CacheEntry),
		now:     time.Now,
	}
}

// Get retrieves a result if present and not expired
func (c *Cache) Get(key string) (*RunResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	now := c.now()
	if entry.IsExpired(now) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}
	entry.AccessCount++
	entry.LastAccessed = now
	c.hits++
	return entry.Result, true
}

// Put stores a result
func (c *Cache) Put(key string, result *RunResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	entry := &CacheEntry{
		Key:          key,
		Result:       result,
		SnapshotID:   result.SnapshotID,
		CreatedAt:    now,
		LastAccessed: now,
	}
	if c.policy.TTL > 0 {
		entry.ExpiresAt = now.Add(c.policy.TTL)
	}
	c.entries[key] = entry
	c.evictLocked()
}

// evictLocked drops least recently used entries beyond MaxEntries
func (c *Cache) evictLocked() {
	if c.policy.MaxEntries <= 0 {
		return
	}
	for len(c.entries) > c.policy.MaxEntries {
		var oldest *CacheEntry
		for _, e := range c.entries {
			if oldest == nil || e.LastAccessed.Before(oldest.LastAccessed) ||
				(e.LastAccessed.Equal(oldest.LastAccessed) && e.Key < oldest.Key) {
				oldest = e
			}
		}
		delete(c.entries, oldest.Key)
	}
}

// Invalidate removes an entry
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidateSnapshot removes every entry computed from a snapshot
func (c *Cache) InvalidateSnapshot(snapshotID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for key, entry := range c.entries {
		if entry.SnapshotID == snapshotID {
			delete(c.entries, key)
			count++
		}
	}
	return count
}

// Clear removes all entries
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*CacheEntry)
}

// Do returns the cached result for key or computes it once, sharing the
// computation with concurrent callers of the same key. Errors are not cached.
func (c *Cache) Do(key string, compute func() (*RunResult, error)) (*RunResult, bool, error) {
	if r, ok := c.Get(key); ok {
		return r, true, nil
	}
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if r, ok := c.Get(key); ok {
			return r, nil
		}
		r, err := compute()
		if err != nil {
			return nil, err
		}
		c.Put(key, r)
		return r, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*RunResult), false, nil
}

// CacheStats contains cache statistics
type CacheStats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// Stats returns cache statistics
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{Entries: len(c.entries), Hits: c.hits, Misses: c.misses}
}
