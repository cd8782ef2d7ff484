package domain

import (
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// CatalogSnapshot is the normalized catalog of one owner at a point in time.
type CatalogSnapshot struct {
	Records []ToolRecord `json:"records"`
	ETag    string       `json:"etag"`
	BuiltAt time.Time    `json:"builtAt"`
}

// Clone returns a deep copy of the snapshot.
func (s CatalogSnapshot) Clone() CatalogSnapshot {
	return CatalogSnapshot{
		Records: CloneToolRecords(s.Records),
		ETag:    s.ETag,
		BuiltAt: s.BuiltAt,
	}
}

// CatalogCache provides thread-safe storage for normalized catalogs keyed by owner.
// Entries never expire; callers drop them with Invalidate or Clear.
type CatalogCache struct {
	mu      sync.RWMutex
	entries map[string]CatalogSnapshot
	group   singleflight.Group
}

// NewCatalogCache creates a new empty catalog cache.
func NewCatalogCache() *CatalogCache {
	return &CatalogCache{
		entries: make(map[string]CatalogSnapshot),
	}
}

// Get retrieves a copy of the cached snapshot for an owner.
func (c *CatalogCache) Get(key string) (CatalogSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot, ok := c.entries[key]
	if !ok {
		return CatalogSnapshot{}, false
	}
	return snapshot.Clone(), true
}

// Set stores a snapshot for an owner.
func (c *CatalogCache) Set(key string, snapshot CatalogSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Copy to avoid external mutations
	c.entries[key] = snapshot.Clone()
}

// GetOrBuild returns the cached snapshot for key, building and storing it when absent.
// Concurrent callers for the same key share a single build. The boolean reports a cache hit.
func (c *CatalogCache) GetOrBuild(key string, build func() (CatalogSnapshot, error)) (CatalogSnapshot, bool, error) {
	if snapshot, ok := c.Get(key); ok {
		return snapshot, true, nil
	}
	value, err, _ := c.group.Do(key, func() (any, error) {
		if snapshot, ok := c.Get(key); ok {
			return snapshot, nil
		}
		snapshot, err := build()
		if err != nil {
			return CatalogSnapshot{}, err
		}
		c.Set(key, snapshot)
		return snapshot, nil
	})
	if err != nil {
		return CatalogSnapshot{}, false, err
	}
	return value.(CatalogSnapshot).Clone(), false, nil
}

// Invalidate removes the cached snapshot for a single owner.
func (c *CatalogCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes all cached snapshots.
func (c *CatalogCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]CatalogSnapshot)
}

// Len returns the number of cached owners.
func (c *CatalogCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Keys returns the cached owner keys in sorted order.
func (c *CatalogCache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
