package datasets

import (
	"strings"
	"sync"
	"time"
)

type cacheEntry struct {
	value   any
	expires time.Time
}

// Cache is a small TTL cache keyed by string. Keys are hierarchical
// ("datasets/<id>/items?...") so a whole subtree can be invalidated by prefix.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewCache creates a cache whose entries live for ttl. ttl <= 0 keeps entries
// until invalidated.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the value stored under key.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.expires.IsZero() && c.now().After(e.expires) {
		c.Delete(key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key.
func (c *Cache) Set(key string, value any) {
	e := cacheEntry{value: value}
	if c.ttl > 0 {
		e.expires = c.now().Add(c.ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidatePrefix removes every key starting with prefix and returns how
// many were removed.
func (c *Cache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// InvalidateItems drops every cached item listing of a dataset.
func (c *Cache) InvalidateItems(datasetID string) int {
	return c.InvalidatePrefix(itemsPrefix(datasetID))
}

// Snapshot copies every live entry whose key starts with prefix.
func (c *Cache) Snapshot(prefix string) map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := c.now()
	out := make(map[string]any)
	for k, e := range c.entries {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if !e.expires.IsZero() && now.After(e.expires) {
			continue
		}
		out[k] = e.value
	}
	return out
}

// Restore writes back entries captured by Snapshot.
func (c *Cache) Restore(snapshot map[string]any) {
	for k, v := range snapshot {
		c.Set(k, v)
	}
}

// Len returns the number of entries, including expired ones not yet evicted.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

const datasetListPrefix = "datasets?"

func datasetListKey(projectID, query string) string {
	return datasetListPrefix + "project=" + projectID + "&" + query
}

func datasetKey(datasetID string) string {
	return "datasets/" + datasetID
}

func itemsPrefix(datasetID string) string {
	return "datasets/" + datasetID + "/items?"
}

func itemsKey(datasetID, query string) string {
	return itemsPrefix(datasetID) + query
}
