package inventory

import (
	"path/filepath"
	"sync"
)

// Cache keeps parsed device inventories keyed by absolute file path. Entries
// are only dropped by Invalidate; file modification times are not consulted.
// A Cache is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Inventory
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Inventory)}
}

// Get returns the cached inventory for path.
func (c *Cache) Get(path string) (Inventory, bool) {
	key := cacheKey(path)
	c.mu.RLock()
	defer c.mu.RUnlock()
	inv, ok := c.entries[key]
	return inv, ok
}

// Put stores inv for path, replacing any previous entry.
func (c *Cache) Put(path string, inv Inventory) {
	key := cacheKey(path)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string]Inventory)
	}
	c.entries[key] = inv
}

// Invalidate drops the entry for path. It reports whether one existed.
func (c *Cache) Invalidate(path string) bool {
	key := cacheKey(path)
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

// Len returns the number of cached inventories.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func cacheKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
