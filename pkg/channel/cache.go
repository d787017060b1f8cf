package channel

import "sync"

// Cache memoizes Wildnames lookups. Entries are populated on first fetch
// and removed when the channels that reference them are eliminated.
// Safe for concurrent readers and infrequent writers.
type Cache struct {
	mu      sync.RWMutex
	entries map[string][]string
}

// NewCache creates a cache sized for the expected number of live channels.
func NewCache(capacity int) *Cache {
	return &Cache{
		entries: make(map[string][]string, capacity),
	}
}

// Fetch returns the wildcard cover list for name, computing and memoizing
// it on first use. The returned slice is shared and must not be mutated.
func (c *Cache) Fetch(name string) []string {
	c.mu.RLock()
	names, ok := c.entries[name]
	c.mu.RUnlock()
	if ok {
		return names
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Another writer may have populated the entry between the locks.
	if names, ok := c.entries[name]; ok {
		return names
	}
	names = Wildnames(name)
	c.entries[name] = names
	return names
}

// Remove drops the cached expansions for the given channel names.
func (c *Cache) Remove(names []string) {
	if len(names) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range names {
		delete(c.entries, name)
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
