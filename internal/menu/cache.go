package menu

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultTTL bounds how long a resolved navigation list is served.
const DefaultTTL = 5 * time.Minute

type cacheEntry struct {
	items   []NavigationItem
	expires time.Time
}

// Cache holds resolved navigation lists with a fixed time-to-live. Every Bust
// advances a generation counter; writes tagged with an older generation are
// dropped so a fetch started before a bust cannot repopulate the cache.
type Cache struct {
	ttl   time.Duration
	clock clockwork.Clock

	mu         sync.RWMutex
	items      map[string]cacheEntry
	generation uint64
}

// NewCache constructs a Cache. A nil clock uses the wall clock.
func NewCache(ttl time.Duration, clock clockwork.Clock) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Cache{ttl: ttl, clock: clock, items: make(map[string]cacheEntry)}
}

// Get returns a copy of the entry for key while it has not expired.
func (c *Cache) Get(key string) ([]NavigationItem, bool) {
	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !c.clock.Now().Before(entry.expires) {
		c.mu.Lock()
		if current, ok := c.items[key]; ok && current.expires.Equal(entry.expires) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return cloneNavigation(entry.items), true
}

// Set stores items under key when generation is still current and reports
// whether the write was kept.
func (c *Cache) Set(key string, items []NavigationItem, generation uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		return false
	}
	c.items[key] = cacheEntry{items: cloneNavigation(items), expires: c.clock.Now().Add(c.ttl)}
	return true
}

// Generation returns the current write generation.
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// Bust drops every entry and invalidates in-flight writes.
func (c *Cache) Bust() {
	c.mu.Lock()
	c.items = make(map[string]cacheEntry)
	c.generation++
	c.mu.Unlock()
}
