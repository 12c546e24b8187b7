package cache

import (
	"sync"
	"time"

	"github.com/rohmanhakim/docs-crawler/pkg/timeutil"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// MemoryCache is a TTL-aware in-memory Cache. It is the default cache for
// crawls that do not configure a disk cache directory.
type MemoryCache struct {
	mu    sync.RWMutex
	data  map[string]memoryEntry
	clock timeutil.Clock
}

// NewMemoryCache constructs an empty MemoryCache using clock as its time
// source (inject a mock clock in tests to exercise TTL expiry deterministically).
func NewMemoryCache(clock timeutil.Clock) *MemoryCache {
	return &MemoryCache{
		data:  make(map[string]memoryEntry),
		clock: clock,
	}
}

func (c *MemoryCache) Get(key string) (string, bool) {
	c.mu.RLock()
	entry, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !entry.expiresAt.IsZero() && !c.clock.Now().Before(entry.expiresAt) {
		c.mu.Lock()
		delete(c.data, key)
		c.mu.Unlock()
		return "", false
	}
	return entry.value, true
}

func (c *MemoryCache) Put(key, value string, ttl time.Duration) {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.clock.Now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = memoryEntry{value: value, expiresAt: expiresAt}
}

// Size returns the number of entries currently stored, including any not
// yet lazily evicted.
func (c *MemoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
