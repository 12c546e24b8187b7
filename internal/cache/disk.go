package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rohmanhakim/docs-crawler/pkg/fileutil"
	"github.com/rohmanhakim/docs-crawler/pkg/hashutil"
	"github.com/rohmanhakim/docs-crawler/pkg/timeutil"
)

type diskEntry struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// DiskCache persists entries as one JSON file per key under Dir, named by
// the BLAKE3 hash of the key so arbitrary URLs are always valid filenames.
// It survives across crawl process restarts, unlike MemoryCache.
type DiskCache struct {
	mu    sync.Mutex
	dir   string
	clock timeutil.Clock
}

// NewDiskCache constructs a DiskCache rooted at dir, creating it if
// necessary.
func NewDiskCache(dir string, clock timeutil.Clock) (*DiskCache, *CacheError) {
	if err := fileutil.EnsureDir(dir); err != nil {
		return nil, &CacheError{Message: err.Error(), Retryable: false, Cause: ErrCauseWriteFailure}
	}
	return &DiskCache{dir: dir, clock: clock}, nil
}

func (c *DiskCache) pathFor(key string) string {
	digest, _ := hashutil.HashBytes([]byte(key), hashutil.HashAlgoBLAKE3)
	return filepath.Join(c.dir, digest+".json")
}

func (c *DiskCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := os.ReadFile(c.pathFor(key))
	if err != nil {
		return "", false
	}

	var entry diskEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return "", false
	}

	if !entry.ExpiresAt.IsZero() && !c.clock.Now().Before(entry.ExpiresAt) {
		_ = os.Remove(c.pathFor(key))
		return "", false
	}
	return entry.Value, true
}

func (c *DiskCache) Put(key, value string, ttl time.Duration) {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.clock.Now().Add(ttl)
	}

	raw, err := json.Marshal(diskEntry{Value: value, ExpiresAt: expiresAt})
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_ = os.WriteFile(c.pathFor(key), raw, 0644)
}
