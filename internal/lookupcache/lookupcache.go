// Package lookupcache provides a process-lifetime cache for read-mostly
// remote lookups.
// The cache has no per-entry expiry, it is flushed as a whole by a periodic
// task owned by the caller.
package lookupcache

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wardenbot/warden/internal/logfields"
)

const loggerName = "lookup-cache"

// entry holds the result of one loader run. ready is closed when val and
// err are set.
type entry struct {
	ready chan struct{}
	val   any
	err   error
}

type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	logger  *zap.Logger
}

func New() *Cache {
	return &Cache{
		entries: map[string]*entry{},
		logger:  zap.L().Named(loggerName),
	}
}

// Get returns the cached value for key.
// If the key is absent, loader is run and its result is stored and returned.
// A loader error is returned as-is and nothing is stored.
// Concurrent Get calls for the same key run the loader only once, the
// others wait for its result. Loaders of different keys run concurrently,
// the cache lock is not held while a loader runs.
func (c *Cache) Get(key string, loader func() (any, error)) (any, error) {
	c.mu.Lock()

	if e, exist := c.entries[key]; exist {
		c.mu.Unlock()
		<-e.ready

		return e.val, e.err
	}

	e := &entry{ready: make(chan struct{})}
	c.entries[key] = e
	c.mu.Unlock()

	e.val, e.err = loader()
	close(e.ready)

	if e.err != nil {
		c.mu.Lock()
		// the entry may have been flushed and recreated while the loader
		// ran, only remove our own
		if c.entries[key] == e {
			delete(c.entries, key)
		}
		c.mu.Unlock()

		return nil, e.err
	}

	return e.val, nil
}

// InvalidateAll removes all cached entries.
// In-flight loaders finish and deliver their result to their waiters, but
// the result is not cached.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Debug(
		"cache invalidated",
		logfields.Event("lookup_cache_invalidated"),
		zap.Int("entry_count", len(c.entries)),
	)

	c.entries = map[string]*entry{}
}

// Len returns the number of cached and in-flight entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
