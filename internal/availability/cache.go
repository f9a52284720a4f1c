package availability

import (
	"sync"
	"time"

	"github.com/samvad-hq/samvad-epaper-harvester/internal/logger"
	"github.com/samvad-hq/samvad-epaper-harvester/internal/storage"
)

// StoreCache persists entries through a storage.Store. Store errors are
// logged and treated as a miss.
type StoreCache struct {
	store storage.Store
	log   logger.Logger
}

// NewStoreCache wraps store.
func NewStoreCache(store storage.Store, log logger.Logger) *StoreCache {
	return &StoreCache{store: store, log: logger.Ensure(log)}
}

func (c *StoreCache) Get(platformID string) (Entry, bool) {
	if c == nil || c.store == nil {
		return Entry{}, false
	}
	rec, ok, err := c.store.Load(platformID)
	if err != nil {
		c.log.WarnObj("availability cache read failed", "availability", map[string]any{
			"platform": platformID,
			"error":    err.Error(),
		})
		return Entry{}, false
	}
	if !ok {
		return Entry{}, false
	}
	return Entry{Dates: rec.Dates, ProbedAt: rec.ProbedAt, WindowDays: rec.WindowDays}, true
}

func (c *StoreCache) Put(platformID string, e Entry) {
	if c == nil || c.store == nil {
		return
	}
	if err := c.store.Save(platformID, storage.Record{Dates: e.Dates, ProbedAt: e.ProbedAt, WindowDays: e.WindowDays}); err != nil {
		c.log.WarnObj("availability cache write failed", "availability", map[string]any{
			"platform": platformID,
			"error":    err.Error(),
		})
	}
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Entry)}
}

func (c *MemoryCache) Get(platformID string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[platformID]
	return e, ok
}

func (c *MemoryCache) Put(platformID string, e Entry) {
	c.mu.Lock()
	c.entries[platformID] = Entry{Dates: append([]time.Time(nil), e.Dates...), ProbedAt: e.ProbedAt, WindowDays: e.WindowDays}
	c.mu.Unlock()
}
