package betting

import (
	"sync"

	"poker-platform/internal/domain"
	"poker-platform/internal/metrics"
)

// defaultSoftCap is the validation cache's soft entry cap (spec.md
// §4.2): once exceeded, the oldest ~10% of entries are evicted.
const defaultSoftCap = 5000

type cacheKey struct {
	kind       domain.ActionKind
	amount     int64
	playerID   string
	currentBet int64
	phase      domain.GamePhase
}

type cacheEntry struct {
	err    *domain.ActionError
	cached bool
}

// validationCache memoizes Validate results, local to one Engine
// instance (never shared across tables, per spec.md §5).
type validationCache struct {
	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
	order   []cacheKey
	softCap int
}

func newValidationCache(softCap int) *validationCache {
	if softCap <= 0 {
		softCap = defaultSoftCap
	}
	return &validationCache{
		entries: make(map[cacheKey]cacheEntry),
		softCap: softCap,
	}
}

func (c *validationCache) get(key cacheKey) (cacheEntry, bool) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()

	if ok {
		metrics.ValidationCacheHits.Inc()
	} else {
		metrics.ValidationCacheMisses.Inc()
	}
	return entry, ok
}

func (c *validationCache) put(key cacheKey, entry cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = entry

	if len(c.entries) <= c.softCap {
		return
	}
	evict := c.softCap / 10
	if evict < 1 {
		evict = 1
	}
	for i := 0; i < evict && len(c.order) > 0; i++ {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

func (c *validationCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
