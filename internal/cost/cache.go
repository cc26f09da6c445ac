package cost

import (
	"slices"
	"sync"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/davidbz/governor/internal/domain"
)

type cacheEntry struct {
	estimate domain.CostEstimate
	storedAt time.Time
}

// estimateCache is a TTL cache ordered by insertion time. When it grows past
// capacity the oldest tenth of the entries is evicted.
type estimateCache struct {
	mu       sync.Mutex
	entries  *orderedmap.OrderedMap[string, cacheEntry]
	ttl      time.Duration
	capacity int
	now      func() time.Time
	hits     int64
	misses   int64
}

func newEstimateCache(ttl time.Duration, capacity int, now func() time.Time) *estimateCache {
	return &estimateCache{
		entries:  orderedmap.New[string, cacheEntry](),
		ttl:      ttl,
		capacity: capacity,
		now:      now,
	}
}

func (c *estimateCache) get(key string) (domain.CostEstimate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries.Get(key)
	if !ok {
		c.misses++
		return domain.CostEstimate{}, false
	}

	if c.now().Sub(entry.storedAt) > c.ttl {
		c.entries.Delete(key)
		c.misses++
		return domain.CostEstimate{}, false
	}

	c.hits++
	return cloneEstimate(entry.estimate), true
}

func (c *estimateCache) put(key string, estimate domain.CostEstimate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Re-inserting moves the key to the newest position.
	c.entries.Delete(key)
	c.entries.Set(key, cacheEntry{estimate: cloneEstimate(estimate), storedAt: c.now()})

	if c.entries.Len() <= c.capacity {
		return
	}

	trim := max(1, c.capacity/10)
	for i := 0; i < trim; i++ {
		oldest := c.entries.Oldest()
		if oldest == nil {
			return
		}
		c.entries.Delete(oldest.Key)
	}
}

func (c *estimateCache) stats() (size int, hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len(), c.hits, c.misses
}

func cloneEstimate(e domain.CostEstimate) domain.CostEstimate {
	e.Factors = slices.Clone(e.Factors)
	return e
}
