package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shelfpix/backend/internal/domain"
	"golang.org/x/sync/singleflight"
)

// entry is a single cached search result with expiry and usage accounting
type entry struct {
	candidates []domain.Candidate
	createdAt  time.Time
	uses       int
}

// SearchCache is a thread-safe in-memory cache of external search results.
// Entries expire after the configured TTL; concurrent misses for the same
// normalized query are collapsed into a single external call.
type SearchCache struct {
	data  map[string]*entry
	ttl   time.Duration
	mutex sync.RWMutex
	group singleflight.Group
	clock func() time.Time
}

// NewSearchCache creates a search cache with the given TTL. Expired
// entries are evicted lazily on lookup and swept on store, so the
// cache needs no background goroutine.
func NewSearchCache(ttl time.Duration) *SearchCache {
	return &SearchCache{
		data:  make(map[string]*entry),
		ttl:   ttl,
		clock: time.Now,
	}
}

// NormalizeQuery folds case and collapses whitespace so semantically
// identical queries collide on the same cache key.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// Lookup returns the cached candidates for query if present and fresh.
// Every hit increments the entry's usage counter.
func (c *SearchCache) Lookup(query string) ([]domain.Candidate, bool) {
	key := NormalizeQuery(query)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	e, exists := c.data[key]
	if !exists {
		return nil, false
	}

	if c.clock().Sub(e.createdAt) > c.ttl {
		// Expired entries are dropped on contact and behave as misses.
		delete(c.data, key)
		return nil, false
	}

	e.uses++
	return e.candidates, true
}

// Store caches the result of a successful external search call
func (c *SearchCache) Store(query string, candidates []domain.Candidate) {
	key := NormalizeQuery(query)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	// Piggyback a sweep of expired entries on every write
	now := c.clock()
	for k, e := range c.data {
		if now.Sub(e.createdAt) > c.ttl {
			delete(c.data, k)
		}
	}

	c.data[key] = &entry{
		candidates: candidates,
		createdAt:  now,
	}
}

// Fetch returns cached candidates for query, or invokes search exactly once
// per normalized query across concurrent callers and caches its result.
// Search errors are not cached, so a later call hits the network again.
func (c *SearchCache) Fetch(
	ctx context.Context,
	query string,
	search func(ctx context.Context) ([]domain.Candidate, error),
) ([]domain.Candidate, bool, error) {
	if candidates, ok := c.Lookup(query); ok {
		return candidates, true, nil
	}

	key := NormalizeQuery(query)
	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		// Re-check under the flight: another caller may have stored
		// the result while this one was queued.
		if candidates, ok := c.Lookup(query); ok {
			return candidates, nil
		}

		candidates, err := search(ctx)
		if err != nil {
			return nil, err
		}

		c.Store(query, candidates)
		return candidates, nil
	})
	if err != nil {
		return nil, false, err
	}

	return v.([]domain.Candidate), shared, nil
}

// Uses returns the hit counter for a query (0 if absent); used for stats
func (c *SearchCache) Uses(query string) int {
	key := NormalizeQuery(query)

	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if e, exists := c.data[key]; exists {
		return e.uses
	}
	return 0
}

// Size returns the current number of entries in the cache
func (c *SearchCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}
