package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/jobforge/jobforge/internal/model"
)

// FactCache memoizes per-company reference store snapshots so one workflow's
// repeated lookups (retrieval, then verification) see a consistent view.
type FactCache struct {
	cache *gocache.Cache
}

// NewFactCache creates a fact cache with the given TTL.
func NewFactCache(defaultTTL time.Duration, cleanupInterval time.Duration) *FactCache {
	return &FactCache{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a company snapshot from the cache.
func (c *FactCache) Get(companyRef string) ([]model.ReferenceFact, bool) {
	if val, found := c.cache.Get(companyRef); found {
		return val.([]model.ReferenceFact), true
	}
	return nil, false
}

// Set stores a company snapshot with the default TTL.
func (c *FactCache) Set(companyRef string, facts []model.ReferenceFact) {
	c.cache.SetDefault(companyRef, facts)
}

// Invalidate drops one company's snapshot.
func (c *FactCache) Invalidate(companyRef string) {
	c.cache.Delete(companyRef)
}

// Clear removes all snapshots.
func (c *FactCache) Clear() {
	c.cache.Flush()
}
