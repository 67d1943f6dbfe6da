package pipeline

import "sync"

// Stage names the cacheable intermediate results of a year's pipeline.
type Stage string

const (
	StageComposite      Stage = "composite"
	StageClassification Stage = "classification"
	StageMask           Stage = "mask"
)

type cacheKey struct {
	region string
	year   int
	stage  Stage
}

// Cache holds intermediate rasters keyed by (region identity, year,
// stage). Entries are written once and immutable afterwards, which is
// what makes warm re-runs bit-identical and lets concurrent requests
// for different regions share one cache safely. Process-lifetime only;
// at single-session scale no eviction is needed.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey]interface{}
}

// NewCache creates an empty stage cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]interface{})}
}

// Get returns the cached value for a stage slot.
func (c *Cache) Get(region string, year int, stage Stage) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[cacheKey{region, year, stage}]
	return v, ok
}

// Put stores a value in a stage slot unless one is already present, and
// returns the value now held by the slot. First write wins; a lost race
// simply adopts the earlier identical result.
func (c *Cache) Put(region string, year int, stage Stage, value interface{}) interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey{region, year, stage}
	if existing, ok := c.entries[key]; ok {
		return existing
	}
	c.entries[key] = value
	return value
}

// Len returns the number of populated slots.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
