package cache

import (
	"sync"
	"time"
)

// DefaultFreshness is the window during which a fetched resource is served without refetching.
const DefaultFreshness = 60 * time.Second

type entry struct {
	value     interface{}
	fetchedAt time.Time
}

// QueryCache maps resource keys ("vehicles", "vehicle-data.42") to the most recent fetch result.
type QueryCache struct {
	// MaxEntries bounds the cache; zero means unbounded. When full, the entry with the oldest
	// fetch time is evicted.
	MaxEntries int

	freshness time.Duration
	entries   map[string]entry
	lock      sync.Mutex
	now       func() time.Time
}

// New returns a QueryCache whose entries stay fresh for the given window. A non-positive
// freshness falls back to DefaultFreshness.
func New(freshness time.Duration) *QueryCache {
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	return &QueryCache{
		freshness: freshness,
		entries:   make(map[string]entry),
		now:       time.Now,
	}
}

// Put records value as the current result for key, replacing any previous entry.
func (c *QueryCache) Put(key string, value interface{}) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.entries[key] = entry{value: value, fetchedAt: c.now()}
	if c.MaxEntries > 0 && len(c.entries) > c.MaxEntries {
		oldestKey := key
		oldestFetch := c.now()
		for k, e := range c.entries {
			if e.fetchedAt.Before(oldestFetch) {
				oldestKey = k
				oldestFetch = e.fetchedAt
			}
		}
		delete(c.entries, oldestKey)
	}
}

// Get returns the entry for key if it is still inside the freshness window.
func (c *QueryCache) Get(key string) (interface{}, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.fetchedAt) >= c.freshness {
		return nil, false
	}
	return e.value, true
}

// Peek returns the entry for key regardless of age. Stale reads are acceptable on paths that
// prefer showing old data over none, such as the list view's battery level.
func (c *QueryCache) Peek(key string) (interface{}, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Invalidate drops the entry for key, forcing the next read to refetch.
func (c *QueryCache) Invalidate(key string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	delete(c.entries, key)
}

// Flush drops every entry.
func (c *QueryCache) Flush() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.entries = make(map[string]entry)
}
