// Package cache holds the process-wide resolver cache: destination URLs
// under a bounded TTL (with a shorter TTL for known-absent ids) and the
// in-memory click counters that spare a read-before-write on every click.
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

type entry struct {
	url     string
	missing bool // known-absent marker, cached under negTTL
	expires time.Time
}

// LinkCache maps link ids to resolved URLs and click counters.
type LinkCache struct {
	urls   *lru.Cache
	ttl    time.Duration
	negTTL time.Duration

	mu       sync.Mutex
	counters map[int64]int64
}

func New(size int, ttl, negTTL time.Duration) (*LinkCache, error) {
	urls, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &LinkCache{
		urls:     urls,
		ttl:      ttl,
		negTTL:   negTTL,
		counters: make(map[int64]int64),
	}, nil
}

// GetURL returns the cached URL for id. ok is false on a miss or an expired
// entry; missing is true when a live known-absent marker is cached.
func (c *LinkCache) GetURL(id int64) (url string, ok, missing bool) {
	v, found := c.urls.Get(id)
	if !found {
		return "", false, false
	}
	e, isEntry := v.(entry)
	if !isEntry {
		c.urls.Remove(id) // type mismatch — evict
		return "", false, false
	}
	if time.Now().After(e.expires) {
		c.urls.Remove(id)
		return "", false, false
	}
	return e.url, true, e.missing
}

// SetURL caches a resolved URL under the positive TTL.
func (c *LinkCache) SetURL(id int64, url string) {
	c.urls.Add(id, entry{url: url, expires: time.Now().Add(c.ttl)})
}

// SetMissing caches a known-absent marker under the shorter negative TTL,
// so repeated probes for a dead id don't each hit the store while a link
// created moments later still becomes resolvable promptly.
func (c *LinkCache) SetMissing(id int64) {
	c.urls.Add(id, entry{missing: true, expires: time.Now().Add(c.negTTL)})
}

// Invalidate drops both the URL entry and the click counter for id. Editors
// must call this after the durable write commits and before responding.
func (c *LinkCache) Invalidate(id int64) {
	c.urls.Remove(id)
	c.mu.Lock()
	delete(c.counters, id)
	c.mu.Unlock()
}

// Flush clears the whole cache.
func (c *LinkCache) Flush() {
	c.urls.Purge()
	c.mu.Lock()
	c.counters = make(map[int64]int64)
	c.mu.Unlock()
}

// IncrementClicks bumps the in-memory counter for id and returns the new
// value. A cold counter is seeded from the durable count via seed before
// the bump. The whole check-seed-increment runs under one lock, so two
// concurrent clicks can never observe the same count.
func (c *LinkCache) IncrementClicks(id int64, seed func() (int64, error)) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.counters[id]
	if !ok {
		var err error
		n, err = seed()
		if err != nil {
			return 0, err
		}
	}
	n++
	c.counters[id] = n
	return n, nil
}

// Clicks reports the cached counter for id, if any.
func (c *LinkCache) Clicks(id int64) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.counters[id]
	return n, ok
}
