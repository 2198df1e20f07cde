// Package cache provides the least-recently-used store behind the lighting
// cache tiers. Access times come from a monotonic tick, and exceeding the
// soft limit evicts the oldest quarter in one pass.
//
// A Cache belongs to the render goroutine and is not safe for concurrent use.
package cache

import "slices"

// Cache is a generic LRU cache with a soft size limit.
type Cache[K comparable, V any] struct {
	entries   map[K]*entry[V]
	softLimit int
	tick      int64

	hits      uint64
	misses    uint64
	evictions uint64
	onEvict   func(K, V)
}

type entry[V any] struct {
	value V
	atime int64
}

// New creates a cache holding about softLimit entries. Zero means unlimited.
func New[K comparable, V any](softLimit int) *Cache[K, V] {
	return &Cache[K, V]{
		entries:   make(map[K]*entry[V]),
		softLimit: softLimit,
	}
}

// OnEvict registers a callback run for every entry removed by eviction.
func (c *Cache[K, V]) OnEvict(fn func(K, V)) {
	c.onEvict = fn
}

// Get returns the cached value and records a hit or miss.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	e, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	c.tick++
	e.atime = c.tick
	return e.value, true
}

// Peek returns the cached value without touching statistics or access time.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores a value, evicting old entries when over the soft limit.
func (c *Cache[K, V]) Set(key K, value V) {
	c.tick++
	c.entries[key] = &entry[V]{value: value, atime: c.tick}
	if c.softLimit > 0 && len(c.entries) > c.softLimit {
		c.evictOldest(key)
	}
}

// GetOrCreate returns the cached value or stores the result of create.
func (c *Cache[K, V]) GetOrCreate(key K, create func() V) V {
	if v, ok := c.Get(key); ok {
		return v
	}
	v := create()
	c.Set(key, v)
	return v
}

// Delete removes key and reports whether it was present.
func (c *Cache[K, V]) Delete(key K) bool {
	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	return true
}

// DeleteFunc removes every entry whose key matches and returns the count.
func (c *Cache[K, V]) DeleteFunc(match func(K) bool) int {
	var n int
	for k := range c.entries {
		if match(k) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Clear removes all entries. Statistics are kept.
func (c *Cache[K, V]) Clear() {
	clear(c.entries)
	c.tick = 0
}

// Len returns the number of entries.
func (c *Cache[K, V]) Len() int { return len(c.entries) }

// Stats holds cache statistics.
type Stats struct {
	Len       int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Stats returns the current statistics.
func (c *Cache[K, V]) Stats() Stats {
	return Stats{
		Len:       len(c.entries),
		Capacity:  c.softLimit,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// ResetStats zeroes the hit, miss and eviction counters.
func (c *Cache[K, V]) ResetStats() {
	c.hits, c.misses, c.evictions = 0, 0, 0
}

// evictOldest trims the cache to three quarters of the soft limit, never
// evicting keep.
func (c *Cache[K, V]) evictOldest(keep K) {
	target := max(c.softLimit*3/4, 1)
	n := len(c.entries) - target
	if n <= 0 {
		return
	}

	type aged struct {
		key   K
		atime int64
	}
	all := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		if k != keep {
			all = append(all, aged{k, e.atime})
		}
	}
	slices.SortFunc(all, func(a, b aged) int {
		switch {
		case a.atime < b.atime:
			return -1
		case a.atime > b.atime:
			return 1
		}
		return 0
	})
	for _, a := range all[:min(n, len(all))] {
		if c.onEvict != nil {
			c.onEvict(a.key, c.entries[a.key].value)
		}
		delete(c.entries, a.key)
		c.evictions++
	}
}
