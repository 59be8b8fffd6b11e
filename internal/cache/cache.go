// Package cache provides the memoization tables backing the alias
// engine's queries. A cache is populated at most once per key and is not
// safe for concurrent use; each engine instance owns its caches
// exclusively for the analysis of one function body.
package cache

type Cache[K comparable, V any] struct {
	entries map[K]V
}

// Get returns the cached value for key, computing and storing it with
// compute on first use.
func (c *Cache[K, V]) Get(key K, compute func(K) V) V {
	if v, found := c.entries[key]; found {
		return v
	}

	v := compute(key)
	if c.entries == nil {
		c.entries = make(map[K]V)
	}
	c.entries[key] = v
	return v
}

func (c *Cache[K, V]) Len() int { return len(c.entries) }
