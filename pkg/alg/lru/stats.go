package lru

// Stats holds cache performance metrics.
type Stats struct {
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	Evictions  int64 `json:"evictions"`
	Entries    int   `json:"entries"`
	MaxEntries int   `json:"max_entries"`
}

// HitRate returns the cache hit rate as a fraction (0.0 to 1.0).
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total)
}

// Stats returns current cache statistics. A nil cache reports zeros.
func (c *Cache[K, V]) Stats() Stats {
	if c == nil {
		return Stats{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Evictions:  c.evictions.Load(),
		Entries:    len(c.entries),
		MaxEntries: c.maxEntries,
	}
}
