// Package lru provides a generic thread-safe LRU cache bounded by entry count.
package lru

import (
	"sync"
	"sync/atomic"
)

// entry is a doubly-linked list node holding a key-value pair.
type entry[K comparable, V any] struct {
	key   K
	value V
	prev  *entry[K, V]
	next  *entry[K, V]
}

// Cache is a thread-safe generic LRU cache. A nil *Cache is a valid cache
// that stores nothing.
type Cache[K comparable, V any] struct {
	mu         sync.Mutex
	entries    map[K]*entry[K, V]
	head       *entry[K, V] // Most recently used.
	tail       *entry[K, V] // Least recently used.
	maxEntries int

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// New creates a cache holding at most maxEntries entries. It returns nil when
// maxEntries is not positive, which disables caching.
func New[K comparable, V any](maxEntries int) *Cache[K, V] {
	if maxEntries <= 0 {
		return nil
	}

	return &Cache[K, V]{
		entries:    make(map[K]*entry[K, V], maxEntries),
		maxEntries: maxEntries,
	}
}

// Get returns the value cached under key and marks it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	var zero V

	if c == nil {
		return zero, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)

		return zero, false
	}

	c.hits.Add(1)
	c.moveToFront(ent)

	return ent.value, true
}

// Put adds or replaces the value under key, evicting the least recently used
// entry when the cache is full.
func (c *Cache[K, V]) Put(key K, value V) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.entries[key]; ok {
		ent.value = value
		c.moveToFront(ent)

		return
	}

	if len(c.entries) >= c.maxEntries {
		c.evictTail()
	}

	ent := &entry[K, V]{key: key, value: value}
	c.entries[key] = ent
	c.addToFront(ent)
}

// Purge drops every entry. Counters are kept.
func (c *Cache[K, V]) Purge() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.entries)
	c.head, c.tail = nil, nil
}

// Len returns the number of entries in the cache.
func (c *Cache[K, V]) Len() int {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

func (c *Cache[K, V]) addToFront(ent *entry[K, V]) {
	ent.prev = nil
	ent.next = c.head

	if c.head != nil {
		c.head.prev = ent
	}

	c.head = ent

	if c.tail == nil {
		c.tail = ent
	}
}

func (c *Cache[K, V]) unlink(ent *entry[K, V]) {
	if ent.prev != nil {
		ent.prev.next = ent.next
	} else {
		c.head = ent.next
	}

	if ent.next != nil {
		ent.next.prev = ent.prev
	} else {
		c.tail = ent.prev
	}

	ent.prev, ent.next = nil, nil
}

func (c *Cache[K, V]) moveToFront(ent *entry[K, V]) {
	if c.head == ent {
		return
	}

	c.unlink(ent)
	c.addToFront(ent)
}

func (c *Cache[K, V]) evictTail() {
	victim := c.tail
	if victim == nil {
		return
	}

	c.unlink(victim)
	delete(c.entries, victim.key)
	c.evictions.Add(1)
}
