package lru_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/lru"
)

const (
	// smallMaxEntries limits the cache to 3 entries for eviction tests.
	smallMaxEntries = 3

	// testConcurrentGoroutines is the number of goroutines for concurrency tests.
	testConcurrentGoroutines = 50

	// testConcurrentOps is the number of operations per goroutine.
	testConcurrentOps = 100
)

func TestCache_GetPut(t *testing.T) {
	t.Parallel()

	c := lru.New[string, int](smallMaxEntries)

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Put("a", 1)
	c.Put("a", 2)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Len())

	st := c.Stats()
	assert.Equal(t, int64(1), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
	assert.InDelta(t, 0.5, st.HitRate(), 1e-9)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	c := lru.New[int, string](smallMaxEntries)

	c.Put(1, "one")
	c.Put(2, "two")
	c.Put(3, "three")

	// Touch 1 so that 2 becomes the eviction victim.
	_, _ = c.Get(1)

	c.Put(4, "four")

	_, ok := c.Get(2)
	assert.False(t, ok)

	for _, k := range []int{1, 3, 4} {
		_, ok := c.Get(k)
		assert.True(t, ok, "key %d", k)
	}

	assert.Equal(t, smallMaxEntries, c.Len())
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestCache_SingleEntry(t *testing.T) {
	t.Parallel()

	c := lru.New[int, int](1)

	c.Put(1, 1)
	c.Put(2, 2)

	_, ok := c.Get(1)
	assert.False(t, ok)

	v, ok := c.Get(2)
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestCache_Purge(t *testing.T) {
	t.Parallel()

	c := lru.New[int, int](smallMaxEntries)
	c.Put(1, 1)
	c.Put(2, 2)

	c.Purge()

	assert.Zero(t, c.Len())

	c.Put(3, 3)

	v, ok := c.Get(3)
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestCache_Disabled(t *testing.T) {
	t.Parallel()

	c := lru.New[int, int](0)
	require.Nil(t, c)

	c.Put(1, 1)
	c.Purge()

	_, ok := c.Get(1)
	assert.False(t, ok)
	assert.Zero(t, c.Len())
	assert.Equal(t, lru.Stats{}, c.Stats())
}

func TestCache_Concurrent(t *testing.T) {
	t.Parallel()

	c := lru.New[int, int](smallMaxEntries * 10)

	var wg sync.WaitGroup

	for g := range testConcurrentGoroutines {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range testConcurrentOps {
				k := (g + i) % (smallMaxEntries * 20)
				c.Put(k, k)

				if v, ok := c.Get(k); ok {
					assert.Equal(t, k, v)
				}
			}
		}()
	}

	wg.Wait()

	assert.LessOrEqual(t, c.Len(), smallMaxEntries*10)
}
