package hashutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPrime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n    uint64
		want bool
	}{
		{0, false},
		{1, false},
		{2, true},
		{3, true},
		{4, false},
		{5, true},
		{9, false},
		{25, false},
		{49, false},
		{97, true},
		{1009, true},
		{7919, true},
		{7921, false}, // 89^2.
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsPrime(tt.n), "IsPrime(%d)", tt.n)
	}
}

func TestNextPrime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n    uint64
		want uint64
	}{
		{0, 2},
		{1, 2},
		{2, 2},
		{3, 3},
		{4, 5},
		{14, 17},
		{1000, 1009},
		{7919, 7919},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NextPrime(tt.n), "NextPrime(%d)", tt.n)
	}
}

func TestRand_SameSeedSameStream(t *testing.T) {
	t.Parallel()

	a := NewRand(42)
	b := NewRand(42)

	for range 100 {
		require.Equal(t, a.Uint64(), b.Uint64())
	}
}

func TestRand_DifferentSeedsDiverge(t *testing.T) {
	t.Parallel()

	a := NewRand(1)
	b := NewRand(2)

	assert.NotEqual(t, a.Uint64(), b.Uint64())
}

func TestRand_Uint64nBounds(t *testing.T) {
	t.Parallel()

	r := NewRand(7)

	seen := make(map[uint64]bool)

	for range 1000 {
		v := r.Uint64n(5)
		require.Less(t, v, uint64(5))

		seen[v] = true
	}

	assert.Len(t, seen, 5, "all residues should appear")
}

func TestRand_Uint64nZeroPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { NewRand(1).Uint64n(0) })
}

func TestBandKey_Deterministic(t *testing.T) {
	t.Parallel()

	values := []uint64{3, 1, 4, 1}

	assert.Equal(t, BandKey(0, values), BandKey(0, values))
}

func TestBandKey_BandSeparation(t *testing.T) {
	t.Parallel()

	values := []uint64{3, 1, 4, 1}

	assert.NotEqual(t, BandKey(0, values), BandKey(1, values))
}

func TestBandKey_OrderSensitive(t *testing.T) {
	t.Parallel()

	assert.NotEqual(t, BandKey(0, []uint64{1, 2}), BandKey(0, []uint64{2, 1}))
}
