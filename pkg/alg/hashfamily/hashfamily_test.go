package hashfamily

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test constants for hash family tests.
const (
	// testRows is a non-prime domain size, rounded up to 1009.
	testRows = 1000

	// testPrime is the expected modulus for testRows.
	testPrime = 1009

	// testCount is the default family size.
	testCount = 128

	// testSeed is the default seed.
	testSeed = 42
)

func TestNew_Valid(t *testing.T) {
	t.Parallel()

	fam, err := New(testRows, testCount, testSeed)

	require.NoError(t, err)
	assert.Equal(t, testCount, fam.Len())
	assert.Equal(t, uint64(testPrime), fam.Modulus())
	assert.Equal(t, uint64(testRows), fam.Rows())
	assert.Equal(t, int64(testSeed), fam.Seed())
}

func TestNew_InvalidParameters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		rows  int
		count int
	}{
		{"zero rows", 0, testCount},
		{"negative rows", -3, testCount},
		{"zero count", testRows, 0},
		{"negative count", testRows, -1},
		{"more functions than distinct pairs", 1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fam, err := New(tt.rows, tt.count, testSeed)

			require.ErrorIs(t, err, ErrInvalidParameter)
			assert.Nil(t, fam)
		})
	}
}

func TestNew_ParameterRanges(t *testing.T) {
	t.Parallel()

	fam, err := New(testRows, testCount, testSeed)
	require.NoError(t, err)

	for _, fn := range fam.Funcs() {
		assert.GreaterOrEqual(t, fn.A, uint64(1))
		assert.Less(t, fn.A, uint64(testPrime))
		assert.Less(t, fn.B, uint64(testPrime))
		assert.Equal(t, uint64(testPrime), fn.M)
	}
}

func TestNew_Reproducible(t *testing.T) {
	t.Parallel()

	for seed := range int64(20) {
		a, err := New(testRows, testCount, seed)
		require.NoError(t, err)

		b, err := New(testRows, testCount, seed)
		require.NoError(t, err)

		assert.True(t, a.Equal(b), "seed %d produced different families", seed)
	}
}

func TestNew_SeedsDiffer(t *testing.T) {
	t.Parallel()

	a, err := New(testRows, testCount, 1)
	require.NoError(t, err)

	b, err := New(testRows, testCount, 2)
	require.NoError(t, err)

	assert.False(t, a.Equal(b))
}

func TestNew_DistinctPairs(t *testing.T) {
	t.Parallel()

	type pair struct{ a, b uint64 }

	fam, err := New(testRows, testCount, testSeed)
	require.NoError(t, err)

	seenPairs := make(map[pair]bool)
	seenA := make(map[uint64]bool)

	for _, fn := range fam.Funcs() {
		p := pair{fn.A, fn.B}
		assert.False(t, seenPairs[p], "duplicate pair %+v", p)
		assert.False(t, seenA[fn.A], "a drawn twice while the pool was large enough")

		seenPairs[p] = true
		seenA[fn.A] = true
	}
}

func TestNew_SaturatedSmallDomain(t *testing.T) {
	t.Parallel()

	// rows=5 gives m=5, which allows exactly 4*5 distinct pairs.
	fam, err := New(5, 20, testSeed)
	require.NoError(t, err)

	type pair struct{ a, b uint64 }

	seen := make(map[pair]bool)
	for _, fn := range fam.Funcs() {
		seen[pair{fn.A, fn.B}] = true
	}

	assert.Len(t, seen, 20)
}

func TestNew_TooManyFunctions(t *testing.T) {
	t.Parallel()

	// Five rows keep m=5, which has only 20 distinct pairs.
	_, err := New(5, 21, testSeed)

	require.ErrorIs(t, err, ErrTooManyFunctions)
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestMaxFunctions(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint64(2), MaxFunctions(1))
	assert.Equal(t, uint64(6), MaxFunctions(3))
	assert.Equal(t, uint64(20), MaxFunctions(4))
	assert.Equal(t, uint64(20), MaxFunctions(5))
	assert.Equal(t, uint64(testPrime-1)*testPrime, MaxFunctions(testRows))
	assert.Zero(t, MaxFunctions(0))

	_, err := New(4, int(MaxFunctions(4)), testSeed)
	require.NoError(t, err)
}

func TestNew_PrimeRowsKeepModulus(t *testing.T) {
	t.Parallel()

	fam, err := New(97, 8, testSeed)

	require.NoError(t, err)
	assert.Equal(t, uint64(97), fam.Modulus())
}

func TestNew_SingleRow(t *testing.T) {
	t.Parallel()

	fam, err := New(1, 2, testSeed)

	require.NoError(t, err)
	assert.Equal(t, uint64(2), fam.Modulus())
}

func TestFunc_IsPermutation(t *testing.T) {
	t.Parallel()

	fam, err := New(testPrime, 4, testSeed)
	require.NoError(t, err)

	for _, fn := range fam.Funcs() {
		seen := make(map[uint64]bool, testPrime)

		for x := range uint64(testPrime) {
			seen[fn.Hash(x)] = true
		}

		assert.Len(t, seen, testPrime)
	}
}

func TestFunc_HashLargeOperands(t *testing.T) {
	t.Parallel()

	// (a*x + b) overflows 64 bits; the result must still be reduced correctly.
	fn := Func{A: 1<<62 + 1, B: 1<<62 + 3, M: 4611686018427388039}

	got := fn.Hash(1<<62 + 7)

	assert.Less(t, got, fn.M)
}

func TestFamily_HashAll(t *testing.T) {
	t.Parallel()

	fam, err := New(testRows, 3, testSeed)
	require.NoError(t, err)

	dst := make([]uint64, fam.Len())
	fam.HashAll(17, dst)

	for i := range dst {
		assert.Equal(t, fam.At(i).Hash(17), dst[i])
	}
}

func TestFamily_FuncsIsCopy(t *testing.T) {
	t.Parallel()

	fam, err := New(testRows, 3, testSeed)
	require.NoError(t, err)

	funcs := fam.Funcs()
	funcs[0].A = 0

	assert.NotEqual(t, uint64(0), fam.At(0).A)
}

func TestFamily_EqualNil(t *testing.T) {
	t.Parallel()

	var a, b *Family

	assert.True(t, a.Equal(b))

	fam, err := New(testRows, 3, testSeed)
	require.NoError(t, err)

	assert.False(t, fam.Equal(nil))
}
