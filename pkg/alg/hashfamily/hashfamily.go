// Package hashfamily provides a reproducible family of universal hash
// functions of the form h(x) = (a*x + b) mod m.
//
// The modulus m is the smallest prime not below the size of the hashed
// domain, so every function with a ≠ 0 is a permutation of [0, m) and its
// restriction to [0, rows) behaves like a random permutation of the rows.
// MinHash uses one family to simulate k independent row permutations.
//
// A Family is immutable once created and safe for concurrent use.
package hashfamily

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"slices"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/internal/hashutil"
)

// MaxRows is the largest supported domain size. It keeps the modulus below
// 2^63 so hash values can never reach the MinHash sentinel.
const MaxRows = 1 << 62

var (
	// ErrInvalidParameter is returned when rows or count is out of range.
	ErrInvalidParameter = errors.New("hashfamily: invalid parameter")
	// ErrTooManyFunctions is returned when count exceeds MaxFunctions(rows).
	// It wraps ErrInvalidParameter.
	ErrTooManyFunctions = fmt.Errorf("%w: too many functions for the row domain", ErrInvalidParameter)
)

// MaxFunctions is the largest family New can draw over [0, rows): the number
// of distinct (a, b) pairs, (m-1)*m for modulus m. It saturates at
// math.MaxUint64 and is zero for rows outside [1, MaxRows].
func MaxFunctions(rows int) uint64 {
	if rows < 1 || uint64(rows) > MaxRows {
		return 0
	}

	modulus := hashutil.NextPrime(uint64(rows))

	hi, capacity := bits.Mul64(modulus-1, modulus)
	if hi != 0 {
		return math.MaxUint64
	}

	return capacity
}

// Func is a single affine hash function h(x) = (A*x + B) mod M.
type Func struct {
	A uint64
	B uint64
	M uint64
}

// Hash evaluates the function at x. x must be a valid row index; values at
// or above the family's row count are not checked.
func (f Func) Hash(x uint64) uint64 {
	hi, lo := bits.Mul64(f.A, x)

	var carry uint64

	lo, carry = bits.Add64(lo, f.B, 0)
	hi += carry

	return bits.Rem64(hi, lo, f.M)
}

// Family is an ordered sequence of hash functions with pairwise-distinct
// (A, B) parameters.
type Family struct {
	funcs []Func
	rows  uint64
	seed  int64
}

// New creates count hash functions over the row domain [0, rows), drawn from
// a stream seeded with seed. The same (rows, count, seed) always yields the
// same family.
func New(rows, count int, seed int64) (*Family, error) {
	if rows < 1 {
		return nil, fmt.Errorf("%w: rows must be >= 1, got %d", ErrInvalidParameter, rows)
	}

	if uint64(rows) > MaxRows {
		return nil, fmt.Errorf("%w: rows must be <= 2^62, got %d", ErrInvalidParameter, rows)
	}

	if count < 1 {
		return nil, fmt.Errorf("%w: count must be >= 1, got %d", ErrInvalidParameter, count)
	}

	modulus := hashutil.NextPrime(uint64(rows))

	if capacity := MaxFunctions(rows); uint64(count) > capacity {
		return nil, fmt.Errorf("%w: count %d exceeds the %d distinct (a, b) pairs for modulus %d",
			ErrTooManyFunctions, count, capacity, modulus)
	}

	return &Family{
		funcs: draw(hashutil.NewRand(seed), modulus, count),
		rows:  uint64(rows),
		seed:  seed,
	}, nil
}

// draw samples count distinct (a, b) pairs. a comes from [1, m) without
// replacement while the pool lasts; b comes independently from [0, m).
func draw(rng *hashutil.Rand, modulus uint64, count int) []Func {
	type pair struct{ a, b uint64 }

	uniqueA := uint64(count) <= modulus-1
	usedA := make(map[uint64]struct{}, count)
	used := make(map[pair]struct{}, count)
	funcs := make([]Func, 0, count)

	for len(funcs) < count {
		a := 1 + rng.Uint64n(modulus-1)
		if _, dup := usedA[a]; dup && uniqueA {
			continue
		}

		b := rng.Uint64n(modulus)

		p := pair{a: a, b: b}
		if _, dup := used[p]; dup {
			continue
		}

		usedA[a] = struct{}{}
		used[p] = struct{}{}

		funcs = append(funcs, Func{A: a, B: b, M: modulus})
	}

	return funcs
}

// Len returns the number of functions in the family.
func (f *Family) Len() int {
	return len(f.funcs)
}

// Rows returns the size of the row domain the family was built for.
func (f *Family) Rows() uint64 {
	return f.rows
}

// Modulus returns the prime modulus shared by all functions.
func (f *Family) Modulus() uint64 {
	if len(f.funcs) == 0 {
		return 0
	}

	return f.funcs[0].M
}

// Seed returns the seed the family was drawn from.
func (f *Family) Seed() int64 {
	return f.seed
}

// At returns the i-th function.
func (f *Family) At(i int) Func {
	return f.funcs[i]
}

// Funcs returns a copy of the function sequence.
func (f *Family) Funcs() []Func {
	return slices.Clone(f.funcs)
}

// HashAll writes h_i(x) for every function into dst, which must have
// length Len().
func (f *Family) HashAll(x uint64, dst []uint64) {
	for i, fn := range f.funcs {
		dst[i] = fn.Hash(x)
	}
}

// Equal reports whether both families hold the same functions in the same order.
func (f *Family) Equal(other *Family) bool {
	if f == nil || other == nil {
		return f == other
	}

	return f.rows == other.rows && slices.Equal(f.funcs, other.funcs)
}
