// Package hashutil provides the hashing primitives shared by the hash family
// and the banding engine: a seeded splitmix64 stream, prime search for the
// affine modulus, and the default band key hash.
//
// The stream uses the splitmix64 finalizer by Vigna (2014), which provides
// full-avalanche mixing across all 64 bits.
package hashutil

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Splitmix64 constants from the splitmix64 finalizer by Vigna (2014).
const (
	// MixShift1 is the first right-shift in the splitmix64 finalizer.
	MixShift1 = 30

	// MixMul1 is the first multiplier in the splitmix64 finalizer.
	MixMul1 = 0xbf58476d1ce4e5b9

	// MixShift2 is the second right-shift in the splitmix64 finalizer.
	MixShift2 = 27

	// MixMul2 is the second multiplier in the splitmix64 finalizer.
	MixMul2 = 0x94d049bb133111eb

	// MixShift3 is the third right-shift in the splitmix64 finalizer.
	MixShift3 = 31

	// splitmix64Increment is the golden-ratio-derived increment
	// used in the splitmix64 state-advance function.
	splitmix64Increment = 0x9e3779b97f4a7c15
)

// bytesPerUint64 is the encoded width of one band value.
const bytesPerUint64 = 8

// Mix64 applies the splitmix64 finalizer for full-avalanche mixing.
// It is a pure function and advances no state.
func Mix64(v uint64) uint64 {
	v ^= v >> MixShift1
	v *= MixMul1
	v ^= v >> MixShift2
	v *= MixMul2
	v ^= v >> MixShift3

	return v
}

// Rand is a deterministic splitmix64 stream. Two streams created from the
// same seed produce the same sequence. A Rand is not safe for concurrent use.
type Rand struct {
	state uint64
}

// NewRand creates a stream seeded with seed.
func NewRand(seed int64) *Rand {
	return &Rand{state: uint64(seed)}
}

// Uint64 advances the state by the golden-ratio increment and returns the
// mixed output.
func (r *Rand) Uint64() uint64 {
	r.state += splitmix64Increment

	return Mix64(r.state)
}

// Uint64n returns a uniform value in [0, n). It panics if n is zero.
// Values from the biased low zone of the 64-bit range are rejected, so the
// result carries no modulo bias.
func (r *Rand) Uint64n(n uint64) uint64 {
	if n == 0 {
		panic("hashutil: Uint64n called with n == 0")
	}

	// 2^64 mod n, the size of the zone that would bias v % n.
	threshold := -n % n

	for {
		v := r.Uint64()
		if v >= threshold {
			return v % n
		}
	}
}

// IsPrime reports whether n is prime using 6k±1 trial division up to √n.
func IsPrime(n uint64) bool {
	if n <= 3 {
		return n > 1
	}

	if n%2 == 0 || n%3 == 0 {
		return false
	}

	for i := uint64(5); i*i <= n; i += 6 {
		if n%i == 0 || n%(i+2) == 0 {
			return false
		}
	}

	return true
}

// NextPrime returns the smallest prime greater than or equal to n.
func NextPrime(n uint64) uint64 {
	if n <= 2 {
		return 2
	}

	if n%2 == 0 {
		n++
	}

	for !IsPrime(n) {
		n += 2
	}

	return n
}

// BandKey hashes one band of a signature with xxhash64. The band index is
// written first so equal value tuples in different bands get different keys.
func BandKey(band int, values []uint64) uint64 {
	var (
		digest xxhash.Digest
		buf    [bytesPerUint64]byte
	)

	digest.Reset()

	binary.BigEndian.PutUint64(buf[:], uint64(band))
	_, _ = digest.Write(buf[:])

	for _, v := range values {
		binary.BigEndian.PutUint64(buf[:], v)
		_, _ = digest.Write(buf[:])
	}

	return digest.Sum64()
}
