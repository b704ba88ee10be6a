// Package lsh groups MinHash signatures into buckets by banding and answers
// candidate queries against the resulting bucket maps.
//
// A signature of length k is cut into b = k/r bands of r consecutive values;
// the k mod r trailing values take no part in banding. Two documents become
// candidates when all r values of at least one band agree, which happens with
// probability 1-(1-s^r)^b for Jaccard similarity s. Choosing r moves the
// threshold of that S-curve; see Probability and Threshold.
package lsh

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/creachadair/taskgroup"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/internal/hashutil"
	"github.com/Sumatoshi-tech/neardup/pkg/alg/minhash"
)

var (
	// ErrInvalidParameter is returned when r lies outside [1, k] or the
	// input matrix is missing.
	ErrInvalidParameter = errors.New("lsh: invalid parameter")

	// ErrSizeMismatch is returned when a signature length differs from k.
	ErrSizeMismatch = errors.New("lsh: signature size mismatch")
)

// BandHasher maps the r values of one band to a bucket key. band is the band
// index, so equal values in different bands can map to different keys.
type BandHasher func(band int, values []uint64) uint64

// DefaultBandHasher hashes the band index and values with xxhash64.
func DefaultBandHasher(band int, values []uint64) uint64 {
	return hashutil.BandKey(band, values)
}

// BucketMap maps a band key to the documents in that bucket, in ascending
// document id order.
type BucketMap map[uint64][]uint32

type buildConfig struct {
	hasher  BandHasher
	workers int
}

// BuildOption configures Build and FromSnapshot.
type BuildOption func(*buildConfig)

// WithBandHasher replaces the default band key function. Buckets restored
// from a snapshot must use the hasher they were built with.
func WithBandHasher(h BandHasher) BuildOption {
	return func(c *buildConfig) {
		c.hasher = h
	}
}

// WithWorkers bounds the number of bands built concurrently. Values below 1
// build every band concurrently.
func WithWorkers(n int) BuildOption {
	return func(c *buildConfig) {
		c.workers = n
	}
}

func newBuildConfig(opts []BuildOption) buildConfig {
	cfg := buildConfig{hasher: DefaultBandHasher}
	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

// Buckets holds one BucketMap per band. It is immutable once built and safe
// for concurrent use.
type Buckets struct {
	k       int
	rows    int
	bands   []BucketMap
	skipped int
	hasher  BandHasher
}

// Stats summarizes bucket occupancy.
type Stats struct {
	Bands      int     `json:"bands"       yaml:"bands"`
	Buckets    int     `json:"buckets"     yaml:"buckets"`
	MaxBucket  int     `json:"max_bucket"  yaml:"max_bucket"`
	MeanBucket float64 `json:"mean_bucket" yaml:"mean_bucket"`
	Skipped    int     `json:"skipped"     yaml:"skipped"`
}

// Build bands every signature of m with r rows per band. Documents with the
// empty signature are left out of every bucket.
func Build(ctx context.Context, m *minhash.Matrix, r int, opts ...BuildOption) (*Buckets, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil signature matrix", ErrInvalidParameter)
	}

	if r < 1 || r > m.K() {
		return nil, fmt.Errorf("%w: r must be in [1, %d], got %d", ErrInvalidParameter, m.K(), r)
	}

	cfg := newBuildConfig(opts)
	numBands := m.K() / r

	ids := make([]uint32, 0, m.Len())
	skipped := 0

	for _, id := range m.IDs() {
		if m.IsEmpty(id) {
			skipped++

			continue
		}

		ids = append(ids, id)
	}

	workers := cfg.workers
	if workers < 1 {
		workers = numBands
	}

	bands := make([]BucketMap, numBands)
	g, run := taskgroup.New(nil).Limit(workers)

	for band := range numBands {
		run(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			bucket := make(BucketMap)
			lo, hi := band*r, (band+1)*r

			for _, id := range ids {
				sig, _ := m.Signature(id)
				key := cfg.hasher(band, sig[lo:hi])
				bucket[key] = append(bucket[key], id)
			}

			bands[band] = bucket

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("lsh: build: %w", err)
	}

	return &Buckets{
		k:       m.K(),
		rows:    r,
		bands:   bands,
		skipped: skipped,
		hasher:  cfg.hasher,
	}, nil
}

// K returns the signature length the buckets were built for.
func (b *Buckets) K() int {
	return b.k
}

// Rows returns the number of signature values per band.
func (b *Buckets) Rows() int {
	return b.rows
}

// Bands returns the number of bands.
func (b *Buckets) Bands() int {
	return len(b.bands)
}

// Band returns the bucket map of band i. The map must not be modified.
func (b *Buckets) Band(i int) BucketMap {
	return b.bands[i]
}

// Keys computes the band keys of sig.
func (b *Buckets) Keys(sig []uint64) ([]uint64, error) {
	if len(sig) != b.k {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrSizeMismatch, len(sig), b.k)
	}

	keys := make([]uint64, len(b.bands))
	for band := range keys {
		keys[band] = b.hasher(band, sig[band*b.rows:(band+1)*b.rows])
	}

	return keys, nil
}

// Stats reports bucket occupancy across all bands.
func (b *Buckets) Stats() Stats {
	st := Stats{Bands: len(b.bands), Skipped: b.skipped}
	members := 0

	for _, bucket := range b.bands {
		st.Buckets += len(bucket)

		for _, ids := range bucket {
			members += len(ids)
			st.MaxBucket = max(st.MaxBucket, len(ids))
		}
	}

	if st.Buckets > 0 {
		st.MeanBucket = float64(members) / float64(st.Buckets)
	}

	return st
}

// Equal reports whether both hold the same bucket membership.
func (b *Buckets) Equal(other *Buckets) bool {
	if b == nil || other == nil {
		return b == other
	}

	if b.k != other.k || b.rows != other.rows || b.skipped != other.skipped {
		return false
	}

	return slices.EqualFunc(b.bands, other.bands, func(x, y BucketMap) bool {
		return maps.EqualFunc(x, y, slices.Equal[[]uint32])
	})
}

// BucketsSnapshot is the serializable form of Buckets.
type BucketsSnapshot struct {
	K       int                   `json:"k"`
	Rows    int                   `json:"rows"`
	Bands   []map[uint64][]uint32 `json:"bands"`
	Skipped int                   `json:"skipped"`
}

// Snapshot returns a serializable copy of the buckets.
func (b *Buckets) Snapshot() BucketsSnapshot {
	bands := make([]map[uint64][]uint32, len(b.bands))

	for i, bucket := range b.bands {
		bands[i] = make(map[uint64][]uint32, len(bucket))

		for key, ids := range bucket {
			bands[i][key] = slices.Clone(ids)
		}
	}

	return BucketsSnapshot{K: b.k, Rows: b.rows, Bands: bands, Skipped: b.skipped}
}

// FromSnapshot restores buckets. Only WithBandHasher is honored among opts.
func FromSnapshot(s BucketsSnapshot, opts ...BuildOption) (*Buckets, error) {
	if s.Rows < 1 || s.Rows > s.K {
		return nil, fmt.Errorf("%w: snapshot rows must be in [1, %d], got %d", ErrInvalidParameter, s.K, s.Rows)
	}

	if len(s.Bands) != s.K/s.Rows {
		return nil, fmt.Errorf("%w: snapshot holds %d bands, want %d", ErrInvalidParameter, len(s.Bands), s.K/s.Rows)
	}

	cfg := newBuildConfig(opts)
	bands := make([]BucketMap, len(s.Bands))

	for i, bucket := range s.Bands {
		bands[i] = make(BucketMap, len(bucket))

		for key, ids := range bucket {
			bands[i][key] = slices.Clone(ids)
		}
	}

	return &Buckets{
		k:       s.K,
		rows:    s.Rows,
		bands:   bands,
		skipped: s.Skipped,
		hasher:  cfg.hasher,
	}, nil
}
