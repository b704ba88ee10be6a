// Package minhash generates MinHash signatures for the documents of a sparse
// shingle/document incidence relation.
//
// Each of the k signature positions is the minimum of one hash function of
// a shared hashfamily.Family over the rows present in the document. For two
// documents the probability that a position agrees approximates the Jaccard
// similarity of their shingle sets, so a fixed-size signature replaces the
// variable-size set.
//
// Generation touches only present entries, costing O(nnz × k), and runs
// across documents in parallel with no shared mutable state.
package minhash

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/creachadair/taskgroup"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/hashfamily"
)

// Unset is the value held by every position of a document without shingles.
// Hash values are always below the family modulus, so it never appears in a
// real signature.
const Unset = math.MaxUint64

// chunksPerWorker controls how finely documents are split across workers.
const chunksPerWorker = 4

var (
	// ErrInvalidParameter is returned for a non-positive k or an empty
	// incidence relation.
	ErrInvalidParameter = errors.New("minhash: invalid parameter")

	// ErrEmptySignature reports a document without shingles.
	ErrEmptySignature = errors.New("minhash: empty signature")
)

type config struct {
	workers int
}

// Option configures Generate.
type Option func(*config)

// WithWorkers bounds the number of goroutines computing signatures.
// Values below 1 select runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}

// Generate computes a k-length signature for every document of inc using the
// hash family drawn from seed. The same inputs always yield the same matrix.
func Generate(ctx context.Context, inc *Incidence, k int, seed int64, opts ...Option) (*Matrix, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be >= 1, got %d", ErrInvalidParameter, k)
	}

	if err := checkIncidence(inc); err != nil {
		return nil, err
	}

	fam, err := hashfamily.New(inc.Rows(), k, seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}

	return GenerateWithFamily(ctx, inc, fam, opts...)
}

// GenerateWithFamily computes signatures with an existing family. The family
// must cover at least inc.Rows() rows.
func GenerateWithFamily(ctx context.Context, inc *Incidence, fam *hashfamily.Family, opts ...Option) (*Matrix, error) {
	if err := checkIncidence(inc); err != nil {
		return nil, err
	}

	if fam.Rows() < uint64(inc.Rows()) {
		return nil, fmt.Errorf("%w: family covers %d rows, relation has %d",
			ErrInvalidParameter, fam.Rows(), inc.Rows())
	}

	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.workers < 1 {
		cfg.workers = runtime.NumCPU()
	}

	k := fam.Len()
	funcs := fam.Funcs()
	ids := inc.IDs()
	values := make([]uint64, len(ids)*k)

	chunk := max(1, (len(ids)+cfg.workers*chunksPerWorker-1)/(cfg.workers*chunksPerWorker))

	g, run := taskgroup.New(nil).Limit(cfg.workers)

	for start := 0; start < len(ids); start += chunk {
		end := min(start+chunk, len(ids))

		run(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			for i := start; i < end; i++ {
				fill(values[i*k:(i+1)*k], funcs, inc.cols[i])
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("minhash: generate: %w", err)
	}

	return newMatrix(k, ids, values), nil
}

// Fingerprint computes the signature of a document outside the relation from
// its resolved row indices. Rows must lie within the family's domain.
func Fingerprint(fam *hashfamily.Family, rows []uint32) []uint64 {
	sig := make([]uint64, fam.Len())
	fill(sig, fam.Funcs(), rows)

	return sig
}

func fill(sig []uint64, funcs []hashfamily.Func, rows []uint32) {
	for i := range sig {
		sig[i] = Unset
	}

	for _, row := range rows {
		x := uint64(row)

		for i, fn := range funcs {
			if h := fn.Hash(x); h < sig[i] {
				sig[i] = h
			}
		}
	}
}

func checkIncidence(inc *Incidence) error {
	switch {
	case inc == nil || inc.Docs() == 0:
		return fmt.Errorf("%w: incidence relation has no documents", ErrInvalidParameter)
	case inc.Rows() == 0:
		return fmt.Errorf("%w: incidence relation has no shingles", ErrInvalidParameter)
	}

	return nil
}
