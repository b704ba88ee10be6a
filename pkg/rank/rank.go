package rank

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/minhash"
)

// ErrUnknownDocument is returned when the query id has no signature.
var ErrUnknownDocument = errors.New("rank: unknown document")

// Result is one scored candidate.
type Result struct {
	ID    uint32  `json:"id"    yaml:"id"`
	Score float64 `json:"score" yaml:"score"`
}

// Rank scores the candidates of queryID and orders them best first: jaccard
// and cosine descending, euclid ascending, ties by ascending id. The query
// itself and candidates without a signature are left out.
func Rank(queryID uint32, candidates []uint32, m *minhash.Matrix, metric Metric) ([]Result, error) {
	sig, ok := m.Signature(queryID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDocument, queryID)
	}

	return RankSignature(sig, queryID, true, candidates, m, metric)
}

// RankSignature ranks candidates against a signature that need not belong to
// the matrix. When hasSelf is true, self is left out of the result.
func RankSignature(sig []uint64, self uint32, hasSelf bool, candidates []uint32, m *minhash.Matrix, metric Metric) ([]Result, error) {
	if err := metric.Validate(); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(candidates))

	for _, id := range candidates {
		if hasSelf && id == self {
			continue
		}

		other, ok := m.Signature(id)
		if !ok {
			continue
		}

		results = append(results, Result{ID: id, Score: metric.Score(sig, other)})
	}

	Sort(results, metric)

	return results, nil
}

// Sort orders results best first for metric, ties by ascending id.
func Sort(results []Result, metric Metric) {
	slices.SortFunc(results, func(a, b Result) int {
		c := cmp.Compare(b.Score, a.Score)
		if metric.IsDistance() {
			c = -c
		}

		if c != 0 {
			return c
		}

		return cmp.Compare(a.ID, b.ID)
	})
}

// Exhaustive ranks every other document of the matrix against queryID.
// It is O(n) in the corpus size and meant for offline evaluation.
func Exhaustive(queryID uint32, m *minhash.Matrix, metric Metric) ([]Result, error) {
	return Rank(queryID, m.IDs(), m, metric)
}

// Filter returns the results meeting threshold, preserving order.
func Filter(results []Result, threshold float64, metric Metric) []Result {
	kept := make([]Result, 0, len(results))

	for _, r := range results {
		if metric.Meets(r.Score, threshold) {
			kept = append(kept, r)
		}
	}

	return kept
}
