package rank

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/minhash"
)

// ErrDivisionUndefined is returned when precision or recall would divide by zero.
var ErrDivisionUndefined = errors.New("rank: division undefined")

// Precision returns the fraction of ranked entries meeting threshold.
func Precision(threshold float64, ranked []Result, metric Metric) (float64, error) {
	if len(ranked) == 0 {
		return 0, fmt.Errorf("%w: empty ranked list", ErrDivisionUndefined)
	}

	return float64(len(Filter(ranked, threshold, metric))) / float64(len(ranked)), nil
}

// Recall compares ranked against the exhaustive ranking of queryID over the
// ids [0, corpusSize) present in m. It returns the fraction of relevant
// documents, those meeting threshold, that ranked contains.
func Recall(threshold float64, queryID uint32, corpusSize int, ranked []Result, m *minhash.Matrix, metric Metric) (float64, error) {
	universe := make([]uint32, 0, corpusSize)

	for _, id := range m.IDs() {
		if int64(id) < int64(corpusSize) {
			universe = append(universe, id)
		}
	}

	all, err := Rank(queryID, universe, m, metric)
	if err != nil {
		return 0, err
	}

	relevant := make(map[uint32]struct{})
	for _, r := range Filter(all, threshold, metric) {
		relevant[r.ID] = struct{}{}
	}

	if len(relevant) == 0 {
		return 0, fmt.Errorf("%w: no relevant documents for %d at threshold %g",
			ErrDivisionUndefined, queryID, threshold)
	}

	hits := 0

	for _, r := range ranked {
		if _, ok := relevant[r.ID]; ok {
			hits++

			delete(relevant, r.ID)
		}
	}

	return float64(hits) / float64(hits+len(relevant)), nil
}
