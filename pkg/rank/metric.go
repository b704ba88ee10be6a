// Package rank scores LSH candidates against a query document and orders
// them, and evaluates a ranking with precision and recall.
//
// All metrics work on MinHash signatures, not on the original shingle sets,
// so every score is an estimate.
package rank

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/minhash"
)

// ErrUnknownMetric is returned when a metric name is not recognized.
var ErrUnknownMetric = errors.New("rank: unknown metric")

// Metric names a similarity or distance function over signatures.
type Metric string

const (
	// Jaccard is the overlap of the two signatures' value sets.
	// Formula: |set(x) ∩ set(a)| / |set(x) ∪ set(a)|.
	Jaccard Metric = "jaccard"

	// Cosine is the cosine of the angle between the signatures as vectors.
	// Formula: dot(x,a) / (||x|| * ||a||).
	Cosine Metric = "cosine"

	// Euclid is the Euclidean distance between the signatures. Lower is
	// more similar.
	// Formula: sqrt(sum((a[i] - x[i])^2)).
	Euclid Metric = "euclid"
)

// Metrics lists every supported metric.
func Metrics() []Metric {
	return []Metric{Jaccard, Cosine, Euclid}
}

// ParseMetric resolves a metric name, ignoring case and surrounding space.
func ParseMetric(name string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(name)))

	switch m {
	case Jaccard, Cosine, Euclid:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
}

// Validate returns ErrUnknownMetric for an unsupported value.
func (m Metric) Validate() error {
	_, err := ParseMetric(string(m))

	return err
}

// String returns the metric name.
func (m Metric) String() string {
	return string(m)
}

// IsDistance reports whether lower scores mean more similar.
func (m Metric) IsDistance() bool {
	return m == Euclid
}

// Meets reports whether score satisfies threshold: at least threshold for
// similarities, at most threshold for distances.
func (m Metric) Meets(score, threshold float64) bool {
	if m.IsDistance() {
		return score <= threshold
	}

	return score >= threshold
}

// Score compares two signatures of equal length. An empty signature on
// either side scores 0 for similarities and +Inf for distances.
func (m Metric) Score(x, a []uint64) float64 {
	if minhash.IsEmpty(x) || minhash.IsEmpty(a) || len(x) != len(a) {
		return m.worst()
	}

	switch m {
	case Jaccard:
		return jaccard(x, a)
	case Cosine:
		return cosine(x, a)
	case Euclid:
		return euclid(x, a)
	default:
		return m.worst()
	}
}

func (m Metric) worst() float64 {
	if m.IsDistance() {
		return math.Inf(1)
	}

	return 0
}

func jaccard(x, a []uint64) float64 {
	xs := make(map[uint64]struct{}, len(x))
	for _, v := range x {
		xs[v] = struct{}{}
	}

	as := make(map[uint64]struct{}, len(a))
	inter := 0

	for _, v := range a {
		if _, seen := as[v]; seen {
			continue
		}

		as[v] = struct{}{}

		if _, ok := xs[v]; ok {
			inter++
		}
	}

	union := len(xs) + len(as) - inter

	return float64(inter) / float64(union)
}

func cosine(x, a []uint64) float64 {
	var dot, nx, na float64

	for i := range x {
		fx, fa := float64(x[i]), float64(a[i])
		dot += fx * fa
		nx += fx * fx
		na += fa * fa
	}

	if nx == 0 || na == 0 {
		return 0
	}

	return dot / math.Sqrt(nx*na)
}

func euclid(x, a []uint64) float64 {
	var sum float64

	for i := range x {
		d := float64(a[i]) - float64(x[i])
		sum += d * d
	}

	return math.Sqrt(sum)
}
