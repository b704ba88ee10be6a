package lsh

import (
	"fmt"
	"math"
)

// Point is one sample of the banding S-curve.
type Point struct {
	Similarity  float64 `json:"similarity"`
	Probability float64 `json:"probability"`
}

// NumBands returns the number of bands formed from k values with r rows each.
func NumBands(k, r int) int {
	if r < 1 {
		return 0
	}

	return k / r
}

// Probability returns the chance that two documents with Jaccard similarity s
// share at least one bucket across b bands of r rows: 1-(1-s^r)^b.
func Probability(s float64, r, b int) float64 {
	return 1 - math.Pow(1-math.Pow(s, float64(r)), float64(b))
}

// Threshold returns the similarity where the S-curve is steepest,
// approximately (1/b)^(1/r).
func Threshold(r, b int) float64 {
	if r < 1 || b < 1 {
		return math.NaN()
	}

	return math.Pow(1/float64(b), 1/float64(r))
}

// FalseNegativeRate is the chance that documents with similarity s never
// share a bucket.
func FalseNegativeRate(s float64, r, b int) float64 {
	return 1 - Probability(s, r, b)
}

// FalsePositiveRate is the chance that documents with similarity s share a
// bucket. It is only meaningful for s below the target threshold.
func FalsePositiveRate(s float64, r, b int) float64 {
	return Probability(s, r, b)
}

// Curve samples the S-curve at steps+1 evenly spaced similarities in [0, 1].
func Curve(r, b, steps int) []Point {
	steps = max(steps, 1)
	points := make([]Point, 0, steps+1)

	for i := range steps + 1 {
		s := float64(i) / float64(steps)
		points = append(points, Point{Similarity: s, Probability: Probability(s, r, b)})
	}

	return points
}

// OptimalRows returns the rows per band whose threshold estimate lies closest
// to target for signatures of length k. Ties go to the smaller r, which wastes
// fewer remainder rows.
func OptimalRows(k int, target float64) (int, error) {
	if k < 1 {
		return 0, fmt.Errorf("%w: k must be >= 1, got %d", ErrInvalidParameter, k)
	}

	if target <= 0 || target >= 1 {
		return 0, fmt.Errorf("%w: target threshold must be in (0, 1), got %g", ErrInvalidParameter, target)
	}

	best, bestErr := 1, math.Inf(1)

	for r := 1; r <= k; r++ {
		diff := math.Abs(Threshold(r, k/r) - target)
		if diff < bestErr {
			best, bestErr = r, diff
		}
	}

	return best, nil
}
