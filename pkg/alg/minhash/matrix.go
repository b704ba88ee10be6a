package minhash

import (
	"fmt"
	"maps"
	"slices"
)

// Matrix maps document ids to MinHash signatures of a fixed length k.
// Signatures are stored in one flat slice in ascending id order.
// A Matrix is immutable and safe for concurrent use.
type Matrix struct {
	k      int
	ids    []uint32
	index  map[uint32]int
	values []uint64
}

// NewMatrix builds a matrix from caller-supplied signatures. Every signature
// must hold exactly k values.
func NewMatrix(k int, sigs map[uint32][]uint64) (*Matrix, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be >= 1, got %d", ErrInvalidParameter, k)
	}

	ids := slices.Sorted(maps.Keys(sigs))
	values := make([]uint64, 0, len(ids)*k)

	for _, id := range ids {
		sig := sigs[id]
		if len(sig) != k {
			return nil, fmt.Errorf("%w: document %d has %d values, want %d",
				ErrInvalidParameter, id, len(sig), k)
		}

		values = append(values, sig...)
	}

	return newMatrix(k, ids, values), nil
}

func newMatrix(k int, ids []uint32, values []uint64) *Matrix {
	index := make(map[uint32]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	return &Matrix{k: k, ids: ids, index: index, values: values}
}

// K returns the signature length.
func (m *Matrix) K() int {
	return m.k
}

// Len returns the number of documents.
func (m *Matrix) Len() int {
	return len(m.ids)
}

// IDs returns the document ids in ascending order.
func (m *Matrix) IDs() []uint32 {
	return slices.Clone(m.ids)
}

// Has reports whether the matrix holds a signature for id.
func (m *Matrix) Has(id uint32) bool {
	_, ok := m.index[id]

	return ok
}

// Signature returns the signature of id as a read-only view.
func (m *Matrix) Signature(id uint32) ([]uint64, bool) {
	i, ok := m.index[id]
	if !ok {
		return nil, false
	}

	return m.values[i*m.k : (i+1)*m.k : (i+1)*m.k], true
}

// IsEmpty reports whether id has the empty-document signature.
// Unknown ids are reported as empty.
func (m *Matrix) IsEmpty(id uint32) bool {
	sig, ok := m.Signature(id)
	if !ok {
		return true
	}

	return IsEmpty(sig)
}

// Agreement returns the fraction of positions where the signatures of a and b
// hold the same value, the MinHash estimate of their Jaccard similarity.
// It is 0 when either document is unknown or empty.
func (m *Matrix) Agreement(a, b uint32) float64 {
	sa, okA := m.Signature(a)
	sb, okB := m.Signature(b)

	if !okA || !okB || IsEmpty(sa) || IsEmpty(sb) {
		return 0
	}

	return Agreement(sa, sb)
}

// Equal reports whether both matrices hold identical signatures for the same ids.
func (m *Matrix) Equal(other *Matrix) bool {
	if m == nil || other == nil {
		return m == other
	}

	return m.k == other.k && slices.Equal(m.ids, other.ids) && slices.Equal(m.values, other.values)
}

// MatrixSnapshot is the serializable form of a Matrix.
type MatrixSnapshot struct {
	K      int      `json:"k"`
	IDs    []uint32 `json:"ids"`
	Values []uint64 `json:"values"`
}

// Snapshot returns a serializable copy of the matrix.
func (m *Matrix) Snapshot() MatrixSnapshot {
	return MatrixSnapshot{
		K:      m.k,
		IDs:    slices.Clone(m.ids),
		Values: slices.Clone(m.values),
	}
}

// FromSnapshot restores a matrix. It fails when the snapshot is not a
// well-formed k-by-n matrix with strictly ascending ids.
func FromSnapshot(s MatrixSnapshot) (*Matrix, error) {
	if s.K < 1 {
		return nil, fmt.Errorf("%w: snapshot k must be >= 1, got %d", ErrInvalidParameter, s.K)
	}

	if len(s.Values) != s.K*len(s.IDs) {
		return nil, fmt.Errorf("%w: snapshot holds %d values for %d documents of length %d",
			ErrInvalidParameter, len(s.Values), len(s.IDs), s.K)
	}

	for i := 1; i < len(s.IDs); i++ {
		if s.IDs[i] <= s.IDs[i-1] {
			return nil, fmt.Errorf("%w: snapshot ids are not strictly ascending at %d",
				ErrInvalidParameter, i)
		}
	}

	return newMatrix(s.K, slices.Clone(s.IDs), slices.Clone(s.Values)), nil
}

// IsEmpty reports whether sig is the empty-document signature.
// A zero-length signature counts as empty.
func IsEmpty(sig []uint64) bool {
	for _, v := range sig {
		if v != Unset {
			return false
		}
	}

	return true
}

// Agreement returns the fraction of equal positions in two signatures of the
// same length. Mismatched or zero lengths yield 0.
func Agreement(a, b []uint64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	matches := 0

	for i := range a {
		if a[i] == b[i] {
			matches++
		}
	}

	return float64(matches) / float64(len(a))
}
