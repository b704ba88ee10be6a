package minhash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMatrix(t *testing.T) {
	t.Parallel()

	m, err := NewMatrix(3, map[uint32][]uint64{
		4: {1, 2, 3},
		2: {1, 9, 3},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, m.K())
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, []uint32{2, 4}, m.IDs())
	assert.True(t, m.Has(4))
	assert.False(t, m.Has(3))
	assert.InDelta(t, 2.0/3.0, m.Agreement(2, 4), 1e-12)
}

func TestNewMatrix_Invalid(t *testing.T) {
	t.Parallel()

	_, err := NewMatrix(0, nil)
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, err = NewMatrix(2, map[uint32][]uint64{0: {1}})
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestMatrix_SignatureIsBounded(t *testing.T) {
	t.Parallel()

	m, err := NewMatrix(2, map[uint32][]uint64{0: {1, 2}, 1: {3, 4}})
	require.NoError(t, err)

	sig, ok := m.Signature(0)
	require.True(t, ok)

	// Appending to the view must not overwrite the next document.
	_ = append(sig, 99)

	next, _ := m.Signature(1)
	assert.Equal(t, []uint64{3, 4}, next)
}

func TestMatrix_UnknownDocument(t *testing.T) {
	t.Parallel()

	m, err := NewMatrix(2, map[uint32][]uint64{0: {1, 2}})
	require.NoError(t, err)

	_, ok := m.Signature(1)

	assert.False(t, ok)
	assert.True(t, m.IsEmpty(1))
	assert.Zero(t, m.Agreement(0, 1))
}

func TestMatrix_SnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	m, err := NewMatrix(2, map[uint32][]uint64{0: {1, 2}, 7: {Unset, Unset}})
	require.NoError(t, err)

	restored, err := FromSnapshot(m.Snapshot())
	require.NoError(t, err)

	assert.True(t, m.Equal(restored))
	assert.True(t, restored.IsEmpty(7))
}

func TestFromSnapshot_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		snap MatrixSnapshot
	}{
		{"zero k", MatrixSnapshot{K: 0}},
		{"short values", MatrixSnapshot{K: 2, IDs: []uint32{0}, Values: []uint64{1}}},
		{"unsorted ids", MatrixSnapshot{K: 1, IDs: []uint32{2, 1}, Values: []uint64{1, 2}}},
		{"duplicate ids", MatrixSnapshot{K: 1, IDs: []uint32{1, 1}, Values: []uint64{1, 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := FromSnapshot(tt.snap)

			require.ErrorIs(t, err, ErrInvalidParameter)
		})
	}
}

func TestMatrix_EqualNil(t *testing.T) {
	t.Parallel()

	var a, b *Matrix

	assert.True(t, a.Equal(b))

	m, err := NewMatrix(1, map[uint32][]uint64{0: {1}})
	require.NoError(t, err)

	assert.False(t, m.Equal(nil))
}

func TestAgreement(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.5, Agreement([]uint64{1, 2}, []uint64{1, 3}), 1e-12)
	assert.Zero(t, Agreement([]uint64{1}, []uint64{1, 2}))
	assert.Zero(t, Agreement(nil, nil))
}

func TestIsEmpty(t *testing.T) {
	t.Parallel()

	assert.True(t, IsEmpty([]uint64{Unset, Unset}))
	assert.True(t, IsEmpty(nil))
	assert.False(t, IsEmpty([]uint64{Unset, 0}))
}
