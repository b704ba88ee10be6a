package lsh

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/minhash"
)

// Index answers candidate queries against built buckets. Queries only read
// shared state, so an Index is safe for concurrent use without locking.
type Index struct {
	buckets *Buckets
}

// NewIndex wraps b for querying.
func NewIndex(b *Buckets) *Index {
	return &Index{buckets: b}
}

// Buckets returns the underlying buckets.
func (idx *Index) Buckets() *Buckets {
	return idx.buckets
}

// Query returns every document sharing a bucket with sig in at least one
// band. When hasSelf is true, self is removed from the result. The empty
// signature matches nothing.
func (idx *Index) Query(sig []uint64, self uint32, hasSelf bool) (*roaring.Bitmap, error) {
	keys, err := idx.buckets.Keys(sig)
	if err != nil {
		return nil, err
	}

	result := roaring.New()

	if minhash.IsEmpty(sig) {
		return result, nil
	}

	for band, key := range keys {
		result.AddMany(idx.buckets.bands[band][key])
	}

	if hasSelf {
		result.Remove(self)
	}

	return result, nil
}

// Candidates is Query returning ascending document ids.
func (idx *Index) Candidates(sig []uint64, self uint32, hasSelf bool) ([]uint32, error) {
	bm, err := idx.Query(sig, self, hasSelf)
	if err != nil {
		return nil, err
	}

	return bm.ToArray(), nil
}
