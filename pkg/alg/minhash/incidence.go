package minhash

import (
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"
)

// ErrDuplicateTerm is returned when a vocabulary lists the same shingle twice.
var ErrDuplicateTerm = errors.New("minhash: duplicate vocabulary term")

// Vocabulary maps shingle strings to dense row indices in first-seen order.
// It is immutable and safe for concurrent use.
type Vocabulary struct {
	terms []string
	index map[string]uint32
}

// NewVocabulary creates a vocabulary whose row i is terms[i].
func NewVocabulary(terms []string) (*Vocabulary, error) {
	index := make(map[string]uint32, len(terms))

	for i, term := range terms {
		if _, dup := index[term]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTerm, term)
		}

		index[term] = uint32(i)
	}

	return &Vocabulary{terms: slices.Clone(terms), index: index}, nil
}

// Len returns the number of rows.
func (v *Vocabulary) Len() int {
	return len(v.terms)
}

// Row returns the row index of a shingle.
func (v *Vocabulary) Row(term string) (uint32, bool) {
	row, ok := v.index[term]

	return row, ok
}

// Term returns the shingle stored at row.
func (v *Vocabulary) Term(row uint32) string {
	return v.terms[row]
}

// Terms returns a copy of the shingles in row order.
func (v *Vocabulary) Terms() []string {
	return slices.Clone(v.terms)
}

// Lookup resolves shingles to sorted, deduplicated row indices.
// Shingles missing from the vocabulary are dropped.
func (v *Vocabulary) Lookup(shingles []string) []uint32 {
	rows := make([]uint32, 0, len(shingles))

	for _, s := range shingles {
		if row, ok := v.index[s]; ok {
			rows = append(rows, row)
		}
	}

	slices.Sort(rows)

	return slices.Compact(rows)
}

// Builder accumulates (shingle, document) pairs. Rows are numbered in the
// order their shingle is first seen. A Builder is not safe for concurrent use.
type Builder struct {
	rows  map[string]uint32
	terms []string
	docs  map[uint32][]uint32
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		rows: make(map[string]uint32),
		docs: make(map[uint32][]uint32),
	}
}

// Add records that shingle occurs in doc. Repeated pairs are harmless.
func (b *Builder) Add(shingle string, doc uint32) {
	row, ok := b.rows[shingle]
	if !ok {
		row = uint32(len(b.terms))
		b.rows[shingle] = row
		b.terms = append(b.terms, shingle)
	}

	b.docs[doc] = append(b.docs[doc], row)
}

// AddDocument registers doc with its shingles. A document with no shingles is
// still registered and later receives the empty signature.
func (b *Builder) AddDocument(doc uint32, shingles []string) {
	if _, ok := b.docs[doc]; !ok {
		b.docs[doc] = nil
	}

	for _, s := range shingles {
		b.Add(s, doc)
	}
}

// AddPairs records every pair yielded by pairs.
func (b *Builder) AddPairs(pairs iter.Seq2[string, uint32]) {
	for shingle, doc := range pairs {
		b.Add(shingle, doc)
	}
}

// Build freezes the accumulated pairs into an immutable incidence relation.
// The builder may keep accepting pairs afterwards; later calls to Build see them.
func (b *Builder) Build() *Incidence {
	ids := slices.Sorted(maps.Keys(b.docs))
	cols := make([][]uint32, len(ids))
	nnz := 0

	for i, id := range ids {
		col := slices.Clone(b.docs[id])
		slices.Sort(col)
		col = slices.Compact(col)

		cols[i] = col
		nnz += len(col)
	}

	return &Incidence{
		vocab: &Vocabulary{terms: slices.Clone(b.terms), index: maps.Clone(b.rows)},
		ids:   ids,
		cols:  cols,
		nnz:   nnz,
	}
}

// Incidence is a sparse boolean shingle/document relation stored column-major:
// each document owns the sorted list of rows present in it.
type Incidence struct {
	vocab *Vocabulary
	ids   []uint32
	cols  [][]uint32
	nnz   int
}

// Rows returns the size of the shingle universe.
func (inc *Incidence) Rows() int {
	return inc.vocab.Len()
}

// Docs returns the number of registered documents.
func (inc *Incidence) Docs() int {
	return len(inc.ids)
}

// NonZero returns the number of present (shingle, document) pairs.
func (inc *Incidence) NonZero() int {
	return inc.nnz
}

// IDs returns the document ids in ascending order.
func (inc *Incidence) IDs() []uint32 {
	return slices.Clone(inc.ids)
}

// Column returns the sorted rows present in doc. The slice must not be modified.
func (inc *Incidence) Column(doc uint32) ([]uint32, bool) {
	i, ok := slices.BinarySearch(inc.ids, doc)
	if !ok {
		return nil, false
	}

	return inc.cols[i], true
}

// Vocabulary returns the row index of the relation.
func (inc *Incidence) Vocabulary() *Vocabulary {
	return inc.vocab
}

// Lookup resolves shingles against the relation's vocabulary.
func (inc *Incidence) Lookup(shingles []string) []uint32 {
	return inc.vocab.Lookup(shingles)
}

// Pairs yields every present (shingle, document) pair in document order.
func (inc *Incidence) Pairs() iter.Seq2[string, uint32] {
	return func(yield func(string, uint32) bool) {
		for i, id := range inc.ids {
			for _, row := range inc.cols[i] {
				if !yield(inc.vocab.terms[row], id) {
					return
				}
			}
		}
	}
}
