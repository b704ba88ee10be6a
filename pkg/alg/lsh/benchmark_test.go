package lsh

import (
	"context"
	"fmt"
	"testing"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/minhash"
)

// Benchmark constants.
const (
	// benchRows is the number of rows per band for benchmarks.
	benchRows = 8

	// benchNumHashes is the signature length for benchmarks.
	benchNumHashes = 128

	// benchIndexSize is the number of documents to band.
	benchIndexSize = 1000

	// benchTokensPerDoc is the number of shingles per document.
	benchTokensPerDoc = 50
)

func benchMatrix(b *testing.B) *minhash.Matrix {
	b.Helper()

	builder := minhash.NewBuilder()

	for doc := range uint32(benchIndexSize) {
		for j := range benchTokensPerDoc {
			builder.Add(fmt.Sprintf("tok_%d", (int(doc)+j)%(benchIndexSize*2)), doc)
		}
	}

	m, err := minhash.Generate(context.Background(), builder.Build(), benchNumHashes, 1)
	if err != nil {
		b.Fatal(err)
	}

	return m
}

func BenchmarkBuild1K(b *testing.B) {
	m := benchMatrix(b)

	b.ReportAllocs()
	b.ResetTimer()

	for range b.N {
		if _, err := Build(context.Background(), m, benchRows); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkQuery1K(b *testing.B) {
	m := benchMatrix(b)

	buckets, err := Build(context.Background(), m, benchRows)
	if err != nil {
		b.Fatal(err)
	}

	idx := NewIndex(buckets)
	sig, _ := m.Signature(benchIndexSize / 2)

	b.ReportAllocs()
	b.ResetTimer()

	for range b.N {
		if _, err := idx.Query(sig, benchIndexSize/2, true); err != nil {
			b.Fatal(err)
		}
	}
}
