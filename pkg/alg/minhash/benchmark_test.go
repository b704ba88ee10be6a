package minhash

import (
	"context"
	"fmt"
	"testing"
)

// Benchmark constants.
const (
	// benchNumHashes is the signature length for benchmarks.
	benchNumHashes = 128

	// benchDocs is the number of documents in the benchmark corpus.
	benchDocs = 1000

	// benchShinglesPerDoc is the number of shingles per benchmark document.
	benchShinglesPerDoc = 100
)

func benchIncidence() *Incidence {
	b := NewBuilder()

	for doc := range uint32(benchDocs) {
		for j := range benchShinglesPerDoc {
			b.Add(fmt.Sprintf("shingle_%d", (int(doc)*31+j*17)%(benchDocs*10)), doc)
		}
	}

	return b.Build()
}

func BenchmarkGenerate_Serial(b *testing.B) {
	inc := benchIncidence()

	b.ReportAllocs()
	b.ResetTimer()

	for range b.N {
		if _, err := Generate(context.Background(), inc, benchNumHashes, 1, WithWorkers(1)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkGenerate_Parallel(b *testing.B) {
	inc := benchIncidence()

	b.ReportAllocs()
	b.ResetTimer()

	for range b.N {
		if _, err := Generate(context.Background(), inc, benchNumHashes, 1); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAgreement_128(b *testing.B) {
	x := make([]uint64, benchNumHashes)
	y := make([]uint64, benchNumHashes)

	for i := range x {
		x[i] = uint64(i)
		y[i] = uint64(i % 3)
	}

	b.ReportAllocs()
	b.ResetTimer()

	for range b.N {
		_ = Agreement(x, y)
	}
}
