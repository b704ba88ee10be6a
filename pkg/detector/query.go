package detector

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/minhash"
	"github.com/Sumatoshi-tech/neardup/pkg/rank"
)

// Pair is a candidate pair whose score meets a threshold. A < B.
type Pair struct {
	A     uint32  `json:"a"     yaml:"a"`
	B     uint32  `json:"b"     yaml:"b"`
	Score float64 `json:"score" yaml:"score"`
}

// Evaluation is the precision and recall of one query at one threshold.
// An undefined ratio clears its Defined flag and leaves the value zero.
type Evaluation struct {
	Threshold        float64 `json:"threshold"         yaml:"threshold"`
	Precision        float64 `json:"precision"         yaml:"precision"`
	Recall           float64 `json:"recall"            yaml:"recall"`
	PrecisionDefined bool    `json:"precision_defined" yaml:"precision_defined"`
	RecallDefined    bool    `json:"recall_defined"    yaml:"recall_defined"`
	Retrieved        int     `json:"retrieved"         yaml:"retrieved"`
}

func (m *Model) metricOr(metric rank.Metric) rank.Metric {
	if metric == "" {
		return m.params.Metric
	}

	return metric
}

func (m *Model) signature(id uint32) ([]uint64, error) {
	sig, ok := m.matrix.Signature(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDocument, id)
	}

	return sig, nil
}

// Candidates returns the ids sharing at least one bucket with id.
func (m *Model) Candidates(id uint32) ([]uint32, error) {
	sig, err := m.signature(id)
	if err != nil {
		return nil, err
	}

	return m.index.Candidates(sig, id, true)
}

// Query ranks the candidates of an indexed document. An empty metric selects
// the model's default. A document without shingles yields an empty result
// together with an error wrapping minhash.ErrEmptySignature.
func (m *Model) Query(ctx context.Context, id uint32, metric rank.Metric) ([]rank.Result, error) {
	sig, err := m.signature(id)
	if err != nil {
		return nil, err
	}

	return m.query(ctx, sig, id, true, m.metricOr(metric))
}

// QueryShingles ranks indexed documents against a document outside the
// corpus. Shingles missing from the vocabulary cannot match and are dropped.
func (m *Model) QueryShingles(ctx context.Context, shingles []string, metric rank.Metric) ([]rank.Result, error) {
	sig := minhash.Fingerprint(m.family, m.vocab.Lookup(shingles))

	return m.query(ctx, sig, 0, false, m.metricOr(metric))
}

func (m *Model) query(ctx context.Context, sig []uint64, self uint32, hasSelf bool, metric rank.Metric) ([]rank.Result, error) {
	if err := metric.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "detector.query",
		trace.WithAttributes(
			attribute.String("rank.metric", metric.String()),
			attribute.Bool("query.in_corpus", hasSelf),
		))
	defer span.End()

	if minhash.IsEmpty(sig) {
		if hasSelf {
			return []rank.Result{}, fmt.Errorf("%w: document %d", minhash.ErrEmptySignature, self)
		}

		return []rank.Result{}, fmt.Errorf("%w: no known shingles", minhash.ErrEmptySignature)
	}

	candidates, err := m.index.Candidates(sig, self, hasSelf)
	if err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("detector: candidates: %w", err)
	}

	results, err := rank.RankSignature(sig, self, hasSelf, candidates, m.matrix, metric)
	if err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("detector: rank: %w", err)
	}

	span.SetAttributes(attribute.Int("query.candidates", len(candidates)))

	if m.metrics != nil {
		m.metrics.RecordQuery(ctx, len(candidates), time.Since(start))
	}

	return results, nil
}

// Pairs returns every candidate pair whose score meets threshold, best first
// and then by (A, B).
func (m *Model) Pairs(ctx context.Context, metric rank.Metric, threshold float64) ([]Pair, error) {
	metric = m.metricOr(metric)
	if err := metric.Validate(); err != nil {
		return nil, err
	}

	var pairs []Pair

	for _, id := range m.matrix.IDs() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sig, _ := m.matrix.Signature(id)

		candidates, err := m.index.Candidates(sig, id, true)
		if err != nil {
			return nil, fmt.Errorf("detector: candidates of %d: %w", id, err)
		}

		for _, other := range candidates {
			if other < id {
				continue
			}

			otherSig, _ := m.matrix.Signature(other)
			if score := metric.Score(sig, otherSig); metric.Meets(score, threshold) {
				pairs = append(pairs, Pair{A: id, B: other, Score: score})
			}
		}
	}

	slices.SortFunc(pairs, func(x, y Pair) int {
		c := cmp.Compare(y.Score, x.Score)
		if metric.IsDistance() {
			c = -c
		}

		return cmp.Or(c, cmp.Compare(x.A, y.A), cmp.Compare(x.B, y.B))
	})

	return pairs, nil
}

// Evaluate measures the precision and recall of the LSH query for id at
// threshold. Recall is computed against an exhaustive ranking of the model.
func (m *Model) Evaluate(ctx context.Context, threshold float64, id uint32, metric rank.Metric) (Evaluation, error) {
	metric = m.metricOr(metric)

	ranked, err := m.Query(ctx, id, metric)
	if err != nil && !errors.Is(err, minhash.ErrEmptySignature) {
		return Evaluation{}, err
	}

	ev := Evaluation{Threshold: threshold, Retrieved: len(ranked)}

	precision, err := rank.Precision(threshold, ranked, metric)
	switch {
	case err == nil:
		ev.Precision, ev.PrecisionDefined = precision, true
	case !errors.Is(err, rank.ErrDivisionUndefined):
		return Evaluation{}, err
	}

	recall, err := rank.Recall(threshold, id, m.corpusSize(), ranked, m.matrix, metric)
	switch {
	case err == nil:
		ev.Recall, ev.RecallDefined = recall, true
	case !errors.Is(err, rank.ErrDivisionUndefined):
		return Evaluation{}, err
	}

	return ev, nil
}

// corpusSize is one past the largest document id.
func (m *Model) corpusSize() int {
	ids := m.matrix.IDs()
	if len(ids) == 0 {
		return 0
	}

	return int(ids[len(ids)-1]) + 1
}
