package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/neardup/pkg/detector"
)

// candidateBucketBoundaries spans single hits up to degenerate buckets.
var candidateBucketBoundaries = []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 1000, 10000}

var (
	buildsTotal     = instrument{Name: "builds.total", Description: "Total model builds", Unit: "{build}"}
	buildDuration   = instrument{Name: "build.duration.seconds", Description: "Model build duration in seconds", Unit: "s", Bounds: durationBucketBoundaries}
	modelDocuments  = instrument{Name: "model.documents", Description: "Documents in the model", Unit: "{document}"}
	modelShingles   = instrument{Name: "model.shingles", Description: "Distinct shingles in the model", Unit: "{shingle}"}
	modelEmpty      = instrument{Name: "model.empty_documents", Description: "Documents without shingles", Unit: "{document}"}
	modelBuckets    = instrument{Name: "model.buckets", Description: "Non-empty LSH buckets across all bands", Unit: "{bucket}"}
	modelMaxBucket  = instrument{Name: "model.bucket.max_size", Description: "Largest LSH bucket", Unit: "{document}"}
	queriesTotal    = instrument{Name: "queries.total", Description: "Total similarity queries", Unit: "{query}"}
	queryDuration   = instrument{Name: "query.duration.seconds", Description: "Query duration in seconds", Unit: "s", Bounds: durationBucketBoundaries}
	queryCandidates = instrument{Name: "query.candidates", Description: "Candidates per query", Unit: "{document}", Bounds: candidateBucketBoundaries}
)

// DetectorMetrics records model build and query measurements. It implements
// detector.Metrics.
type DetectorMetrics struct {
	buildsTotal     metric.Int64Counter
	buildDuration   metric.Float64Histogram
	documents       metric.Int64Gauge
	shingles        metric.Int64Gauge
	emptyDocuments  metric.Int64Gauge
	buckets         metric.Int64Gauge
	maxBucket       metric.Int64Gauge
	queriesTotal    metric.Int64Counter
	queryDuration   metric.Float64Histogram
	queryCandidates metric.Int64Histogram
}

var _ detector.Metrics = (*DetectorMetrics)(nil)

// NewDetectorMetrics creates detector metric instruments from the given meter.
func NewDetectorMetrics(mt metric.Meter) (*DetectorMetrics, error) {
	b := newMetricBuilder(mt)

	dm := &DetectorMetrics{
		buildsTotal:     b.counter(buildsTotal),
		buildDuration:   b.seconds(buildDuration),
		documents:       b.gauge(modelDocuments),
		shingles:        b.gauge(modelShingles),
		emptyDocuments:  b.gauge(modelEmpty),
		buckets:         b.gauge(modelBuckets),
		maxBucket:       b.gauge(modelMaxBucket),
		queriesTotal:    b.counter(queriesTotal),
		queryDuration:   b.seconds(queryDuration),
		queryCandidates: b.sizes(queryCandidates),
	}

	if b.err != nil {
		return nil, b.err
	}

	return dm, nil
}

// RecordBuild implements detector.Metrics. Safe to call on a nil receiver.
func (dm *DetectorMetrics) RecordBuild(ctx context.Context, stats detector.BuildStats) {
	if dm == nil {
		return
	}

	dm.buildsTotal.Add(ctx, 1)
	dm.buildDuration.Record(ctx, stats.Duration.Seconds())
	dm.documents.Record(ctx, int64(stats.Documents))
	dm.shingles.Record(ctx, int64(stats.Shingles))
	dm.emptyDocuments.Record(ctx, int64(stats.EmptyDocuments))
	dm.buckets.Record(ctx, int64(stats.Buckets.Buckets))
	dm.maxBucket.Record(ctx, int64(stats.Buckets.MaxBucket))
}

// RecordQuery implements detector.Metrics. Safe to call on a nil receiver.
func (dm *DetectorMetrics) RecordQuery(ctx context.Context, candidates int, duration time.Duration) {
	if dm == nil {
		return
	}

	dm.queriesTotal.Add(ctx, 1)
	dm.queryDuration.Record(ctx, duration.Seconds())
	dm.queryCandidates.Record(ctx, int64(candidates))
}
