// Package detector wires the MinHash generator, the LSH banding engine and
// the ranker into a near-duplicate detection model.
//
// A Model is built once from an incidence relation, may be saved to and
// loaded from disk, and then serves concurrent queries without locking.
package detector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/hashfamily"
	"github.com/Sumatoshi-tech/neardup/pkg/alg/lsh"
	"github.com/Sumatoshi-tech/neardup/pkg/alg/minhash"
)

// tracerName is the OTel tracer name for detector spans.
const tracerName = "neardup/detector"

// ErrUnknownDocument is returned when a document id is not in the model.
var ErrUnknownDocument = errors.New("detector: unknown document")

// BuildStats describes a finished build.
type BuildStats struct {
	Documents      int           `json:"documents"       yaml:"documents"`
	Shingles       int           `json:"shingles"        yaml:"shingles"`
	NonZero        int           `json:"non_zero"        yaml:"non_zero"`
	EmptyDocuments int           `json:"empty_documents" yaml:"empty_documents"`
	Buckets        lsh.Stats     `json:"buckets"         yaml:"buckets"`
	Duration       time.Duration `json:"duration"        yaml:"duration"`
}

// Metrics receives detector measurements. Implementations must be safe for
// concurrent use.
type Metrics interface {
	RecordBuild(ctx context.Context, stats BuildStats)
	RecordQuery(ctx context.Context, candidates int, duration time.Duration)
}

type options struct {
	logger  *slog.Logger
	metrics Metrics
	paths   map[uint32]string
	hasher  lsh.BandHasher
}

// Option configures Build and Load.
type Option func(*options)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records build and query measurements.
func WithMetrics(m Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithPaths attaches a source path to each document id.
func WithPaths(paths map[uint32]string) Option {
	return func(o *options) { o.paths = paths }
}

// WithBandHasher replaces the default band key function.
func WithBandHasher(h lsh.BandHasher) Option {
	return func(o *options) { o.hasher = h }
}

func newOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if o.paths == nil {
		o.paths = map[uint32]string{}
	}

	return o
}

func (o options) bandOptions(workers int) []lsh.BuildOption {
	bopts := []lsh.BuildOption{lsh.WithWorkers(workers)}
	if o.hasher != nil {
		bopts = append(bopts, lsh.WithBandHasher(o.hasher))
	}

	return bopts
}

// Model is a built detector. It is immutable and safe for concurrent use.
type Model struct {
	params  Params
	family  *hashfamily.Family
	vocab   *minhash.Vocabulary
	paths   map[uint32]string
	matrix  *minhash.Matrix
	buckets *lsh.Buckets
	index   *lsh.Index
	stats   BuildStats
	metrics Metrics
	logger  *slog.Logger
}

// Build generates signatures for inc and bands them.
func Build(ctx context.Context, inc *minhash.Incidence, params Params, opts ...Option) (*Model, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	o := newOptions(opts)
	start := time.Now()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "detector.build",
		trace.WithAttributes(
			attribute.Int("minhash.k", params.SignatureLength),
			attribute.Int("lsh.rows", params.BandRows),
			attribute.Int("lsh.bands", params.Bands()),
		))
	defer span.End()

	if inc == nil || inc.Rows() == 0 || inc.Docs() == 0 {
		err := fmt.Errorf("%w: corpus has no shingles", ErrInvalidParameter)
		span.RecordError(err)

		return nil, err
	}

	family, err := hashfamily.New(inc.Rows(), params.SignatureLength, params.Seed)
	if err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}

	matrix, err := signatures(ctx, inc, family, params.Workers)
	if err != nil {
		span.RecordError(err)

		return nil, err
	}

	buckets, err := banding(ctx, matrix, params.BandRows, o.bandOptions(params.Workers))
	if err != nil {
		span.RecordError(err)

		return nil, err
	}

	m := &Model{
		params:  params,
		family:  family,
		vocab:   inc.Vocabulary(),
		paths:   o.paths,
		matrix:  matrix,
		buckets: buckets,
		index:   lsh.NewIndex(buckets),
		metrics: o.metrics,
		logger:  o.logger,
	}

	m.stats = BuildStats{
		Documents:      inc.Docs(),
		Shingles:       inc.Rows(),
		NonZero:        inc.NonZero(),
		EmptyDocuments: buckets.Stats().Skipped,
		Buckets:        buckets.Stats(),
		Duration:       time.Since(start),
	}

	span.SetAttributes(
		attribute.Int("corpus.documents", m.stats.Documents),
		attribute.Int("corpus.shingles", m.stats.Shingles),
		attribute.Int("lsh.max_bucket", m.stats.Buckets.MaxBucket),
	)

	if m.metrics != nil {
		m.metrics.RecordBuild(ctx, m.stats)
	}

	m.logger.InfoContext(ctx, "detector built",
		"documents", m.stats.Documents,
		"shingles", m.stats.Shingles,
		"empty_documents", m.stats.EmptyDocuments,
		"bands", buckets.Bands(),
		"max_bucket", m.stats.Buckets.MaxBucket,
		"duration", m.stats.Duration)

	if m.stats.EmptyDocuments > 0 {
		m.logger.WarnContext(ctx, "documents without shingles are not indexed",
			"count", m.stats.EmptyDocuments)
	}

	return m, nil
}

func signatures(ctx context.Context, inc *minhash.Incidence, family *hashfamily.Family, workers int) (*minhash.Matrix, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "detector.signatures")
	defer span.End()

	matrix, err := minhash.GenerateWithFamily(ctx, inc, family, minhash.WithWorkers(workers))
	if err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("detector: signatures: %w", err)
	}

	return matrix, nil
}

func banding(ctx context.Context, matrix *minhash.Matrix, rows int, opts []lsh.BuildOption) (*lsh.Buckets, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "detector.banding")
	defer span.End()

	buckets, err := lsh.Build(ctx, matrix, rows, opts...)
	if err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("detector: banding: %w", err)
	}

	return buckets, nil
}

// Params returns the build parameters.
func (m *Model) Params() Params {
	return m.params
}

// Matrix returns the signature matrix.
func (m *Model) Matrix() *minhash.Matrix {
	return m.matrix
}

// Buckets returns the LSH buckets.
func (m *Model) Buckets() *lsh.Buckets {
	return m.buckets
}

// Vocabulary returns the shingle row index.
func (m *Model) Vocabulary() *minhash.Vocabulary {
	return m.vocab
}

// Stats returns the build statistics. Loaded models report the statistics
// of the build that produced them.
func (m *Model) Stats() BuildStats {
	return m.stats
}

// Path returns the source path recorded for id.
func (m *Model) Path(id uint32) (string, bool) {
	p, ok := m.paths[id]

	return p, ok
}

// Lookup returns the id whose recorded path is path.
func (m *Model) Lookup(path string) (uint32, bool) {
	for id, p := range m.paths {
		if p == path {
			return id, true
		}
	}

	return 0, false
}
