package detector

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/hashfamily"
	"github.com/Sumatoshi-tech/neardup/pkg/alg/lsh"
	"github.com/Sumatoshi-tech/neardup/pkg/alg/minhash"
	"github.com/Sumatoshi-tech/neardup/pkg/persist"
)

// ArtifactBasename is the file name, without extension, of a saved model.
const ArtifactBasename = "neardup-model"

// artifactVersion is bumped whenever Artifact changes incompatibly.
const artifactVersion = 1

// Artifact is the on-disk form of a Model.
type Artifact struct {
	Version    int                    `json:"version"`
	Params     Params                 `json:"params"`
	Vocabulary []string               `json:"vocabulary"`
	Paths      map[uint32]string      `json:"paths"`
	Matrix     minhash.MatrixSnapshot `json:"matrix"`
	Buckets    lsh.BucketsSnapshot    `json:"buckets"`
	Stats      BuildStats             `json:"stats"`
	SavedAt    time.Time              `json:"saved_at"`
}

// Persister returns the persister used for model artifacts with codec.
func Persister(codec persist.Codec) *persist.Persister[Artifact] {
	return persist.NewPersister[Artifact](ArtifactBasename, codec)
}

// Artifact returns the serializable form of the model.
func (m *Model) Artifact() *Artifact {
	return &Artifact{
		Version:    artifactVersion,
		Params:     m.params,
		Vocabulary: m.vocab.Terms(),
		Paths:      m.paths,
		Matrix:     m.matrix.Snapshot(),
		Buckets:    m.buckets.Snapshot(),
		Stats:      m.stats,
		SavedAt:    time.Now().UTC(),
	}
}

// artifactDirMode is the permission of a created artifacts directory.
const artifactDirMode = 0o755

// Save writes the model into dir with codec, creating dir if needed.
func (m *Model) Save(dir string, codec persist.Codec) error {
	if err := os.MkdirAll(dir, artifactDirMode); err != nil {
		return fmt.Errorf("detector: save: %w", err)
	}

	if err := Persister(codec).Save(dir, m.Artifact()); err != nil {
		return fmt.Errorf("detector: save: %w", err)
	}

	m.logger.Debug("model saved", "path", Persister(codec).Path(dir))

	return nil
}

// Load reads a model saved with Save.
func Load(dir string, codec persist.Codec, opts ...Option) (*Model, error) {
	art, err := Persister(codec).Load(dir)
	if err != nil {
		return nil, fmt.Errorf("detector: load: %w", err)
	}

	return FromArtifact(art, opts...)
}

// FromArtifact restores a model. The hash family is redrawn from the saved
// parameters, so out-of-corpus queries hash exactly as at build time.
func FromArtifact(art *Artifact, opts ...Option) (*Model, error) {
	if art.Version != artifactVersion {
		return nil, fmt.Errorf("%w: artifact version %d, want %d", ErrInvalidParameter, art.Version, artifactVersion)
	}

	if err := art.Params.Validate(); err != nil {
		return nil, err
	}

	o := newOptions(opts)
	if art.Paths != nil {
		o.paths = art.Paths
	}

	vocab, err := minhash.NewVocabulary(art.Vocabulary)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}

	family, err := hashfamily.New(vocab.Len(), art.Params.SignatureLength, art.Params.Seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}

	matrix, err := minhash.FromSnapshot(art.Matrix)
	if err != nil {
		return nil, fmt.Errorf("detector: restore matrix: %w", err)
	}

	var bopts []lsh.BuildOption
	if o.hasher != nil {
		bopts = append(bopts, lsh.WithBandHasher(o.hasher))
	}

	buckets, err := lsh.FromSnapshot(art.Buckets, bopts...)
	if err != nil {
		return nil, fmt.Errorf("detector: restore buckets: %w", err)
	}

	if matrix.K() != art.Params.SignatureLength || buckets.K() != matrix.K() || buckets.Rows() != art.Params.BandRows {
		return nil, fmt.Errorf("%w: artifact shape does not match its parameters", ErrInvalidParameter)
	}

	o.logger.Debug("model restored",
		slog.Int("documents", matrix.Len()),
		slog.Int("shingles", vocab.Len()))

	return &Model{
		params:  art.Params,
		family:  family,
		vocab:   vocab,
		paths:   o.paths,
		matrix:  matrix,
		buckets: buckets,
		index:   lsh.NewIndex(buckets),
		stats:   art.Stats,
		metrics: o.metrics,
		logger:  o.logger,
	}, nil
}
