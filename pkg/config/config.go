// Package config provides YAML-based project configuration for neardup.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Sumatoshi-tech/neardup/pkg/detector"
	"github.com/Sumatoshi-tech/neardup/pkg/persist"
	"github.com/Sumatoshi-tech/neardup/pkg/rank"
	"github.com/Sumatoshi-tech/neardup/pkg/shingle"
)

// Config is the top-level configuration struct for neardup.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Corpus     CorpusConfig     `mapstructure:"corpus"`
	Shingle    ShingleConfig    `mapstructure:"shingle"`
	MinHash    MinHashConfig    `mapstructure:"minhash"`
	LSH        LSHConfig        `mapstructure:"lsh"`
	Similarity SimilarityConfig `mapstructure:"similarity"`
	Artifacts  ArtifactsConfig  `mapstructure:"artifacts"`
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// CorpusConfig holds corpus discovery settings.
type CorpusConfig struct {
	Root    string   `mapstructure:"root"`
	Include []string `mapstructure:"include"`
	Workers int      `mapstructure:"workers"`
}

// ShingleConfig holds shingling settings.
type ShingleConfig struct {
	Size         int    `mapstructure:"size"`
	Mode         string `mapstructure:"mode"`
	KeepNewlines bool   `mapstructure:"keep_newlines"`
	Normalize    bool   `mapstructure:"normalize"`
}

// MinHashConfig holds signature generation settings.
type MinHashConfig struct {
	SignatureLength int   `mapstructure:"signature_length"`
	Seed            int64 `mapstructure:"seed"`
	Workers         int   `mapstructure:"workers"`
}

// LSHConfig holds banding settings.
type LSHConfig struct {
	BandRows int `mapstructure:"band_rows"`
}

// SimilarityConfig holds ranking settings.
type SimilarityConfig struct {
	Metric    string  `mapstructure:"metric"`
	Threshold float64 `mapstructure:"threshold"`
}

// ArtifactsConfig holds model artifact settings.
type ArtifactsConfig struct {
	Dir         string `mapstructure:"dir"`
	Codec       string `mapstructure:"codec"`
	Compression string `mapstructure:"compression"`
}

// ServerConfig holds query server settings.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	QueryCacheSize int           `mapstructure:"query_cache_size"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidCorpusRoot indicates the corpus root is empty.
	ErrInvalidCorpusRoot = errors.New("corpus.root must not be empty")
	// ErrInvalidWorkers indicates a workers value is negative.
	ErrInvalidWorkers = errors.New("workers must be non-negative")
	// ErrInvalidShingleSize indicates the shingle size is not positive.
	ErrInvalidShingleSize = errors.New("shingle.size must be positive")
	// ErrInvalidShingleMode indicates an unknown shingle mode.
	ErrInvalidShingleMode = errors.New("shingle.mode must be char or word")
	// ErrInvalidSignatureLength indicates the signature length is not positive.
	ErrInvalidSignatureLength = errors.New("minhash.signature_length must be positive")
	// ErrInvalidBandRows indicates band rows outside [1, signature_length].
	ErrInvalidBandRows = errors.New("lsh.band_rows must be between 1 and minhash.signature_length")
	// ErrInvalidMetric indicates an unknown similarity metric.
	ErrInvalidMetric = errors.New("similarity.metric must be jaccard, cosine or euclid")
	// ErrInvalidCodec indicates an unknown artifact codec or compression.
	ErrInvalidCodec = errors.New("artifacts.codec or artifacts.compression is unknown")
	// ErrInvalidCacheSize indicates a negative query cache size.
	ErrInvalidCacheSize = errors.New("server.query_cache_size must be non-negative")
	// ErrInvalidSampleRatio indicates the sample ratio is out of range.
	ErrInvalidSampleRatio = errors.New("telemetry.sample_ratio must be between 0 and 1")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if err := c.validateCorpus(); err != nil {
		return err
	}

	if err := c.validateModel(); err != nil {
		return err
	}

	if _, err := c.ArtifactCodec(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCodec, err)
	}

	if c.Server.QueryCacheSize < 0 {
		return ErrInvalidCacheSize
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return ErrInvalidSampleRatio
	}

	return nil
}

func (c *Config) validateCorpus() error {
	if c.Corpus.Root == "" {
		return ErrInvalidCorpusRoot
	}

	if c.Corpus.Workers < 0 || c.MinHash.Workers < 0 {
		return ErrInvalidWorkers
	}

	if c.Shingle.Size <= 0 {
		return ErrInvalidShingleSize
	}

	if _, err := shingle.ParseMode(c.Shingle.Mode); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidShingleMode, c.Shingle.Mode)
	}

	return nil
}

func (c *Config) validateModel() error {
	if c.MinHash.SignatureLength <= 0 {
		return ErrInvalidSignatureLength
	}

	if c.LSH.BandRows < 1 || c.LSH.BandRows > c.MinHash.SignatureLength {
		return fmt.Errorf("%w: %d", ErrInvalidBandRows, c.LSH.BandRows)
	}

	if _, err := rank.ParseMetric(c.Similarity.Metric); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidMetric, c.Similarity.Metric)
	}

	return nil
}

// DetectorParams returns the model build parameters. An unknown metric is
// passed through unchanged so detector.Params.Validate reports it.
func (c *Config) DetectorParams() detector.Params {
	metric, err := rank.ParseMetric(c.Similarity.Metric)
	if err != nil {
		metric = rank.Metric(c.Similarity.Metric)
	}

	return detector.Params{
		SignatureLength: c.MinHash.SignatureLength,
		Seed:            c.MinHash.Seed,
		BandRows:        c.LSH.BandRows,
		Metric:          metric,
		Workers:         c.MinHash.Workers,
	}
}

// Shingler returns the configured shingler.
func (c *Config) Shingler() (*shingle.Shingler, error) {
	mode, err := shingle.ParseMode(c.Shingle.Mode)
	if err != nil {
		return nil, err
	}

	return shingle.New(
		shingle.WithSize(c.Shingle.Size),
		shingle.WithMode(mode),
		shingle.WithKeepNewlines(c.Shingle.KeepNewlines),
		shingle.WithNormalize(c.Shingle.Normalize),
	)
}

// ArtifactCodec returns the codec used for model artifacts.
func (c *Config) ArtifactCodec() (persist.Codec, error) {
	compression, err := persist.ParseCompression(c.Artifacts.Compression)
	if err != nil {
		return nil, err
	}

	return persist.CodecFor(c.Artifacts.Codec, compression)
}
