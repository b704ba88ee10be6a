package config

import (
	"github.com/Sumatoshi-tech/neardup/pkg/corpus"
	"github.com/Sumatoshi-tech/neardup/pkg/persist"
	"github.com/Sumatoshi-tech/neardup/pkg/rank"
	"github.com/Sumatoshi-tech/neardup/pkg/shingle"
)

// Corpus defaults.
const (
	DefaultCorpusRoot    = "corpus"
	DefaultCorpusInclude = corpus.DefaultInclude
	DefaultCorpusWorkers = 0
)

// Shingle defaults.
const (
	DefaultShingleSize         = shingle.DefaultSize
	DefaultShingleMode         = string(shingle.ModeChar)
	DefaultShingleKeepNewlines = false
	DefaultShingleNormalize    = false
)

// MinHash defaults.
const (
	DefaultSignatureLength = 200
	DefaultSeed            = 1
	DefaultMinHashWorkers  = 0
)

// LSH defaults. 40 bands of 5 rows put the S-curve midpoint near 0.48.
const (
	DefaultBandRows = 5
)

// Similarity defaults.
const (
	DefaultMetric    = string(rank.Jaccard)
	DefaultThreshold = 0.5
)

// Artifact defaults.
const (
	DefaultArtifactsDir         = ".neardup"
	DefaultArtifactsCodec       = persist.CodecGob
	DefaultArtifactsCompression = string(persist.CompressionLZ4)
)

// Server defaults.
const (
	DefaultServerAddr           = ":8080"
	DefaultServerReadTimeout    = "10s"
	DefaultServerWriteTimeout   = "30s"
	DefaultServerQueryCacheSize = 1024
)

// Logging defaults.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false
)

// Telemetry defaults.
const (
	DefaultOTLPEndpoint = ""
	DefaultOTLPHeaders  = ""
	DefaultOTLPInsecure = false
	DefaultSampleRatio  = 1.0
)
