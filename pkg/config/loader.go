package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".neardup"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for neardup settings.
const envPrefix = "NEARDUP"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("corpus.root", DefaultCorpusRoot)
	viperCfg.SetDefault("corpus.include", []string{DefaultCorpusInclude})
	viperCfg.SetDefault("corpus.workers", DefaultCorpusWorkers)

	viperCfg.SetDefault("shingle.size", DefaultShingleSize)
	viperCfg.SetDefault("shingle.mode", DefaultShingleMode)
	viperCfg.SetDefault("shingle.keep_newlines", DefaultShingleKeepNewlines)
	viperCfg.SetDefault("shingle.normalize", DefaultShingleNormalize)

	viperCfg.SetDefault("minhash.signature_length", DefaultSignatureLength)
	viperCfg.SetDefault("minhash.seed", DefaultSeed)
	viperCfg.SetDefault("minhash.workers", DefaultMinHashWorkers)

	viperCfg.SetDefault("lsh.band_rows", DefaultBandRows)

	viperCfg.SetDefault("similarity.metric", DefaultMetric)
	viperCfg.SetDefault("similarity.threshold", DefaultThreshold)

	viperCfg.SetDefault("artifacts.dir", DefaultArtifactsDir)
	viperCfg.SetDefault("artifacts.codec", DefaultArtifactsCodec)
	viperCfg.SetDefault("artifacts.compression", DefaultArtifactsCompression)

	viperCfg.SetDefault("server.addr", DefaultServerAddr)
	viperCfg.SetDefault("server.read_timeout", DefaultServerReadTimeout)
	viperCfg.SetDefault("server.write_timeout", DefaultServerWriteTimeout)
	viperCfg.SetDefault("server.query_cache_size", DefaultServerQueryCacheSize)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", DefaultLogJSON)

	viperCfg.SetDefault("telemetry.otlp_endpoint", DefaultOTLPEndpoint)
	viperCfg.SetDefault("telemetry.otlp_headers", DefaultOTLPHeaders)
	viperCfg.SetDefault("telemetry.otlp_insecure", DefaultOTLPInsecure)
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultSampleRatio)
}
