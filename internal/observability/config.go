// Package observability provides OpenTelemetry-based tracing, metrics, and
// structured logging for the neardup CLI and query server.
package observability

import (
	"io"
	"log/slog"
	"time"
)

// AppMode identifies the application execution mode.
type AppMode string

const (
	// ModeCLI is the one-shot command mode.
	ModeCLI AppMode = "cli"
	// ModeServe is the HTTP query server mode.
	ModeServe AppMode = "serve"
)

const (
	// defaultServiceName is the default OTel service name.
	defaultServiceName = "neardup"

	// defaultShutdownTimeout bounds the telemetry flush on shutdown.
	defaultShutdownTimeout = 5 * time.Second
)

// Config holds all observability configuration.
type Config struct {
	// ServiceName is the OTel resource service name.
	ServiceName string

	// ServiceVersion is the semantic version of the running binary.
	ServiceVersion string

	// Environment is the deployment environment (e.g. "production", "dev").
	Environment string

	// Mode identifies how the binary was launched.
	Mode AppMode

	// OTLPEndpoint is the OTLP gRPC collector address (e.g. "localhost:4317").
	// Empty disables OTLP export.
	OTLPEndpoint string

	// OTLPHeaders are additional gRPC metadata headers for the OTLP exporter.
	OTLPHeaders map[string]string

	// OTLPInsecure disables TLS for the OTLP gRPC connection.
	OTLPInsecure bool

	// SampleRatio is the root trace sampling ratio. Zero samples everything.
	SampleRatio float64

	// Prometheus attaches a Prometheus reader to the meter provider and
	// exposes it through Providers.MetricsHandler.
	Prometheus bool

	// LogLevel controls the minimum slog severity.
	LogLevel slog.Level

	// LogJSON enables JSON-formatted log output.
	LogJSON bool

	// LogWriter receives log output. Nil means os.Stderr.
	LogWriter io.Writer

	// ShutdownTimeout is the maximum time to wait for flush on shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults for zero-config startup.
func DefaultConfig() Config {
	return Config{
		ServiceName:     defaultServiceName,
		Mode:            ModeCLI,
		LogLevel:        slog.LevelInfo,
		ShutdownTimeout: defaultShutdownTimeout,
	}
}
