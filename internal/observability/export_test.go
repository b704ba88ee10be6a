package observability

import (
	"context"

	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// ExportBuildResource exposes buildResource for testing.
func ExportBuildResource(cfg Config) (*resource.Resource, error) {
	return buildResource(cfg)
}

// SampledRootSpan reports whether a root span is sampled under the sampler
// resolved from cfg.
func SampledRootSpan(cfg Config) bool {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(selectSampler(cfg)),
	)

	_, span := tp.Tracer("test").Start(context.Background(), "root")
	span.End()

	// Shutdown clears the exporter.
	spans := exporter.GetSpans()

	if err := tp.Shutdown(context.Background()); err != nil {
		return false
	}

	return len(spans) > 0
}
