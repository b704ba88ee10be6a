package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/Sumatoshi-tech/neardup/internal/observability"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()

	assert.Equal(t, "neardup", cfg.ServiceName)
	assert.Equal(t, observability.ModeCLI, cfg.Mode)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Positive(t, cfg.ShutdownTimeout)
}

func TestInit_NoExportIsNoop(t *testing.T) {
	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogWriter = &buf

	providers, err := observability.Init(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	assert.Nil(t, providers.MetricsHandler)

	_, span := providers.Tracer.Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	providers.Logger.Info("ready")
	assert.Contains(t, buf.String(), "service=neardup")
	assert.Contains(t, buf.String(), "mode=cli")
}

func TestInit_PrometheusServesMeter(t *testing.T) {
	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.Mode = observability.ModeServe
	cfg.Prometheus = true
	cfg.LogJSON = true
	cfg.LogWriter = &buf

	providers, err := observability.Init(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	require.NotNil(t, providers.MetricsHandler)

	red, err := observability.NewREDMetrics(providers.Meter)
	require.NoError(t, err)

	red.RecordRequest(context.Background(), "GET /healthz", http.StatusOK, 0)

	rec := httptest.NewRecorder()
	providers.MetricsHandler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "neardup_requests")

	providers.Logger.Info("ready")
	assert.Contains(t, buf.String(), `"mode":"serve"`)
}

func TestBuildResource(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = "1.2.3"
	cfg.Environment = "staging"

	res, err := observability.ExportBuildResource(cfg)
	require.NoError(t, err)

	set := res.Set()

	name, ok := set.Value(semconv.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, "neardup", name.AsString())

	version, ok := set.Value(semconv.ServiceVersionKey)
	require.True(t, ok)
	assert.Equal(t, "1.2.3", version.AsString())

	env, ok := set.Value(semconv.DeploymentEnvironmentKey)
	require.True(t, ok)
	assert.Equal(t, "staging", env.AsString())
}

func TestSelectSampler(t *testing.T) {
	cfg := observability.DefaultConfig()
	assert.True(t, observability.SampledRootSpan(cfg))

	t.Setenv("OTEL_TRACES_SAMPLER", "always_off")
	assert.False(t, observability.SampledRootSpan(cfg))

	t.Setenv("OTEL_TRACES_SAMPLER", "traceidratio")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "1")
	assert.True(t, observability.SampledRootSpan(cfg))
}

func TestParseOTLPHeaders(t *testing.T) {
	t.Parallel()

	assert.Nil(t, observability.ParseOTLPHeaders(""))
	assert.Nil(t, observability.ParseOTLPHeaders("garbage"))
	assert.Equal(t,
		map[string]string{"api-key": "secret", "tenant": "a"},
		observability.ParseOTLPHeaders(" api-key = secret ,tenant=a"))
}
