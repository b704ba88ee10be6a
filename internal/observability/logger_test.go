package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Sumatoshi-tech/neardup/internal/observability"
)

func TestTracingHandler_AddsServiceAttributes(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(observability.NewTracingHandler(inner, "neardup", "dev", observability.ModeServe))

	logger.WithGroup("query").Info("hello", "doc", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))

	assert.Equal(t, "neardup", rec["service"])
	assert.Equal(t, "serve", rec["mode"])
	assert.Equal(t, "dev", rec["env"])
	assert.NotContains(t, rec, "trace_id")
	assert.Equal(t, map[string]any{"doc": float64(3)}, rec["query"])
}

func TestTracingHandler_AddsTraceContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	logger := slog.New(observability.NewTracingHandler(slog.NewJSONHandler(&buf, nil), "neardup", "", observability.ModeCLI))
	logger.InfoContext(ctx, "traced")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))

	assert.Equal(t, span.SpanContext().TraceID().String(), rec["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), rec["span_id"])
	assert.NotContains(t, rec, "env")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	level, err := observability.ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = observability.ParseLevel(" warn ")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = observability.ParseLevel("loud")
	require.Error(t, err)
}
