package observability

import (
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// statusWriter wraps [http.ResponseWriter] to capture the status code.
type statusWriter struct {
	http.ResponseWriter

	statusCode int
	written    bool
}

// WriteHeader captures the status code before delegating to the wrapped writer.
func (sw *statusWriter) WriteHeader(code int) {
	if !sw.written {
		sw.statusCode = code
		sw.written = true
	}

	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(buf []byte) (int, error) {
	if !sw.written {
		sw.statusCode = http.StatusOK
		sw.written = true
	}

	n, err := sw.ResponseWriter.Write(buf)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}

	return n, nil
}

// unmatchedRoute labels requests that no route pattern matched.
const unmatchedRoute = "unmatched"

// routeOf returns the pattern that routes hr, such as "GET /v1/query". When
// next is a ServeMux the pattern is looked up without serving.
func routeOf(next http.Handler, hr *http.Request) string {
	pattern := hr.Pattern
	if mux, ok := next.(*http.ServeMux); ok {
		_, pattern = mux.Handler(hr)
	}

	if pattern == "" {
		return unmatchedRoute
	}

	return pattern
}

// HTTPMiddleware returns an [http.Handler] that creates a server span per
// request, named "METHOD /path", and, when red is non-nil, records RED
// metrics keyed by the matched route pattern and the status class.
func HTTPMiddleware(tracer trace.Tracer, red *REDMetrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		start := time.Now()
		route := routeOf(next, hr)

		// Extract W3C traceparent/tracestate/baggage from incoming headers.
		parentCtx := otel.GetTextMapPropagator().Extract(hr.Context(), propagation.HeaderCarrier(hr.Header))

		ctx, span := tracer.Start(parentCtx, hr.Method+" "+hr.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(hr.Method),
				semconv.HTTPRoute(route),
				attribute.String("http.target", hr.URL.Path),
			),
		)
		defer span.End()

		done := red.TrackInflight(ctx, route)
		defer done()

		sw := &statusWriter{ResponseWriter: rw, statusCode: http.StatusOK}
		next.ServeHTTP(sw, hr.WithContext(ctx))

		span.SetAttributes(semconv.HTTPResponseStatusCode(sw.statusCode))

		if sw.statusCode >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(sw.statusCode))
		}

		red.RecordRequest(ctx, route, sw.statusCode, time.Since(start))
	})
}
