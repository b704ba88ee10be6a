package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrOp     = "op"
	attrClass  = "class"
	attrResult = "result"

	cacheHit  = "hit"
	cacheMiss = "miss"
)

// durationBucketBoundaries covers 1ms queries up to multi-minute corpus builds.
var durationBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300}

var (
	requestsTotal    = instrument{Name: "requests.total", Description: "Total number of requests", Unit: "{request}"}
	requestDuration  = instrument{Name: "request.duration.seconds", Description: "Request duration in seconds", Unit: "s", Bounds: durationBucketBoundaries}
	errorsTotal      = instrument{Name: "errors.total", Description: "Requests answered with a server error", Unit: "{error}"}
	inflightRequests = instrument{Name: "inflight.requests", Description: "Number of in-flight requests", Unit: "{request}"}
	cacheLookups     = instrument{Name: "query_cache.lookups", Description: "Query cache lookups by result", Unit: "{lookup}"}
)

// StatusClass folds an HTTP status code into "2xx", "4xx" and so on.
func StatusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}

// REDMetrics holds the request rate, error and duration instruments of the
// query server, plus its query cache counter.
type REDMetrics struct {
	requests  metric.Int64Counter
	duration  metric.Float64Histogram
	errors    metric.Int64Counter
	inflight  metric.Int64UpDownCounter
	cacheHits metric.Int64Counter
}

// NewREDMetrics creates the server instruments from the given meter.
func NewREDMetrics(mt metric.Meter) (*REDMetrics, error) {
	b := newMetricBuilder(mt)

	rm := &REDMetrics{
		requests:  b.counter(requestsTotal),
		duration:  b.seconds(requestDuration),
		errors:    b.counter(errorsTotal),
		inflight:  b.upDownCounter(inflightRequests),
		cacheHits: b.counter(cacheLookups),
	}

	if b.err != nil {
		return nil, b.err
	}

	return rm, nil
}

// RecordRequest records a finished request to op answered with code.
// 5xx answers also count as errors. Safe to call on a nil receiver.
func (rm *REDMetrics) RecordRequest(ctx context.Context, op string, code int, duration time.Duration) {
	if rm == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrClass, StatusClass(code)),
	)

	rm.requests.Add(ctx, 1, attrs)
	rm.duration.Record(ctx, duration.Seconds(), attrs)

	if code >= http.StatusInternalServerError {
		rm.errors.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOp, op)))
	}
}

// TrackInflight increments the in-flight counter for op and returns the
// function that decrements it.
func (rm *REDMetrics) TrackInflight(ctx context.Context, op string) func() {
	if rm == nil {
		return func() {}
	}

	attrs := metric.WithAttributes(attribute.String(attrOp, op))
	rm.inflight.Add(ctx, 1, attrs)

	return func() {
		rm.inflight.Add(ctx, -1, attrs)
	}
}

// RecordCacheLookup counts one query cache lookup.
func (rm *REDMetrics) RecordCacheLookup(ctx context.Context, hit bool) {
	if rm == nil {
		return
	}

	result := cacheMiss
	if hit {
		result = cacheHit
	}

	rm.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}
