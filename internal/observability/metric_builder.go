package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// metricNamespace prefixes every neardup instrument name.
const metricNamespace = "neardup."

// instrument describes one OTel instrument. Name is relative to
// metricNamespace; Bounds applies to histograms only.
type instrument struct {
	Name        string
	Description string
	Unit        string
	Bounds      []float64
}

func (in instrument) fullName() string {
	return metricNamespace + in.Name
}

// metricBuilder creates instruments from descriptors and keeps the first
// error, so a constructor checks once after building all of them.
type metricBuilder struct {
	meter metric.Meter
	err   error
}

func newMetricBuilder(mt metric.Meter) *metricBuilder {
	return &metricBuilder{meter: mt}
}

func (b *metricBuilder) counter(in instrument) metric.Int64Counter {
	c, err := b.meter.Int64Counter(in.fullName(), metric.WithDescription(in.Description), metric.WithUnit(in.Unit))

	return keep(b, in, c, err)
}

func (b *metricBuilder) upDownCounter(in instrument) metric.Int64UpDownCounter {
	c, err := b.meter.Int64UpDownCounter(in.fullName(), metric.WithDescription(in.Description), metric.WithUnit(in.Unit))

	return keep(b, in, c, err)
}

func (b *metricBuilder) gauge(in instrument) metric.Int64Gauge {
	g, err := b.meter.Int64Gauge(in.fullName(), metric.WithDescription(in.Description), metric.WithUnit(in.Unit))

	return keep(b, in, g, err)
}

// seconds builds a float histogram; durations are recorded in seconds.
func (b *metricBuilder) seconds(in instrument) metric.Float64Histogram {
	h, err := b.meter.Float64Histogram(in.fullName(),
		metric.WithDescription(in.Description),
		metric.WithUnit(in.Unit),
		metric.WithExplicitBucketBoundaries(in.Bounds...))

	return keep(b, in, h, err)
}

// sizes builds an integer histogram for counts such as candidate set sizes.
func (b *metricBuilder) sizes(in instrument) metric.Int64Histogram {
	h, err := b.meter.Int64Histogram(in.fullName(),
		metric.WithDescription(in.Description),
		metric.WithUnit(in.Unit),
		metric.WithExplicitBucketBoundaries(in.Bounds...))

	return keep(b, in, h, err)
}

func keep[T any](b *metricBuilder, in instrument, v T, err error) T {
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("create %s: %w", in.fullName(), err)
	}

	return v
}
