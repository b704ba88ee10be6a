package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/Sumatoshi-tech/neardup/pkg/version"
)

// buildInfo is a constant 1 labelled with the binary's version.
func buildInfo() prometheus.Collector {
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "neardup_build_info",
		Help: "Build information of the running neardup binary.",
		ConstLabels: prometheus.Labels{
			"version": version.Version,
			"commit":  version.Commit,
			"date":    version.Date,
		},
	})
	g.Set(1)

	return g
}

// NewPrometheusExporter creates an OTel metric reader backed by a private
// Prometheus registry and the [http.Handler] serving that registry at
// /metrics. The registry also carries the Go runtime and process collectors
// and neardup_build_info.
// Each call is independent, so tests may create several.
func NewPrometheusExporter() (sdkmetric.Reader, http.Handler, error) {
	registry := prometheus.NewRegistry()

	err := registry.Register(collectors.NewGoCollector())
	if err != nil {
		return nil, nil, fmt.Errorf("register go collector: %w", err)
	}

	err = registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err != nil {
		return nil, nil, fmt.Errorf("register process collector: %w", err)
	}

	err = registry.Register(buildInfo())
	if err != nil {
		return nil, nil, fmt.Errorf("register build info: %w", err)
	}

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})

	return exporter, handler, nil
}
