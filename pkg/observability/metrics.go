package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// InitMetrics builds the Prometheus-backed recorder. When disabled it returns
// an empty recorder whose methods are no-ops.
func InitMetrics(ctx context.Context, cfg MetricsConfig) (*PrometheusMetrics, error) {
	if !cfg.Enabled {
		return &PrometheusMetrics{}, nil
	}

	promExporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(promExporter),
	)
	meter := meterProvider.Meter("admission")

	decisionsTotal, err := meter.Int64Counter(
		"admission_requests_total",
		metric.WithDescription("Total admission decisions by policy and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create decisions counter: %w", err)
	}

	decisionDuration, err := meter.Float64Histogram(
		"admission_decision_duration_seconds",
		metric.WithDescription("Admission decision latency in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create decision duration histogram: %w", err)
	}

	sweepEvictions, err := meter.Int64Counter(
		"admission_sweep_evictions_total",
		metric.WithDescription("Total expired window records evicted by the reclaimer"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sweep evictions counter: %w", err)
	}

	sweepErrors, err := meter.Int64Counter(
		"admission_sweep_errors_total",
		metric.WithDescription("Total failed reclaimer sweeps"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sweep errors counter: %w", err)
	}

	httpRequests, err := meter.Int64Counter(
		"admission_http_requests_total",
		metric.WithDescription("Total HTTP requests served"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http requests counter: %w", err)
	}

	httpDuration, err := meter.Float64Histogram(
		"admission_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}

	return &PrometheusMetrics{
		decisionsTotal:   decisionsTotal,
		decisionDuration: decisionDuration,
		sweepEvictions:   sweepEvictions,
		sweepErrors:      sweepErrors,
		httpRequests:     httpRequests,
		httpDuration:     httpDuration,
	}, nil
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
