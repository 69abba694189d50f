package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	globalMetrics Metrics
	metricsMu     sync.RWMutex
)

// Metrics records admission-control observations.
type Metrics interface {
	// RecordDecision records one admission verdict for a policy.
	RecordDecision(ctx context.Context, policy string, allowed bool, duration time.Duration)

	// RecordSweep records one reclaimer pass.
	RecordSweep(ctx context.Context, evicted int, err error)

	// RecordHTTPRequest records one served HTTP request.
	RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration)
}

// PrometheusMetrics implements Metrics over OpenTelemetry instruments backed
// by a Prometheus exporter.
type PrometheusMetrics struct {
	decisionDuration metric.Float64Histogram
	decisionsTotal   metric.Int64Counter
	sweepEvictions   metric.Int64Counter
	sweepErrors      metric.Int64Counter
	httpDuration     metric.Float64Histogram
	httpRequests     metric.Int64Counter
}

func (m *PrometheusMetrics) RecordDecision(ctx context.Context, policy string, allowed bool, duration time.Duration) {
	if m == nil || m.decisionsTotal == nil {
		return
	}

	outcome := "allowed"
	if !allowed {
		outcome = "denied"
	}
	attrs := []attribute.KeyValue{
		attribute.String("policy", policy),
		attribute.String("outcome", outcome),
	}

	m.decisionsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	if m.decisionDuration != nil {
		m.decisionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	}
}

func (m *PrometheusMetrics) RecordSweep(ctx context.Context, evicted int, err error) {
	if m == nil || m.sweepEvictions == nil {
		return
	}

	m.sweepEvictions.Add(ctx, int64(evicted))
	if err != nil && m.sweepErrors != nil {
		m.sweepErrors.Add(ctx, 1)
	}
}

func (m *PrometheusMetrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	if m == nil || m.httpRequests == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status", status),
	}

	m.httpRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
	if m.httpDuration != nil {
		m.httpDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	}
}

// SetGlobalMetrics installs the process-wide metrics recorder.
func SetGlobalMetrics(m Metrics) {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	globalMetrics = m
}

// GetGlobalMetrics returns the process-wide metrics recorder, or nil.
func GetGlobalMetrics() Metrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return globalMetrics
}
