package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGlobalMetrics(t *testing.T) {
	prev := GetGlobalMetrics()
	t.Cleanup(func() { SetGlobalMetrics(prev) })

	SetGlobalMetrics(nil)
	if GetGlobalMetrics() != nil {
		t.Errorf("expected nil global recorder")
	}

	m := NoopMetrics{}
	SetGlobalMetrics(m)
	if GetGlobalMetrics() == nil {
		t.Errorf("expected global recorder to be set")
	}
}

func TestPrometheusMetrics_NilGuards(t *testing.T) {
	ctx := context.Background()

	// An uninitialized recorder (metrics disabled) must not panic.
	var m *PrometheusMetrics
	m.RecordDecision(ctx, "api", true, time.Millisecond)
	m.RecordSweep(ctx, 3, errors.New("boom"))
	m.RecordHTTPRequest(ctx, "GET", "/healthz", 200, time.Millisecond)

	empty := &PrometheusMetrics{}
	empty.RecordDecision(ctx, "api", false, time.Millisecond)
	empty.RecordSweep(ctx, 0, nil)
	empty.RecordHTTPRequest(ctx, "POST", "/v1/export", 429, time.Millisecond)
}

func TestInitMetrics_Disabled(t *testing.T) {
	m, err := InitMetrics(context.Background(), MetricsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Disabled recorder is inert but usable.
	m.RecordDecision(context.Background(), "api", true, time.Millisecond)
}
