package observability

import (
	"context"
	"time"
)

// NoopMetrics discards every observation. Useful in tests and when the
// metrics endpoint is disabled.
type NoopMetrics struct{}

func (NoopMetrics) RecordDecision(ctx context.Context, policy string, allowed bool, duration time.Duration) {
}

func (NoopMetrics) RecordSweep(ctx context.Context, evicted int, err error) {}

func (NoopMetrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
}

var _ Metrics = (*NoopMetrics)(nil)
