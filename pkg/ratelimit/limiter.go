// Copyright 2025 The Admission Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/tukanos/admission/pkg/observability"
)

// FailMode decides what happens when the store is unavailable.
type FailMode string

const (
	// FailOpen admits the request when the store errors. An unavailable
	// limiter must not become an availability outage for the whole protected
	// surface, so this is the default.
	FailOpen FailMode = "open"

	// FailClosed denies the request when the store errors.
	FailClosed FailMode = "closed"
)

// ParseFailMode converts a config string to a FailMode, defaulting to open.
func ParseFailMode(s string) FailMode {
	if FailMode(s) == FailClosed {
		return FailClosed
	}
	return FailOpen
}

// Limiter is the admission decision component. It owns a Store handle and
// turns store state into allow/deny verdicts. Deny is a normal return value,
// never an error; only store failures are exceptional, and those resolve
// through the configured FailMode instead of propagating to request paths.
type Limiter struct {
	store    Store
	failMode FailMode
	disabled bool
}

// NewLimiter creates a limiter backed by the given store.
func NewLimiter(store Store, mode FailMode) *Limiter {
	return &Limiter{store: store, failMode: mode}
}

// NewDisabledLimiter creates a limiter that admits everything. Used when rate
// limiting is turned off in config so callers need no nil checks.
func NewDisabledLimiter() *Limiter {
	return &Limiter{disabled: true}
}

// Store returns the underlying window store. The reclaimer and admin reset
// share it; nothing else may touch window records directly.
func (l *Limiter) Store() Store {
	return l.store
}

// Enabled reports whether the limiter is actually enforcing limits.
func (l *Limiter) Enabled() bool {
	return l != nil && !l.disabled
}

// Allow records one request for the identifier under the policy and returns
// the verdict. The call is synchronous and O(1); it holds no lock across I/O
// beyond what the store itself needs.
func (l *Limiter) Allow(ctx context.Context, id string, p Policy) Verdict {
	if !l.Enabled() {
		return Verdict{Allowed: true, Remaining: p.MaxRequests, ResetTime: time.Now().Add(p.Window)}
	}

	start := time.Now()
	verdict, err := l.store.Take(ctx, id, p)
	if err != nil {
		slog.Error("admission store unavailable", "error", err, "policy", p.Name, "identifier", id, "fail_mode", l.failMode)
		verdict = l.failVerdict(p, start)
	}

	if m := observability.GetGlobalMetrics(); m != nil {
		m.RecordDecision(ctx, p.Name, verdict.Allowed, time.Since(start))
	}
	return verdict
}

// Reset clears all window records for an identifier.
func (l *Limiter) Reset(ctx context.Context, id string) error {
	if !l.Enabled() {
		return nil
	}
	return l.store.Reset(ctx, id)
}

// failVerdict is the explicit fail-open/fail-closed branch for store errors.
func (l *Limiter) failVerdict(p Policy, now time.Time) Verdict {
	reset := now.Add(p.Window)
	if l.failMode == FailClosed {
		return Verdict{Allowed: false, Remaining: 0, ResetTime: reset}
	}
	return Verdict{Allowed: true, Remaining: p.MaxRequests - 1, ResetTime: reset}
}
