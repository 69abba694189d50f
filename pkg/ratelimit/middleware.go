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
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// RejectionBody is the JSON payload sent with a 429 response.
type RejectionBody struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int64  `json:"retryAfter"`
}

// MiddlewareConfig configures the admission middleware for one policy.
type MiddlewareConfig struct {
	// Limiter makes the decisions. Required; a nil limiter passes through.
	Limiter *Limiter

	// Policy is the tier enforced on the wrapped routes.
	Policy Policy

	// Identify extracts the identifier from requests.
	// If nil, DefaultIdentifierFunc is used.
	Identify IdentifierFunc

	// ExcludedPaths bypass rate limiting entirely.
	ExcludedPaths []string

	// OnLimited is called for denied requests. If nil, the standard 429
	// JSON rejection is sent.
	OnLimited func(w http.ResponseWriter, r *http.Request, v Verdict)
}

// Middleware enforces a policy on the wrapped handler. Every response, allowed
// or denied, carries X-RateLimit-Remaining and X-RateLimit-Reset so callers
// can self-throttle proactively; denied responses additionally carry
// Retry-After and the rejection body.
func Middleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	if cfg.Limiter == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	if cfg.Identify == nil {
		cfg.Identify = DefaultIdentifierFunc
	}
	if cfg.OnLimited == nil {
		cfg.OnLimited = RejectHandler
	}

	excluded := make(map[string]bool, len(cfg.ExcludedPaths))
	for _, path := range cfg.ExcludedPaths {
		excluded[path] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if excluded[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			id := cfg.Identify(r)
			verdict := cfg.Limiter.Allow(r.Context(), id, cfg.Policy)

			setRateLimitHeaders(w, cfg.Policy, verdict)

			ctx := context.WithValue(r.Context(), verdictContextKey{}, verdict)
			r = r.WithContext(ctx)

			if !verdict.Allowed {
				cfg.OnLimited(w, r, verdict)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// verdictContextKey is the context key for the admission verdict.
type verdictContextKey struct{}

// VerdictFromContext extracts the admission verdict from a request context.
func VerdictFromContext(ctx context.Context) (Verdict, bool) {
	v, ok := ctx.Value(verdictContextKey{}).(Verdict)
	return v, ok
}

// RejectHandler writes the standardized 429 rejection.
func RejectHandler(w http.ResponseWriter, r *http.Request, v Verdict) {
	retryAfter := v.RetryAfter(time.Now())

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
	w.WriteHeader(http.StatusTooManyRequests)

	_ = json.NewEncoder(w).Encode(RejectionBody{
		Error:      "Too Many Requests",
		Message:    "Rate limit exceeded. Please try again later.",
		RetryAfter: retryAfter,
	})
}

func setRateLimitHeaders(w http.ResponseWriter, p Policy, v Verdict) {
	w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(p.MaxRequests, 10))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(v.Remaining, 10))
	w.Header().Set("X-RateLimit-Reset", v.ResetTime.UTC().Format(time.RFC3339))
}
