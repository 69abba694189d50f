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

// Package ratelimit implements request-admission control for endpoints with
// heterogeneous cost profiles.
//
// Features:
//   - Named policies (fixed window per identifier): auth, ai, api, expensive
//   - Atomic take-and-decide against a pluggable store
//   - In-memory, SQL (postgres/mysql/sqlite), and Redis store backends
//   - Background reclaimer sweeping expired window records
//   - net/http middleware emitting X-RateLimit-* headers and 429 payloads
//
// # Basic Usage
//
//	store := ratelimit.NewMemoryStore()
//	limiter := ratelimit.NewLimiter(store, ratelimit.FailOpen)
//
//	verdict := limiter.Allow(ctx, "user:abc", ratelimit.PolicyAI)
//	if !verdict.Allowed {
//	    // Deny with Retry-After = verdict.RetryAfter(time.Now())
//	}
//
// # Windows
//
// Each (policy, identifier) pair tracks one discrete window: the window is
// anchored at the first request after expiry and the counter is replaced, not
// decayed, when it rolls over. A burst of up to 2x the limit is therefore
// possible across a window boundary; this is the documented tradeoff of the
// fixed-window algorithm.
//
// # Identifiers
//
// Identifiers are opaque strings. ResolveIdentifier derives them from an
// authenticated principal ("user:<id>") or from a network-address fallback
// chain ("ip:<addr>"). Many physical clients behind one proxy can legitimately
// collapse onto a single identifier; that precision loss is accepted.
package ratelimit
