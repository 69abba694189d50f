// Package admission provides request-admission control for HTTP services:
// per-client, per-tier rate limiting with pluggable window stores.
//
// A request entering the protected surface is attributed to a stable
// identifier (an authenticated principal or a client network address) and
// checked against the policy tier configured for its route. Each
// (policy, identifier) pair owns a discrete counting window; when the
// window's quota is exhausted the request is rejected with 429 and a
// Retry-After hint, and when the window elapses the quota resets in full.
//
// # Quick Start
//
// Install the server:
//
//	go install github.com/tukanos/admission/cmd/admissiond@latest
//
// Create a configuration:
//
//	yaml
//	server:
//	  port: 8080
//
//	rate_limiting:
//	  backend: memory
//	  fail_mode: open
//	  policies:
//	    - name: ai
//	      max_requests: 40
//	      window: 1m
//
// Start it:
//
//	admissiond serve --config config.yaml
//
// # Using as Go Library
//
// Import the packages you need:
//
//	import (
//	    "github.com/tukanos/admission/pkg/ratelimit"
//	    "github.com/tukanos/admission/pkg/config"
//	)
//
// The ratelimit package is self-contained: a Limiter over a Store plus an
// http middleware. See that package's documentation for examples.
//
// # Key Features
//
//   - Discrete counting windows with hard resets and O(1) decisions
//   - Policy tiers: auth, ai, api, expensive, plus config-defined tiers
//   - Pluggable window stores: in-memory, SQL (postgres/mysql/sqlite), Redis
//   - Identifier resolution: JWT principal first, proxy-header address chain
//     as fallback
//   - Fail-open or fail-closed behavior on store outage, per config
//   - Prometheus metrics and structured logging throughout
package admission
