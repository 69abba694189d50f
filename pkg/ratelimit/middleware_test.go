package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func newTestHandler(t *testing.T, cfg MiddlewareConfig) http.Handler {
	t.Helper()
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return Middleware(cfg)(inner)
}

func TestMiddleware_AllowedHeaders(t *testing.T) {
	policy := Policy{Name: "api", MaxRequests: 10, Window: time.Minute}
	handler := newTestHandler(t, MiddlewareConfig{
		Limiter: NewLimiter(NewMemoryStore(), FailOpen),
		Policy:  policy,
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/data/items", nil)
	req.Header.Set("X-User-ID", "alice")
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "10" {
		t.Errorf("X-RateLimit-Limit = %q, want 10", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "9" {
		t.Errorf("X-RateLimit-Remaining = %q, want 9", got)
	}
	reset := rec.Header().Get("X-RateLimit-Reset")
	if _, err := time.Parse(time.RFC3339, reset); err != nil {
		t.Errorf("X-RateLimit-Reset %q is not RFC3339: %v", reset, err)
	}
}

func TestMiddleware_Rejection(t *testing.T) {
	policy := Policy{Name: "auth", MaxRequests: 1, Window: time.Minute}
	handler := newTestHandler(t, MiddlewareConfig{
		Limiter: NewLimiter(NewMemoryStore(), FailOpen),
		Policy:  policy,
	})

	req := httptest.NewRequest("POST", "/v1/auth/login", nil)
	req.Header.Set("X-Real-IP", "203.0.113.9")

	handler.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", got)
	}

	retryAfter, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	if err != nil {
		t.Fatalf("Retry-After not an integer: %v", err)
	}
	if retryAfter < 1 || retryAfter > 60 {
		t.Errorf("Retry-After = %d, want within (0, 60]", retryAfter)
	}

	var body RejectionBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Error != "Too Many Requests" {
		t.Errorf("body error = %q", body.Error)
	}
	if body.Message != "Rate limit exceeded. Please try again later." {
		t.Errorf("body message = %q", body.Message)
	}
	if int(body.RetryAfter) != retryAfter {
		t.Errorf("body retryAfter %d does not match header %d", body.RetryAfter, retryAfter)
	}
}

func TestMiddleware_ExcludedPaths(t *testing.T) {
	policy := Policy{Name: "api", MaxRequests: 1, Window: time.Minute}
	handler := newTestHandler(t, MiddlewareConfig{
		Limiter:       NewLimiter(NewMemoryStore(), FailOpen),
		Policy:        policy,
		ExcludedPaths: []string{"/healthz"},
	})

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected excluded path to bypass limiting, got %d", rec.Code)
		}
		if rec.Header().Get("X-RateLimit-Limit") != "" {
			t.Errorf("excluded path should not carry rate-limit headers")
		}
	}
}

func TestMiddleware_NilLimiterPassesThrough(t *testing.T) {
	handler := newTestHandler(t, MiddlewareConfig{Policy: PolicyAPI})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/data/items", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected passthrough, got %d", rec.Code)
	}
}

func TestMiddleware_CustomIdentify(t *testing.T) {
	policy := Policy{Name: "api", MaxRequests: 1, Window: time.Minute}
	handler := newTestHandler(t, MiddlewareConfig{
		Limiter:  NewLimiter(NewMemoryStore(), FailOpen),
		Policy:   policy,
		Identify: func(r *http.Request) string { return "user:fixed" },
	})

	// Different source addresses share the fixed identifier's quota.
	req1 := httptest.NewRequest("GET", "/v1/data/items", nil)
	req1.Header.Set("X-Real-IP", "203.0.113.9")
	handler.ServeHTTP(httptest.NewRecorder(), req1)

	req2 := httptest.NewRequest("GET", "/v1/data/items", nil)
	req2.Header.Set("X-Real-IP", "198.51.100.4")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req2)

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected shared quota to be exhausted, got %d", rec.Code)
	}
}

func TestMiddleware_OnLimitedHook(t *testing.T) {
	policy := Policy{Name: "api", MaxRequests: 1, Window: time.Minute}
	called := false
	handler := newTestHandler(t, MiddlewareConfig{
		Limiter: NewLimiter(NewMemoryStore(), FailOpen),
		Policy:  policy,
		OnLimited: func(w http.ResponseWriter, r *http.Request, v Verdict) {
			called = true
			w.WriteHeader(http.StatusServiceUnavailable)
		},
	})

	req := httptest.NewRequest("GET", "/v1/data/items", nil)
	req.Header.Set("X-User-ID", "alice")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called {
		t.Fatalf("expected OnLimited to be called")
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected custom status, got %d", rec.Code)
	}
}

func TestVerdictFromContext(t *testing.T) {
	policy := Policy{Name: "api", MaxRequests: 10, Window: time.Minute}
	var got Verdict
	var ok bool

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = VerdictFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := Middleware(MiddlewareConfig{
		Limiter: NewLimiter(NewMemoryStore(), FailOpen),
		Policy:  policy,
	})(inner)

	req := httptest.NewRequest("GET", "/v1/data/items", nil)
	req.Header.Set("X-User-ID", "alice")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !ok {
		t.Fatalf("expected verdict in context")
	}
	if !got.Allowed || got.Remaining != 9 {
		t.Errorf("unexpected verdict: %+v", got)
	}

	if _, ok := VerdictFromContext(httptest.NewRequest("GET", "/", nil).Context()); ok {
		t.Errorf("expected no verdict on a bare request context")
	}
}
