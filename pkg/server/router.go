package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tukanos/admission/pkg/auth"
	"github.com/tukanos/admission/pkg/observability"
	"github.com/tukanos/admission/pkg/ratelimit"
)

// Router builds the chi router: ambient middleware first, then one admission
// middleware per policy tier in front of the protected endpoints.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware)
	if s.validator != nil {
		r.Use(s.validator.HTTPMiddleware)
	}

	r.Get("/healthz", s.handleHealth)
	if s.cfg.Server.Metrics != nil && *s.cfg.Server.Metrics {
		r.Method(http.MethodGet, "/metrics", observability.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.With(s.admit("auth")).Post("/auth/login", s.handleLogin)
		r.With(s.admit("ai")).Post("/ai/generate", s.handleGenerate)
		r.With(s.admit("expensive")).Post("/export", s.handleExport)

		r.Route("/data", func(r chi.Router) {
			r.Use(s.admit("api"))
			r.Get("/{collection}", s.handleListData)
			r.Get("/{collection}/{id}", s.handleGetData)
		})

		r.Post("/admin/ratelimit/reset", s.handleReset)
	})

	return r
}

// admit returns the admission middleware for a named policy tier.
func (s *Server) admit(policyName string) func(http.Handler) http.Handler {
	policy, ok := s.policies[policyName]
	if !ok {
		// Unknown tier falls back to the general API policy.
		policy = ratelimit.PolicyAPI
	}
	return ratelimit.Middleware(ratelimit.MiddlewareConfig{
		Limiter:  s.limiter,
		Policy:   policy,
		Identify: identifyRequest,
	})
}

// identifyRequest prefers the authenticated principal from the auth
// middleware, then falls back to the proxy-header address chain.
func identifyRequest(r *http.Request) string {
	if claims := auth.GetClaims(r); claims != nil && claims.Subject != "" {
		return ratelimit.ResolveIdentifier(claims.Subject, "", "")
	}
	return ratelimit.DefaultIdentifierFunc(r)
}
