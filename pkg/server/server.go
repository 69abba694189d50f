// Package server wires the protected HTTP surface: auth, admission
// middleware per policy tier, metrics, and lifecycle.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tukanos/admission/pkg/auth"
	"github.com/tukanos/admission/pkg/config"
	"github.com/tukanos/admission/pkg/observability"
	"github.com/tukanos/admission/pkg/ratelimit"
)

// Server owns the HTTP listener, the limiter, and the reclaimer.
type Server struct {
	cfg        *config.Config
	pool       *config.DBPool
	limiter    *ratelimit.Limiter
	reclaimer  *ratelimit.Reclaimer
	validator  *auth.Validator
	policies   map[string]ratelimit.Policy
	httpServer *http.Server
}

// New builds a fully wired server from config. Nothing is started yet;
// callers own the lifecycle through Start and Shutdown.
func New(cfg *config.Config) (*Server, error) {
	pool := config.NewDBPool()

	limiter, err := ratelimit.NewLimiterFromConfig(cfg, pool)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create limiter: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		pool:     pool,
		limiter:  limiter,
		policies: ratelimit.PoliciesFromConfig(cfg.RateLimit),
	}

	if limiter.Enabled() {
		s.reclaimer = ratelimit.NewReclaimer(limiter.Store(), cfg.RateLimit.SweepInterval)
	}

	if cfg.Server.Auth != nil {
		validator, err := auth.NewValidator(cfg.Server.Auth.JWKSURL, cfg.Server.Auth.Issuer, cfg.Server.Auth.Audience)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create auth validator: %w", err)
		}
		s.validator = validator
	}

	if cfg.Server.Metrics != nil && *cfg.Server.Metrics {
		metrics, err := observability.InitMetrics(context.Background(), observability.MetricsConfig{Enabled: true})
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to init metrics: %w", err)
		}
		observability.SetGlobalMetrics(metrics)
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Limiter returns the admission limiter (for tests and the CLI).
func (s *Server) Limiter() *ratelimit.Limiter {
	return s.limiter
}

// Start begins serving and launches the reclaimer. Blocks until the listener
// closes.
func (s *Server) Start() error {
	if s.reclaimer != nil {
		s.reclaimer.Start()
	}

	slog.Info("admission server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests, stops the reclaimer, and closes the
// store and any database pools.
func (s *Server) Shutdown(ctx context.Context) error {
	var firstErr error

	if err := s.httpServer.Shutdown(ctx); err != nil {
		firstErr = fmt.Errorf("failed to shut down http server: %w", err)
	}

	if s.reclaimer != nil {
		s.reclaimer.Stop()
	}
	if s.limiter.Enabled() {
		if err := s.limiter.Store().Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close store: %w", err)
		}
	}
	if err := s.pool.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	slog.Info("admission server stopped")
	return firstErr
}
