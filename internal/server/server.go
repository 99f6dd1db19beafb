// Package server provides the operational HTTP server: Prometheus metrics and
// a health probe.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/syntrixbase/marketsearch/internal/config"
	"github.com/syntrixbase/marketsearch/internal/metrics"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Server serves /metrics and /healthz.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates the server. Every check must pass for /healthz to answer 200.
func New(cfg config.ServerConfig, logger *slog.Logger, checks ...HealthCheck) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "server")

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("GET /healthz", healthHandler(checks))

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           Chain(mux, Recovery(logger), RequestID, Logging(logger)),
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		},
		logger: logger,
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.httpServer.Addr }

// Handler returns the root handler, middlewares included.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// ListenAndServe blocks until the server stops. A stop through Shutdown is not an error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("Operational server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func healthHandler(checks []HealthCheck) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				slog.Warn("Health check failed", "error", err, "request_id", GetRequestID(r.Context()))
				writeError(w, http.StatusServiceUnavailable, "UNHEALTHY", err.Error())
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
}
