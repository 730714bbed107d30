// ABOUTME: HTTP server lifecycle for horoscope-desk: routing, health probes, graceful shutdown
// ABOUTME: The database handle is closed after the listener drains

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/2389/horoscope-desk/internal/config"
)

const (
	defaultShutdownTimeout = 5 * time.Second
	readyTimeout           = 3 * time.Second
)

// Database is the part of the data gateway the server manages.
type Database interface {
	Ping(ctx context.Context) error
	Close() error
}

// Routes mounts application routes on a mux. *api.Handler satisfies it.
type Routes interface {
	Register(mux *http.ServeMux)
}

// Server serves the desk over HTTP.
type Server struct {
	httpServer      *http.Server
	db              Database
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// New builds the server. reg may be nil, which disables request metrics and
// the metrics endpoint.
func New(cfg *config.Config, routes Routes, database Database, reg *prometheus.Registry, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		db:              database,
		shutdownTimeout: cfg.Server.ShutdownTimeout,
		logger:          logger.With("component", "server"),
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = defaultShutdownTimeout
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/ready", s.handleReady)
	routes.Register(mux)

	var handler http.Handler = mux
	if reg != nil && cfg.Metrics.Enabled {
		metrics, err := newHTTPMetrics(reg)
		if err != nil {
			return nil, fmt.Errorf("registering HTTP metrics: %w", err)
		}
		mux.Handle("GET "+cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		handler = metrics.middleware(mux)
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run listens on the configured address and blocks until ctx is canceled or
// the server fails. Returns nil on graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		s.logger.Info("shutting down", "timeout", s.shutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down HTTP server: %w", err)
		}
		return nil
	})

	err := eg.Wait()
	if closeErr := s.db.Close(); closeErr != nil {
		s.logger.Error("closing database", "error", closeErr)
		if err == nil {
			err = closeErr
		}
	}
	if err != nil {
		s.logger.Error("server stopped", "error", err)
	}
	return err
}

// handleHealth always returns 200 OK.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 once the database answers a ping. The first probe
// opens the connection.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Warn("readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("database unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
