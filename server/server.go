// Package server exposes a registry and log sink over HTTP: the dashboard,
// the JSON routes it polls, a Connect service for programmatic clients and
// a Prometheus scrape endpoint.
//
//	srv := server.New(reg, logs, server.DefaultConfig())
//	err := srv.ListenAndServe(ctx)
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/tailored-agentic-units/probe/logsink"
	"github.com/tailored-agentic-units/probe/observability"
	"github.com/tailored-agentic-units/probe/registry"
)

const (
	// DefaultShutdownTimeout bounds how long ListenAndServe waits for
	// in-flight requests after its context is canceled.
	DefaultShutdownTimeout = 5 * time.Second

	readHeaderTimeout = 10 * time.Second
)

// Server lifecycle event types.
const (
	EventStarted observability.EventType = "server.started"
	EventStopped observability.EventType = "server.stopped"
)

// Server serves one registry and one log sink.
type Server struct {
	cfg             Config
	registry        *registry.Registry
	logs            *logsink.Sink
	observer        observability.Observer
	shutdownTimeout time.Duration
	metrics         *metrics
	handler         http.Handler

	mu   sync.Mutex
	addr net.Addr
}

// Option configures a Server.
type Option func(*Server)

// WithObserver sets the observer receiving lifecycle events.
func WithObserver(obs observability.Observer) Option {
	return func(s *Server) { s.observer = obs }
}

// WithShutdownTimeout overrides DefaultShutdownTimeout. Non-positive values
// are ignored.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// New creates a Server. Zero fields of cfg take their defaults.
func New(reg *registry.Registry, logs *logsink.Sink, cfg Config, opts ...Option) *Server {
	merged := DefaultConfig()
	merged.Merge(&cfg)

	s := &Server{
		cfg:             merged,
		registry:        reg,
		logs:            logs,
		observer:        observability.Discard,
		shutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.metrics = newMetrics(reg, logs)
	s.handler = s.routes()
	return s
}

// Config returns the effective configuration.
func (s *Server) Config() Config {
	return s.cfg
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the bound listen address, or nil before ListenAndServe has
// started listening.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// ListenAndServe listens on the configured address and serves until ctx is
// canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled. It closes ln on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	observability.Emit(ctx, s.observer, EventStarted, observability.LevelInfo, "server.Serve", map[string]any{
		"addr": ln.Addr().String(),
	})

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	observability.Emit(shutdownCtx, s.observer, EventStopped, observability.LevelInfo, "server.Serve", map[string]any{
		"addr": ln.Addr().String(),
	})
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	s.handle(mux, "GET /{$}", "index", http.HandlerFunc(s.handleIndex))
	s.handle(mux, "GET /static/{file}", "static", http.HandlerFunc(s.handleStatic))
	s.handle(mux, "GET /all_pins", "all_pins", http.HandlerFunc(s.handleAllPins))
	s.handle(mux, "POST /pin_value", "pin_value", http.HandlerFunc(s.handlePinValue))
	s.handle(mux, "GET /logs", "logs", http.HandlerFunc(s.handleLogs))
	mux.Handle("GET /metrics", s.metrics.handler())

	for path, h := range s.connectHandlers() {
		s.handle(mux, path, "connect", h)
	}
	return mux
}

func (s *Server) handle(mux *http.ServeMux, pattern, route string, h http.Handler) {
	mux.Handle(pattern, s.metrics.instrument(route, h))
}
