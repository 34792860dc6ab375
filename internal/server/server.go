// internal/server/server.go

// Package server exposes email generation and the strategy benchmarks over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mwiater/emailwriter/internal/appconfig"
	"github.com/mwiater/emailwriter/internal/generator"
	"github.com/mwiater/emailwriter/internal/logging"
	"github.com/mwiater/emailwriter/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	cfg        *appconfig.Config
	generators map[string]generator.Generator
	tracker    *metrics.Tracker

	benchMu sync.Mutex // one benchmark at a time
}

// New builds a Server with one generator per supported strategy.
func New(cfg *appconfig.Config, tracker *metrics.Tracker) (*Server, error) {
	gens := make(map[string]generator.Generator, len(generator.Kinds()))
	for _, kind := range generator.Kinds() {
		g, err := generator.New(kind, cfg)
		if err != nil {
			return nil, fmt.Errorf("build %s generator: %w", kind, err)
		}
		gens[kind] = g
	}
	return NewWithGenerators(cfg, gens, tracker), nil
}

// NewWithGenerators builds a Server over an explicit strategy set keyed by kind.
func NewWithGenerators(cfg *appconfig.Config, gens map[string]generator.Generator, tracker *metrics.Tracker) *Server {
	if tracker == nil {
		tracker = metrics.NewTracker()
	}
	return &Server{cfg: cfg, generators: gens, tracker: tracker}
}

// Handler wires the routes with the full middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /api/email/generate", s.handleGenerate)
	mux.HandleFunc("GET /api/email/metrics", s.handleMetrics)
	mux.HandleFunc("POST /api/benchmark/compare", s.handleCompare)
	mux.HandleFunc("POST /api/benchmark/concurrent", s.handleConcurrent)
	mux.Handle("GET /metrics", promhttp.Handler())
	return Chain(mux)
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr())
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve handles connections on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.LogEvent("listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logging.LogEvent("shutting down (waiting up to %s for in-flight requests)", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) generatorFor(kind string) (generator.Generator, error) {
	g, ok := s.generators[kind]
	if !ok {
		return nil, fmt.Errorf("unknown generator: %s", kind)
	}
	return g, nil
}
