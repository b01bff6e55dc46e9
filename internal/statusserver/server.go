// Package statusserver exposes the operator surface over HTTP: liveness and
// readiness probes, per-component statistics, the current system state and
// the prometheus metrics endpoint.
package statusserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/groundguard-io/groundguard/internal/core"
	"github.com/groundguard-io/groundguard/internal/pkg/metrics"
	"github.com/groundguard-io/groundguard/internal/processor"
	"github.com/groundguard-io/groundguard/pkg/log"
	"github.com/groundguard-io/groundguard/pkg/options"
)

// StatusSource is the read-only view of the orchestrator the server needs.
type StatusSource interface {
	State() core.State
	Statistics() (processor.Statistics, error)
	IsHalted() bool
}

// Server serves the status endpoints.
type Server struct {
	server *http.Server
	source StatusSource
}

// NewServer builds the HTTP server and its routes.
func NewServer(opts *options.HttpOptions, source StatusSource) *Server {
	s := &Server{source: source}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReadyz).Methods(http.MethodGet)
	r.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	r.HandleFunc("/statistics", s.handleStatistics).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(
		prometheus.Gatherers{metrics.Registry},
		promhttp.HandlerOpts{},
	)).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:         opts.Addr,
		Handler:      r,
		ReadTimeout:  opts.Timeout,
		WriteTimeout: opts.Timeout,
	}

	return s
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	log.Info("Starting HTTP status server", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReadyz reports ready only while the system is operating; an
// emergency stop flips the probe so orchestration layers notice.
func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	switch s.source.State() {
	case core.StateNormalOperation, core.StateSafeMode:
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	default:
		http.Error(w, string(s.source.State()), http.StatusServiceUnavailable)
	}
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"state":  s.source.State(),
		"halted": s.source.IsHalted(),
	})
}

func (s *Server) handleStatistics(w http.ResponseWriter, _ *http.Request) {
	stats, err := s.source.Statistics()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, stats)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error(err, "Failed to encode status response")
	}
}
