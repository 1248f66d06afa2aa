// Package status serves live progress of a pipeline run over HTTP.
//
// Routes:
//
//	GET /healthz   liveness probe, always 200 "ok"
//	GET /status    JSON snapshot of the run counters
//
// The server is optional and only started when the CLI is given
// --status-addr; it is shut down when the run ends.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/nixvault/pkg/pipeline"
)

// Source provides the counters served by /status.
type Source interface {
	Snapshot() pipeline.Snapshot
}

// Report is the /status response body.
type Report struct {
	RunID     string `json:"run_id"`
	State     string `json:"state"`
	StartedAt string `json:"started_at"`
	Elapsed   string `json:"elapsed"`
	pipeline.Snapshot
}

// Run states reported by /status.
const (
	StateRunning  = "running"
	StateFinished = "finished"
)

// Server exposes one run's progress.
type Server struct {
	runID  string
	source Source
	logger *log.Logger
	clock  func() time.Time

	mu        sync.RWMutex
	server    *http.Server
	listener  net.Listener
	startTime time.Time
}

// NewServer creates a server for the run runID whose counters come from src.
func NewServer(runID string, src Source, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Server{
		runID:  runID,
		source: src,
		logger: logger,
		clock:  time.Now,
	}
}

// Handler returns the router. It is exported for tests and embedding.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	return r
}

// Start binds addr and serves in the background.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return fmt.Errorf("status: server already started")
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("status: listen %s: %w", addr, err)
	}
	s.listener = listener
	s.startTime = s.clock()
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	server := s.server
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server failed", "err", err)
		}
	}()
	s.logger.Info("status server listening", "addr", "http://"+listener.Addr().String()+"/status")
	return nil
}

// Shutdown stops the server, waiting for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	s.server = nil
	s.listener = nil
	return err
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "ok\n")
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.source.Snapshot()

	s.mu.RLock()
	started := s.startTime
	s.mu.RUnlock()
	if started.IsZero() {
		started = s.clock()
	}

	report := Report{
		RunID:     s.runID,
		State:     StateRunning,
		StartedAt: started.UTC().Format(time.RFC3339),
		Elapsed:   s.clock().Sub(started).Round(time.Second).String(),
		Snapshot:  snap,
	}
	if snap.Done() {
		report.State = StateFinished
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		s.logger.Debug("write status response", "err", err)
	}
}
