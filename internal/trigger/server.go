// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package trigger exposes the on-demand collection trigger and the run
// status over HTTP.
package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/pdiddy/policy-feed/internal/ingest"
)

// Runner is the orchestrator surface the server needs.
type Runner interface {
	Start(ctx context.Context) error
	Status() ingest.Status
}

// Server serves:
//
//	POST /collect  202 when a run starts, 409 when one is already active
//	GET  /status   orchestrator status as JSON
//	GET  /healthz  liveness
type Server struct {
	runner Runner
	logger *slog.Logger
	srv    *http.Server
	// runCtx parents background runs; request contexts end with the request.
	runCtx context.Context
}

// NewServer builds a Server listening on addr. Runs it starts inherit the
// values of runCtx.
func NewServer(runCtx context.Context, addr string, runner Runner, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{runner: runner, logger: logger.With("component", "trigger"), runCtx: runCtx}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /collect", s.handleCollect)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

// ListenAndServe serves until Shutdown. It returns nil after a clean shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("trigger server listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for active ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type collectResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

func (s *Server) handleCollect(w http.ResponseWriter, _ *http.Request) {
	err := s.runner.Start(s.runCtx)
	switch {
	case errors.Is(err, ingest.ErrRunInProgress):
		s.logger.Info("collect rejected, run in progress")
		writeJSON(w, http.StatusConflict, collectResponse{Message: err.Error()})
	case err != nil:
		s.logger.Error("collect failed to start", "error", err)
		writeJSON(w, http.StatusInternalServerError, collectResponse{Message: err.Error()})
	default:
		s.logger.Info("collect accepted")
		writeJSON(w, http.StatusAccepted, collectResponse{Accepted: true, Message: "collection started"})
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.runner.Status())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
