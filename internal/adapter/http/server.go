package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/orbitwatch/neo-insights-etl/internal/adapter/postgres"
	"github.com/orbitwatch/neo-insights-etl/internal/pipeline"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// CycleRunner triggers one processing cycle.
type CycleRunner interface {
	Run(ctx context.Context, mode pipeline.Mode) (pipeline.Report, error)
}

// StatsProvider summarizes stored data.
type StatsProvider interface {
	Stats(ctx context.Context) (postgres.Stats, error)
}

// Server exposes health, readiness, metrics, stats, and manual-trigger
// HTTP endpoints.
type Server struct {
	httpServer *http.Server
	runner     CycleRunner
	stats      StatsProvider
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics,
// /stats, and /process routes.
func NewServer(addr string, ready ReadinessChecker, runner CycleRunner, stats StatsProvider, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 5 * time.Minute, // a manual cycle runs inside the request
			IdleTimeout:  60 * time.Second,
		},
		runner: runner,
		stats:  stats,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("POST /process", s.handleProcess)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.stats.Stats(r.Context())
	if err != nil {
		s.logger.Error("stats query failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "stats unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type processRequest struct {
	Mode string `json:"mode"`
}

// handleProcess triggers one cycle synchronously. The mode defaults to
// auto when the body is empty.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	mode, err := pipeline.ParseMode(req.Mode)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	report, err := s.runner.Run(r.Context(), mode)
	if err != nil && report.Stage == pipeline.StageFailed {
		s.logger.Error("manual cycle failed", "cycle_id", report.CycleID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":  err.Error(),
			"report": report,
		})
		return
	}
	if err != nil {
		// Cycle completed but with a surfaced non-fatal failure, e.g. a
		// lost archive object.
		s.logger.Warn("manual cycle completed with warnings", "cycle_id", report.CycleID, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{"report": report})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort health response
}
