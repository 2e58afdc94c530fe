// Package httpapi serves a read-only view of the trace journal and the
// process metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/reflux/internal/store"
)

// Journal is the read side of the trace store.
type Journal interface {
	ListRuns(ctx context.Context) ([]store.RunSummary, error)
	ReadRun(ctx context.Context, runID string) ([]store.Record, error)
	CountByKind(ctx context.Context, runID string) (map[string]int64, error)
}

// Server handles the API routes.
type Server struct {
	Journal Journal
	Logger  *slog.Logger
}

// RunDetail is the body of GET /runs/{runID}.
type RunDetail struct {
	RunID   string           `json:"run_id"`
	Kinds   map[string]int64 `json:"kinds"`
	Records []store.Record   `json:"records"`
}

// NewHandler creates the HTTP handler:
//
//	GET /runs          run summaries
//	GET /runs/{runID}  records of one run
//	GET /metrics       Prometheus exposition of gatherer
//	GET /healthz       liveness
func NewHandler(journal Journal, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{Journal: journal, Logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/runs", s.ListRuns)
	r.Get("/runs/{runID}", s.GetRun)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}

// ListRuns handles GET /runs.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.Journal.ListRuns(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun handles GET /runs/{runID}.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	records, err := s.Journal.ReadRun(r.Context(), runID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if len(records) == 0 {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "run not found: " + runID})
		return
	}

	kinds, err := s.Journal.CountByKind(r.Context(), runID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, RunDetail{RunID: runID, Kinds: kinds, Records: records})
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.Logger.Error("request failed", "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.Logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response encode failed", "error", err)
	}
}
