// Package api provides the HTTP operations surface of the crawler:
// health, readiness, and crawl progress.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/onblockio/meta-crawler/internal/core/domain"
	"github.com/onblockio/meta-crawler/internal/core/monitoring"
	"github.com/onblockio/meta-crawler/internal/shell/store"
)

// =============================================================================
// Handler
// =============================================================================

// ProgressSource exposes live crawl progress. Implemented by
// workers.Crawler.
type ProgressSource interface {
	Snapshot() domain.CrawlProgress
}

// Pinger checks that the indexer API is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler provides HTTP handlers for the operations API.
type Handler struct {
	store   store.Store
	crawler ProgressSource
	indexer Pinger
	logger  *slog.Logger
}

// NewHandler creates a new operations API handler.
func NewHandler(s store.Store, crawler ProgressSource, indexer Pinger, l *slog.Logger) *Handler {
	if l == nil {
		l = slog.Default()
	}
	return &Handler{
		store:   s,
		crawler: crawler,
		indexer: indexer,
		logger:  l,
	}
}

// Routes returns the router with all routes configured.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.jsonContentType)
	r.Use(h.requestIDHeader)

	// Health endpoints
	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)

	// Crawl endpoints
	r.Get("/status", h.handleStatus)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/runs", h.handleListRuns)
		r.Get("/runs/{id}", h.handleGetRun)
	})

	return r
}

// =============================================================================
// Middleware
// =============================================================================

// jsonContentType sets Content-Type header to application/json.
func (h *Handler) jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// requestIDHeader copies the request ID to the response header.
func (h *Handler) requestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			w.Header().Set("X-Request-ID", reqID)
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Health Handlers
// =============================================================================

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	ready := true

	// Check the run journal
	if _, err := h.store.ListRecentRuns(r.Context(), 1); err != nil {
		checks["store"] = "failed"
		ready = false
	} else {
		checks["store"] = "ok"
	}

	// Check the indexer API
	if err := h.indexer.Ping(r.Context()); err != nil {
		checks["indexer"] = "failed"
		ready = false
	} else {
		checks["indexer"] = "ok"
	}

	if !ready {
		h.writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{
			Status: "not_ready",
			Checks: checks,
		})
		return
	}

	h.writeJSON(w, http.StatusOK, ReadyResponse{
		Status: "ready",
		Checks: checks,
	})
}

// =============================================================================
// Crawl Handlers
// =============================================================================

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	progress := h.crawler.Snapshot()

	resp := StatusResponse{
		Run:    progress,
		Health: string(monitoring.ClassifyRun(progress.Persisted, progress.Failed)),
	}

	if progress.RunID != "" {
		counts, err := h.store.CountOutcomesByCode(r.Context(), progress.RunID)
		if err != nil {
			h.logger.Error("failed to count outcomes", "run_id", progress.RunID, "error", err)
		} else if len(counts) > 0 {
			resp.Codes = make(map[string]int64, len(counts))
			for code, count := range counts {
				resp.Codes[fmt.Sprintf("%d", code)] = count
			}
		}
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			h.writeError(w, http.StatusBadRequest, "limit must be between 1 and 100", "validation_error")
			return
		}
		limit = parsed
	}

	runs, err := h.store.ListRecentRuns(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list runs", "internal_error")
		return
	}

	resp := ListRunsResponse{Runs: make([]RunResponse, 0, len(runs)), Total: len(runs)}
	for i := range runs {
		resp.Runs = append(resp.Runs, runToResponse(&runs[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.store.GetCrawlRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "run not found", "not_found")
			return
		}
		h.logger.Error("failed to get run", "run_id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get run", "internal_error")
		return
	}

	h.writeJSON(w, http.StatusOK, runToResponse(run))
}

// =============================================================================
// Helpers
// =============================================================================

func runToResponse(run *domain.CrawlRun) RunResponse {
	return RunResponse{
		ID:         run.ID,
		Status:     string(run.Status),
		Fetched:    run.Fetched,
		Persisted:  run.Persisted,
		Failed:     run.Failed,
		Error:      run.Error,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode JSON", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, code string) {
	h.writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
