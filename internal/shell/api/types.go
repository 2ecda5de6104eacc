package api

import (
	"time"

	"github.com/onblockio/meta-crawler/internal/core/domain"
)

// =============================================================================
// Response Types
// =============================================================================

// ErrorResponse is the error response format.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse is the readiness check response.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// StatusResponse describes the current crawl.
type StatusResponse struct {
	Run    domain.CrawlProgress `json:"run"`
	Health string               `json:"health"`
	Codes  map[string]int64     `json:"codes,omitempty"`
}

// RunResponse is one crawl run in a run listing.
type RunResponse struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"`
	Fetched    int64      `json:"fetched"`
	Persisted  int64      `json:"persisted"`
	Failed     int64      `json:"failed"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// ListRunsResponse is the response for listing recent runs.
type ListRunsResponse struct {
	Runs  []RunResponse `json:"runs"`
	Total int           `json:"total"`
}
