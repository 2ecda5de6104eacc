package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Crawl Run Errors
// =============================================================================

var (
	ErrRunAlreadyFinished = errors.New("crawl run is already finished")
)

// =============================================================================
// Crawl Run Status
// =============================================================================

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// =============================================================================
// Crawl Run
// =============================================================================

// CrawlRun records one execution of the crawler from first workload batch
// to drained queues.
type CrawlRun struct {
	ID         string
	Status     RunStatus
	Fetched    int64 // tokens taken from the indexer
	Persisted  int64 // results written back
	Failed     int64 // results with a non-success code
	StartedAt  time.Time
	FinishedAt *time.Time
	Error      string
}

// NewCrawlRun creates a run in the running state.
func NewCrawlRun() CrawlRun {
	return CrawlRun{
		ID:        uuid.NewString(),
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
}

// Finish transitions the run to a terminal status. It is an error to
// finish a run twice.
func (r *CrawlRun) Finish(status RunStatus, runErr error) error {
	if r.FinishedAt != nil {
		return ErrRunAlreadyFinished
	}
	now := time.Now().UTC()
	r.FinishedAt = &now
	r.Status = status
	if runErr != nil {
		r.Error = runErr.Error()
	}
	return nil
}

// Duration returns how long the run has been (or was) active.
func (r CrawlRun) Duration() time.Duration {
	if r.FinishedAt != nil {
		return r.FinishedAt.Sub(r.StartedAt)
	}
	return time.Since(r.StartedAt)
}

// =============================================================================
// Crawl Progress
// =============================================================================

// CrawlProgress is a point-in-time snapshot of a running crawl, exposed by
// the ops API.
type CrawlProgress struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Queued    int64     `json:"queued"`
	InFlight  int64     `json:"in_flight"`
	Fetched   int64     `json:"fetched"`
	Persisted int64     `json:"persisted"`
	Failed    int64     `json:"failed"`
}
