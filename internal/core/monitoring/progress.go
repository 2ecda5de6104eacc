// Package monitoring provides pure functions for crawl run monitoring.
// This package contains no I/O.
package monitoring

import "github.com/onblockio/meta-crawler/internal/core/domain"

// =============================================================================
// Run Health (Pure Functions)
// =============================================================================

// RunHealth classifies how a crawl run is going.
type RunHealth string

const (
	RunHealthOK       RunHealth = "ok"
	RunHealthDegraded RunHealth = "degraded"
	RunHealthFailing  RunHealth = "failing"
	RunHealthUnknown  RunHealth = "unknown"
)

// Failure-rate thresholds for classifying a run.
const (
	degradedFailureRate = 0.10
	failingFailureRate  = 0.50
)

// ClassifyRun determines run health from persisted/failed counters.
// This is a pure function - it takes counters and returns a status.
func ClassifyRun(persisted, failed int64) RunHealth {
	if persisted == 0 {
		return RunHealthUnknown
	}

	rate := float64(failed) / float64(persisted)
	switch {
	case rate >= failingFailureRate:
		return RunHealthFailing
	case rate >= degradedFailureRate:
		return RunHealthDegraded
	default:
		return RunHealthOK
	}
}

// =============================================================================
// Outcome Aggregation (Pure Functions)
// =============================================================================

// CountByCode tallies results per fetch code.
func CountByCode(results []domain.TokenResult) map[domain.FetchCode]int64 {
	counts := make(map[domain.FetchCode]int64)
	for _, r := range results {
		counts[r.Code]++
	}
	return counts
}

// CountFailures returns how many results carry a non-success code.
func CountFailures(results []domain.TokenResult) int64 {
	var failed int64
	for _, r := range results {
		if !r.Code.IsSuccess() {
			failed++
		}
	}
	return failed
}

// =============================================================================
// Log Truncation (Pure Functions)
// =============================================================================

// TruncateURI shortens a token URI for log output.
func TruncateURI(uri string) string {
	if len(uri) > 32 {
		return uri[:29] + "..."
	}
	return uri
}

// TruncateMetadata shortens a metadata document for log output.
func TruncateMetadata(metadata string) string {
	if len(metadata) > 160 {
		return metadata[:157] + "..."
	}
	return metadata
}
