// Package store persists crawl runs and per-token outcomes.
package store

import (
	"context"

	"github.com/onblockio/meta-crawler/internal/core/domain"
)

// =============================================================================
// Store Interface
// =============================================================================

// Store defines the persistence interface for the crawl journal.
type Store interface {
	// Crawl run operations
	CreateCrawlRun(ctx context.Context, run *domain.CrawlRun) error
	UpdateCrawlRun(ctx context.Context, run *domain.CrawlRun) error
	GetCrawlRun(ctx context.Context, id string) (*domain.CrawlRun, error)
	ListRecentRuns(ctx context.Context, limit int) ([]domain.CrawlRun, error)

	// Outcome operations
	RecordOutcomes(ctx context.Context, runID string, results []domain.TokenResult) error
	CountOutcomesByCode(ctx context.Context, runID string) (map[domain.FetchCode]int64, error)

	// Lifecycle
	Close() error
}
