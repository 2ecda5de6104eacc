package workers

import (
	"context"
	"time"

	"github.com/onblockio/meta-crawler/internal/core/domain"
	"github.com/onblockio/meta-crawler/internal/core/monitoring"
)

// =============================================================================
// Saver
// =============================================================================

// saver accumulates results and writes them back in batches: to the
// indexer (the source of truth) and to the local crawl journal.
type saver struct {
	crawler *Crawler
	runID   string
	batch   []domain.TokenResult
}

func newSaver(c *Crawler, runID string) *saver {
	return &saver{
		crawler: c,
		runID:   runID,
		batch:   make([]domain.TokenResult, 0, c.config.SaveBatchSize),
	}
}

// run consumes results until the channel closes, flushing on size and on
// a timer. The final partial batch is flushed before returning.
func (s *saver) run(ctx context.Context, results <-chan domain.TokenResult) error {
	ticker := time.NewTicker(s.crawler.config.SaveInterval)
	defer ticker.Stop()

	for {
		select {
		case result, ok := <-results:
			if !ok {
				// Workers are done. Flush whatever is left, with a
				// fresh deadline in case the run context is already
				// cancelled.
				flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				s.flush(flushCtx)
				return nil
			}

			s.batch = append(s.batch, result)
			// The token is no longer pending once it reaches the batch;
			// the final flush before return guarantees it is written out.
			// Keeping the counter here lets the feeder's drain check
			// complete without waiting out the flush timer.
			s.crawler.pending.Add(-1)

			if len(s.batch) >= s.crawler.config.SaveBatchSize {
				s.flush(ctx)
			}

		case <-ticker.C:
			s.flush(ctx)
		}
	}
}

// flush persists the current batch. Failures are logged, not fatal: the
// affected tokens stay pending on the indexer side and are handed out
// again on a later run.
func (s *saver) flush(ctx context.Context) {
	if len(s.batch) == 0 {
		return
	}

	batch := s.batch
	s.batch = make([]domain.TokenResult, 0, s.crawler.config.SaveBatchSize)

	logger := s.crawler.logger
	for _, r := range batch {
		logger.Debug("resolved token",
			"uri", monitoring.TruncateURI(r.TokenURI),
			"code", int(r.Code),
			"metadata", monitoring.TruncateMetadata(r.Metadata),
		)
	}

	if err := s.crawler.indexer.PersistMetadata(ctx, batch); err != nil {
		logger.Error("failed to persist results",
			"count", len(batch),
			"error", err,
		)
	} else {
		s.crawler.persisted.Add(int64(len(batch)))
		s.crawler.failed.Add(monitoring.CountFailures(batch))
		logger.Info("persisted results", "count", len(batch))
	}

	if err := s.crawler.store.RecordOutcomes(ctx, s.runID, batch); err != nil {
		logger.Error("failed to journal outcomes",
			"count", len(batch),
			"error", err,
		)
	}
}
