// Package workers contains the crawl pipeline: feeding tokens from the
// indexer through a pool of fetch workers into the batch saver.
package workers

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/onblockio/meta-crawler/internal/core/domain"
	"github.com/onblockio/meta-crawler/internal/shell/indexer"
	"github.com/onblockio/meta-crawler/internal/shell/store"
)

// =============================================================================
// Resolver Interface
// =============================================================================

// Resolver resolves a token URI into a fetch code and metadata document.
// Implemented by fetch.Fetcher.
type Resolver interface {
	Resolve(ctx context.Context, tokenURI string) (domain.FetchCode, string)
}

// =============================================================================
// Crawler Configuration
// =============================================================================

// CrawlerConfig configures the crawl pipeline.
type CrawlerConfig struct {
	// Workers is the number of concurrent fetch workers.
	// Default: 200.
	Workers int

	// HighWater is the pending-token count above which the feeder stops
	// pulling new workload batches.
	// Default: 10000.
	HighWater int

	// PollInterval is how long the feeder waits before re-polling the
	// indexer when it is ahead of the workers or out of work.
	// Default: 1 second.
	PollInterval time.Duration

	// SaveBatchSize is the maximum number of results persisted at once.
	// Default: 100.
	SaveBatchSize int

	// SaveInterval is how often a partial batch is flushed.
	// Default: 5 seconds.
	SaveInterval time.Duration
}

// DefaultCrawlerConfig returns the default configuration.
func DefaultCrawlerConfig() CrawlerConfig {
	return CrawlerConfig{
		Workers:       200,
		HighWater:     10000,
		PollInterval:  time.Second,
		SaveBatchSize: 100,
		SaveInterval:  5 * time.Second,
	}
}

// =============================================================================
// Crawler
// =============================================================================

// Crawler runs one crawl: it drains the indexer's pending workload and
// terminates when no work is left.
type Crawler struct {
	indexer  indexer.Client
	resolver Resolver
	store    store.Store
	config   CrawlerConfig
	logger   *slog.Logger

	// Live progress counters
	runID     atomic.Value // string
	startedAt atomic.Value // time.Time
	pending   atomic.Int64
	inFlight  atomic.Int64
	fetched   atomic.Int64
	persisted atomic.Int64
	failed    atomic.Int64
}

// NewCrawler creates a new crawl pipeline.
func NewCrawler(client indexer.Client, resolver Resolver, s store.Store, config CrawlerConfig, logger *slog.Logger) *Crawler {
	if config.Workers == 0 {
		config.Workers = 200
	}
	if config.HighWater == 0 {
		config.HighWater = 10000
	}
	if config.PollInterval == 0 {
		config.PollInterval = time.Second
	}
	if config.SaveBatchSize == 0 {
		config.SaveBatchSize = 100
	}
	if config.SaveInterval == 0 {
		config.SaveInterval = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Crawler{
		indexer:  client,
		resolver: resolver,
		store:    s,
		config:   config,
		logger:   logger.With("component", "crawler"),
	}
}

// Run executes one crawl and blocks until the workload is drained, the
// context is cancelled, or the pipeline fails.
func (c *Crawler) Run(ctx context.Context) error {
	run := domain.NewCrawlRun()
	c.runID.Store(run.ID)
	c.startedAt.Store(run.StartedAt)

	if err := c.store.CreateCrawlRun(ctx, &run); err != nil {
		return err
	}

	c.logger.Info("crawl started",
		"run_id", run.ID,
		"workers", c.config.Workers,
		"high_water", c.config.HighWater,
	)

	in := make(chan domain.Token)
	results := make(chan domain.TokenResult, c.config.SaveBatchSize)

	g, gctx := errgroup.WithContext(ctx)

	// Feeder: pulls workload batches until the indexer is drained.
	g.Go(func() error {
		defer close(in)
		return c.feed(gctx, in)
	})

	// Fetch workers: resolve token URIs concurrently.
	var workerWG sync.WaitGroup
	workerWG.Add(c.config.Workers)
	for i := 0; i < c.config.Workers; i++ {
		g.Go(func() error {
			defer workerWG.Done()
			c.work(gctx, in, results)
			return nil
		})
	}

	// Close the results channel once every worker has stopped, so the
	// saver can flush its final partial batch and exit.
	go func() {
		workerWG.Wait()
		close(results)
	}()

	// Saver: batches results back to the indexer and the journal.
	saver := newSaver(c, run.ID)
	g.Go(func() error {
		return saver.run(gctx, results)
	})

	err := g.Wait()

	run.Fetched = c.fetched.Load()
	run.Persisted = c.persisted.Load()
	run.Failed = c.failed.Load()

	status := domain.RunStatusCompleted
	if err != nil {
		status = domain.RunStatusFailed
	}
	if finishErr := run.Finish(status, err); finishErr != nil {
		c.logger.Error("failed to finalize run state", "error", finishErr)
	}

	// The run context may already be cancelled; give the final journal
	// update its own deadline.
	updateCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if updateErr := c.store.UpdateCrawlRun(updateCtx, &run); updateErr != nil {
		c.logger.Error("failed to update crawl run", "run_id", run.ID, "error", updateErr)
	}

	c.logger.Info("crawl finished",
		"run_id", run.ID,
		"status", run.Status,
		"fetched", run.Fetched,
		"persisted", run.Persisted,
		"failed", run.Failed,
		"duration", run.Duration(),
	)

	return err
}

// Snapshot returns a point-in-time view of the crawl for the ops API.
func (c *Crawler) Snapshot() domain.CrawlProgress {
	progress := domain.CrawlProgress{
		Queued:    c.pending.Load() - c.inFlight.Load(),
		InFlight:  c.inFlight.Load(),
		Fetched:   c.fetched.Load(),
		Persisted: c.persisted.Load(),
		Failed:    c.failed.Load(),
	}
	if id, ok := c.runID.Load().(string); ok {
		progress.RunID = id
	}
	if startedAt, ok := c.startedAt.Load().(time.Time); ok {
		progress.StartedAt = startedAt
	}
	return progress
}

// =============================================================================
// Feeder
// =============================================================================

// feed pulls workload batches from the indexer and enqueues them. It
// returns nil when the indexer has no more work and nothing is pending.
func (c *Crawler) feed(ctx context.Context, in chan<- domain.Token) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Backpressure: don't pull more work while the workers are
		// already saturated.
		if c.pending.Load() > int64(c.config.HighWater) {
			if err := sleepCtx(ctx, c.config.PollInterval); err != nil {
				return err
			}
			continue
		}

		tokens, err := c.indexer.FetchBatch(ctx)
		if err != nil {
			return err
		}

		if len(tokens) == 0 {
			if c.pending.Load() == 0 {
				c.logger.Info("workload drained")
				return nil
			}
			if err := sleepCtx(ctx, c.config.PollInterval); err != nil {
				return err
			}
			continue
		}

		c.logger.Debug("fetched workload batch", "count", len(tokens))

		for _, token := range tokens {
			select {
			case in <- token:
				c.pending.Add(1)
				c.fetched.Add(1)
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// =============================================================================
// Fetch Workers
// =============================================================================

// work resolves tokens until the intake closes or the context ends.
func (c *Crawler) work(ctx context.Context, in <-chan domain.Token, results chan<- domain.TokenResult) {
	for {
		select {
		case <-ctx.Done():
			return
		case token, ok := <-in:
			if !ok {
				return
			}

			c.inFlight.Add(1)
			code, metadata := c.resolver.Resolve(ctx, token.TokenURI)
			c.inFlight.Add(-1)

			select {
			case results <- domain.NewTokenResult(token, code, metadata):
			case <-ctx.Done():
				return
			}
		}
	}
}

// sleepCtx sleeps for d unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
