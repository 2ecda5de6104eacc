package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/onblockio/meta-crawler/internal/shell/api"
	"github.com/onblockio/meta-crawler/internal/shell/fetch"
	"github.com/onblockio/meta-crawler/internal/shell/indexer"
	"github.com/onblockio/meta-crawler/internal/shell/store"
	"github.com/onblockio/meta-crawler/internal/shell/workers"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess         = 0
	ExitConfigError     = 1
	ExitDatabaseError   = 2
	ExitIndexerError    = 3
	ExitHTTPServerError = 4
	ExitCrawlError      = 5
)

// =============================================================================
// Server
// =============================================================================

// Server wires the crawl pipeline together with the operations API.
type Server struct {
	config     *Config
	httpServer *http.Server
	store      store.Store
	indexer    *indexer.HTTPClient
	crawler    *workers.Crawler
	logger     *slog.Logger
}

// NewServer creates a new server with the given config.
func NewServer(cfg *Config, logger *slog.Logger) (*Server, error) {
	// Open the run journal
	s, err := store.NewSQLiteStore(cfg.Database.DSN)
	if err != nil {
		return nil, &ServerError{
			Op:       "NewServer",
			Err:      err,
			ExitCode: ExitDatabaseError,
		}
	}

	// Create the indexer API client
	client := indexer.NewHTTPClient(indexer.Config{
		BaseURL: cfg.Indexer.BaseURL,
		APIKey:  cfg.Indexer.APIKey,
		Timeout: cfg.Indexer.Timeout,
	}, logger)

	// Create the metadata fetcher
	fetcher := fetch.NewFetcher(fetch.Config{
		IPFSGateway: cfg.Fetch.IPFSGateway,
		Timeout:     cfg.Fetch.Timeout,
	}, logger)

	// Create the crawl pipeline
	crawler := workers.NewCrawler(client, fetcher, s, workers.CrawlerConfig{
		Workers:       cfg.Crawl.Workers,
		HighWater:     cfg.Crawl.HighWater,
		PollInterval:  cfg.Crawl.PollInterval,
		SaveBatchSize: cfg.Crawl.SaveBatchSize,
		SaveInterval:  cfg.Crawl.SaveInterval,
	}, logger)

	// Create the operations HTTP server
	var httpServer *http.Server
	if cfg.Server.Enabled {
		handler := api.NewHandler(s, crawler, client, logger)
		httpServer = &http.Server{
			Addr:         cfg.Server.Address(),
			Handler:      handler.Routes(),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
	}

	return &Server{
		config:     cfg,
		httpServer: httpServer,
		store:      s,
		indexer:    client,
		crawler:    crawler,
		logger:     logger,
	}, nil
}

// Start runs the crawl and blocks until it drains, fails, or a shutdown
// signal arrives.
func (s *Server) Start(ctx context.Context) error {
	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start the crawl pipeline
	crawlErr := make(chan error, 1)
	go func() {
		crawlErr <- s.crawler.Run(runCtx)
	}()

	// Start the operations HTTP server in a goroutine
	httpErr := make(chan error, 1)
	if s.httpServer != nil {
		go func() {
			s.logger.Info("starting operations server",
				"address", s.config.Server.Address())
			if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				httpErr <- err
			}
		}()
	}

	// Wait for crawl completion, shutdown signal, or error
	var exitErr error
	select {
	case sig := <-sigCh:
		s.logger.Info("received shutdown signal", "signal", sig)
		cancel()
		<-crawlErr

	case err := <-crawlErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			exitErr = &ServerError{
				Op:       "Start",
				Err:      err,
				ExitCode: ExitCrawlError,
			}
		}

	case err := <-httpErr:
		cancel()
		<-crawlErr
		exitErr = &ServerError{
			Op:       "Start",
			Err:      err,
			ExitCode: ExitHTTPServerError,
		}

	case <-ctx.Done():
		s.logger.Info("context cancelled")
		cancel()
		<-crawlErr
	}

	if err := s.Shutdown(context.Background()); err != nil {
		s.logger.Error("shutdown error", "error", err)
	}

	return exitErr
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	// Shutdown operations HTTP server
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("HTTP server shutdown error", "error", err)
		}
	}

	// Close the run journal
	if err := s.store.Close(); err != nil {
		s.logger.Error("database close error", "error", err)
	}

	s.logger.Info("shutdown complete")
	return nil
}

// =============================================================================
// Server Error
// =============================================================================

// ServerError represents an error during server operation.
type ServerError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *ServerError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ServerError) Unwrap() error {
	return e.Err
}
