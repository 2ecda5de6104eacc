// Command crawler drains the indexer's pending token workload, resolving
// each token URI and writing the metadata back.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("crawler %s (built %s)\n", Version, BuildTime)
		os.Exit(ExitSuccess)
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(ExitConfigError)
	}

	logger := SetupLogger(cfg)
	logger.Info("starting crawler",
		"version", Version,
		"indexer", cfg.Indexer.BaseURL,
		"workers", cfg.Crawl.Workers,
	)

	server, err := NewServer(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(exitCode(err))
	}

	if err := server.Start(context.Background()); err != nil {
		logger.Error("crawler exited with error", "error", err)
		os.Exit(exitCode(err))
	}

	os.Exit(ExitSuccess)
}

// exitCode maps an error to the process exit code.
func exitCode(err error) int {
	var sErr *ServerError
	if errors.As(err, &sErr) {
		return sErr.ExitCode
	}
	return ExitConfigError
}
