// Command release builds the crawler image and pushes it to the
// container registry, deriving the tag from the version-control ref.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/onblockio/meta-crawler/internal/shell/docker"
	"github.com/onblockio/meta-crawler/internal/shell/release"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Exit codes
const (
	ExitSuccess     = 0
	ExitConfigError = 1
	ExitDockerError = 2
	ExitBuildError  = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("release %s (built %s)\n", Version, BuildTime)
		return ExitSuccess
	}

	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return ExitConfigError
	}

	logger := SetupLogger(cfg)
	logger.Info("starting release",
		"version", Version,
		"ref", cfg.Ref,
		"image", cfg.Image,
	)

	client, err := docker.NewDockerClient(cfg.DockerHost, logger)
	if err != nil {
		logger.Error("failed to create docker client", "error", err)
		return ExitDockerError
	}
	defer client.Close()

	pipeline := release.NewPipeline(client, logger)
	result, err := pipeline.Run(context.Background(), release.Config{
		Ref:        cfg.Ref,
		ImageName:  cfg.Image,
		ContextDir: cfg.ContextDir,
		Dockerfile: cfg.Dockerfile,
		Registry:   cfg.Registry,
		Namespace:  cfg.Namespace,
		Username:   cfg.Username,
		Token:      cfg.Token,
	})
	if err != nil {
		logger.Error("release failed", "error", err)
		return ExitBuildError
	}

	logger.Info("release complete",
		"image", result.Ref,
		"version", result.Version,
	)
	return ExitSuccess
}
