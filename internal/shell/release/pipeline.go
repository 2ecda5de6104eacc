// Package release runs the build-and-publish pipeline: derive the
// version from the version-control ref, build the image, and push it.
package release

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/onblockio/meta-crawler/internal/core/release"
	"github.com/onblockio/meta-crawler/internal/shell/docker"
)

// =============================================================================
// Pipeline Configuration
// =============================================================================

// Config configures one pipeline run.
type Config struct {
	// Ref is the version-control ref being released, for example
	// "refs/heads/master" or "refs/tags/v1.2.3".
	Ref string

	// ImageName is the repository name the image is published under.
	// It is lowercased before use.
	ImageName string

	// ContextDir is the build context directory.
	ContextDir string

	// Dockerfile is the path of the Dockerfile relative to ContextDir.
	Dockerfile string

	// Registry and Namespace locate the target repository. Empty values
	// fall back to ghcr.io/onblockio.
	Registry  string
	Namespace string

	// Username and Token authenticate the push.
	Username string
	Token    string
}

// Result describes a completed pipeline run.
type Result struct {
	// Version is the derived version tag.
	Version string

	// Ref is the fully qualified reference the image was pushed as.
	Ref string
}

// =============================================================================
// Pipeline
// =============================================================================

// Pipeline builds and publishes one image.
type Pipeline struct {
	docker docker.Client
	logger *slog.Logger
}

// NewPipeline creates a new release pipeline.
func NewPipeline(client docker.Client, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		docker: client,
		logger: logger.With("component", "release"),
	}
}

// Run derives the push reference, builds the image, logs in to the
// registry, and pushes. The build is tagged directly with the final
// reference so no separate tag step is needed.
func (p *Pipeline) Run(ctx context.Context, config Config) (*Result, error) {
	version, err := release.DeriveVersion(config.Ref)
	if err != nil {
		return nil, fmt.Errorf("derive version from %q: %w", config.Ref, err)
	}

	ref, err := release.ImageRef(config.Registry, config.Namespace, config.ImageName, version)
	if err != nil {
		return nil, fmt.Errorf("derive image reference: %w", err)
	}

	p.logger.Info("release started",
		"ref", config.Ref,
		"version", version,
		"image", ref,
	)

	if err := p.docker.Ping(ctx); err != nil {
		return nil, err
	}

	p.logger.Info("building image", "image", ref, "context", config.ContextDir)
	if err := p.docker.BuildImage(ctx, docker.BuildSpec{
		ContextDir: config.ContextDir,
		Dockerfile: config.Dockerfile,
		Tags:       []string{ref},
	}); err != nil {
		return nil, err
	}

	// Without credentials this is a local dry build: the image exists in
	// the daemon but nothing is pushed.
	if config.Username == "" && config.Token == "" {
		p.logger.Info("no registry credentials configured, skipping push", "image", ref)
		return &Result{Version: version, Ref: ref}, nil
	}

	auth := docker.RegistryAuth{
		Username:      config.Username,
		Password:      config.Token,
		ServerAddress: registryAddress(config.Registry),
	}

	if err := p.docker.Login(ctx, auth); err != nil {
		return nil, err
	}

	p.logger.Info("pushing image", "image", ref)
	if err := p.docker.PushImage(ctx, ref, auth); err != nil {
		return nil, err
	}

	p.logger.Info("release finished", "image", ref, "version", version)

	return &Result{Version: version, Ref: ref}, nil
}

func registryAddress(registry string) string {
	if registry == "" {
		return release.DefaultRegistry
	}
	return registry
}
