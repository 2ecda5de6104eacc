package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/onblockio/meta-crawler/internal/core/release"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds the release tool configuration.
type Config struct {
	// Ref is the version-control ref being released.
	Ref string `mapstructure:"ref"`

	// Image is the repository name the image is published under.
	Image string `mapstructure:"image"`

	// ContextDir is the build context directory.
	ContextDir string `mapstructure:"context_dir"`

	// Dockerfile is the Dockerfile path relative to ContextDir.
	Dockerfile string `mapstructure:"dockerfile"`

	// Registry and Namespace locate the target repository.
	Registry  string `mapstructure:"registry"`
	Namespace string `mapstructure:"namespace"`

	// Username and Token authenticate the push.
	Username string `mapstructure:"username"`
	Token    string `mapstructure:"token"`

	// DockerHost overrides the Docker daemon address.
	DockerHost string `mapstructure:"docker_host"`

	Log LogConfig `mapstructure:"log"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from flags and environment.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("ref", "")
	v.SetDefault("image", "MetaCrawler")
	v.SetDefault("context_dir", ".")
	v.SetDefault("dockerfile", "Dockerfile")
	v.SetDefault("registry", release.DefaultRegistry)
	v.SetDefault("namespace", release.DefaultNamespace)
	v.SetDefault("username", "")
	v.SetDefault("token", "")
	v.SetDefault("docker_host", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Enable environment variable overrides
	v.SetEnvPrefix("RELEASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// CI environment names, as set by the workflow.
	v.BindEnv("ref", "RELEASE_REF", "GITHUB_REF")
	v.BindEnv("image", "RELEASE_IMAGE", "IMAGE_NAME")
	v.BindEnv("dockerfile", "RELEASE_DOCKERFILE", "DOCKER_FILE")
	v.BindEnv("username", "RELEASE_USERNAME", "REGISTRY_USER")
	v.BindEnv("token", "RELEASE_TOKEN", "REGISTRY_TOKEN")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required settings are present. Credentials are
// optional: without them the pipeline builds the image but skips the push.
func (c *Config) Validate() error {
	if c.Ref == "" {
		return errors.New("ref is required (GITHUB_REF)")
	}
	if c.Image == "" {
		return errors.New("image is required (IMAGE_NAME)")
	}
	return nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
