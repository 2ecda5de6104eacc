package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Indexer  IndexerConfig  `mapstructure:"indexer"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Crawl    CrawlConfig    `mapstructure:"crawl"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds the operations HTTP server configuration.
type ServerConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address returns the server address in host:port format.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds the run journal configuration.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// IndexerConfig holds the indexer API client configuration.
type IndexerConfig struct {
	// BaseURL is the indexer API base URL, without a trailing slash.
	BaseURL string `mapstructure:"base_url"`

	// APIKey is sent in the X-API-KEY header.
	APIKey string `mapstructure:"api_key"`

	// Timeout bounds each batch and persist request.
	Timeout time.Duration `mapstructure:"timeout"`
}

// FetchConfig holds metadata fetch configuration.
type FetchConfig struct {
	// IPFSGateway is the HTTP gateway IPFS links are resolved through.
	IPFSGateway string `mapstructure:"ipfs_gateway"`

	// Timeout bounds each metadata request.
	Timeout time.Duration `mapstructure:"timeout"`
}

// CrawlConfig holds crawl pipeline configuration.
type CrawlConfig struct {
	// Workers is the number of concurrent fetch workers.
	Workers int `mapstructure:"workers"`

	// HighWater stops the feeder when this many tokens are pending.
	HighWater int `mapstructure:"high_water"`

	// PollInterval is the feeder wait between workload polls.
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// SaveBatchSize is the maximum persist batch size.
	SaveBatchSize int `mapstructure:"save_batch_size"`

	// SaveInterval is how often partial batches are flushed.
	SaveInterval time.Duration `mapstructure:"save_interval"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("database.dsn", "./data/crawler.db")
	v.SetDefault("indexer.base_url", "")
	v.SetDefault("indexer.api_key", "")
	v.SetDefault("indexer.timeout", "30s")
	v.SetDefault("fetch.ipfs_gateway", "https://ipfs.io/ipfs/")
	v.SetDefault("fetch.timeout", "30s")
	v.SetDefault("crawl.workers", 200)
	v.SetDefault("crawl.high_water", 10000)
	v.SetDefault("crawl.poll_interval", "1s")
	v.SetDefault("crawl.save_batch_size", 100)
	v.SetDefault("crawl.save_interval", "5s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("CRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Legacy environment names, kept for existing deployments.
	v.BindEnv("indexer.base_url", "CRAWLER_INDEXER_BASE_URL", "API_URI")
	v.BindEnv("indexer.api_key", "CRAWLER_INDEXER_API_KEY", "API_KEY")
	v.BindEnv("fetch.ipfs_gateway", "CRAWLER_FETCH_IPFS_GATEWAY", "IPFS_GATEWAY")
	v.BindEnv("crawl.workers", "CRAWLER_CRAWL_WORKERS", "MAX_REQUESTS")

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required settings are present and sane.
func (c *Config) Validate() error {
	if c.Indexer.BaseURL == "" {
		return errors.New("indexer.base_url is required (API_URI)")
	}
	if c.Crawl.Workers < 1 {
		return errors.New("crawl.workers must be at least 1")
	}
	if c.Crawl.SaveBatchSize < 1 {
		return errors.New("crawl.save_batch_size must be at least 1")
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
	if strings.ToLower(cfg.Log.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
