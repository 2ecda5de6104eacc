package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("API_URI", "https://indexer.example.com")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.True(t, cfg.Server.Enabled)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "./data/crawler.db", cfg.Database.DSN)
	assert.Equal(t, "https://indexer.example.com", cfg.Indexer.BaseURL)
	assert.Equal(t, "https://ipfs.io/ipfs/", cfg.Fetch.IPFSGateway)
	assert.Equal(t, 200, cfg.Crawl.Workers)
	assert.Equal(t, 10000, cfg.Crawl.HighWater)
	assert.Equal(t, time.Second, cfg.Crawl.PollInterval)
	assert.Equal(t, 100, cfg.Crawl.SaveBatchSize)
	assert.Equal(t, 5*time.Second, cfg.Crawl.SaveInterval)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfig_MissingIndexerURL(t *testing.T) {
	_, err := LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "indexer.base_url")
}

func TestLoadConfig_LegacyEnvNames(t *testing.T) {
	t.Setenv("API_URI", "https://indexer.example.com")
	t.Setenv("API_KEY", "secret-key")
	t.Setenv("IPFS_GATEWAY", "https://gateway.example.com/ipfs/")
	t.Setenv("MAX_REQUESTS", "50")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "https://indexer.example.com", cfg.Indexer.BaseURL)
	assert.Equal(t, "secret-key", cfg.Indexer.APIKey)
	assert.Equal(t, "https://gateway.example.com/ipfs/", cfg.Fetch.IPFSGateway)
	assert.Equal(t, 50, cfg.Crawl.Workers)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("CRAWLER_INDEXER_BASE_URL", "https://indexer.example.com")
	t.Setenv("CRAWLER_CRAWL_WORKERS", "16")
	t.Setenv("CRAWLER_LOG_LEVEL", "debug")
	t.Setenv("CRAWLER_SERVER_PORT", "9090")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.Crawl.Workers)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadConfig_PrefixedNameWinsOverLegacy(t *testing.T) {
	t.Setenv("API_URI", "https://legacy.example.com")
	t.Setenv("CRAWLER_INDEXER_BASE_URL", "https://new.example.com")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "https://new.example.com", cfg.Indexer.BaseURL)
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
indexer:
  base_url: https://indexer.example.com
  api_key: file-key
crawl:
  workers: 8
  save_batch_size: 25
log:
  level: warn
  format: text
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://indexer.example.com", cfg.Indexer.BaseURL)
	assert.Equal(t, "file-key", cfg.Indexer.APIKey)
	assert.Equal(t, 8, cfg.Crawl.Workers)
	assert.Equal(t, 25, cfg.Crawl.SaveBatchSize)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing base url",
			mutate:  func(c *Config) { c.Indexer.BaseURL = "" },
			wantErr: "indexer.base_url",
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Crawl.Workers = 0 },
			wantErr: "crawl.workers",
		},
		{
			name:    "zero batch size",
			mutate:  func(c *Config) { c.Crawl.SaveBatchSize = 0 },
			wantErr: "crawl.save_batch_size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Indexer: IndexerConfig{BaseURL: "https://indexer.example.com"},
				Crawl:   CrawlConfig{Workers: 200, SaveBatchSize: 100},
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestServerConfig_Address(t *testing.T) {
	cfg := ServerConfig{Host: "127.0.0.1", Port: 9090}
	assert.Equal(t, "127.0.0.1:9090", cfg.Address())
}

func TestSetupLogger_Levels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus"} {
		cfg := &Config{Log: LogConfig{Level: level, Format: "text"}}
		assert.NotNil(t, SetupLogger(cfg))
	}
}
