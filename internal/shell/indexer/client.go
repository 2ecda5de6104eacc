// Package indexer provides the client for the onblockio indexer API, which
// hands out token workload batches and stores crawled metadata.
package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/onblockio/meta-crawler/internal/core/domain"
)

// =============================================================================
// Client Interface
// =============================================================================

// Client defines the interface for talking to the indexer API.
type Client interface {
	// FetchBatch retrieves the next batch of tokens to crawl. An empty
	// slice means the indexer has no pending work.
	FetchBatch(ctx context.Context) ([]domain.Token, error)

	// PersistMetadata writes crawled results back to the indexer.
	PersistMetadata(ctx context.Context, results []domain.TokenResult) error
}

// =============================================================================
// HTTP Client Implementation
// =============================================================================

// HTTPClient implements Client against the indexer's REST API.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// Config holds configuration for the indexer client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewHTTPClient creates a new indexer API client.
func NewHTTPClient(cfg Config, logger *slog.Logger) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// batchResponse is the wire format of the workload endpoint.
type batchResponse struct {
	Tokens []domain.Token `json:"tokens"`
}

// resultPayload is the wire format of a single persisted result.
type resultPayload struct {
	ContractHash string `json:"ContractHash"`
	TokenID      string `json:"TokenId"`
	Code         int    `json:"Code"`
	Metadata     string `json:"Metadata"`
}

// FetchBatch retrieves the next workload batch from the indexer.
func (c *HTTPClient) FetchBatch(ctx context.Context) ([]domain.Token, error) {
	url := c.baseURL + "/api/v1/token/batch"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workload batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("indexer returned error %d: %s", resp.StatusCode, string(respBody))
	}

	var batch batchResponse
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, fmt.Errorf("failed to decode workload batch: %w", err)
	}

	return batch.Tokens, nil
}

// PersistMetadata writes crawled results back to the indexer.
func (c *HTTPClient) PersistMetadata(ctx context.Context, results []domain.TokenResult) error {
	if len(results) == 0 {
		return nil
	}

	payload := make([]resultPayload, len(results))
	for i, r := range results {
		payload[i] = resultPayload{
			ContractHash: r.ContractHash,
			TokenID:      r.TokenID,
			Code:         int(r.Code),
			Metadata:     r.Metadata,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	url := c.baseURL + "/api/v1/token/persist_md"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create persist request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to persist results: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("indexer returned error %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Ping checks that the workload endpoint is reachable, for readiness probes.
func (c *HTTPClient) Ping(ctx context.Context) error {
	url := c.baseURL + "/api/v1/token/batch"
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("indexer returned %d", resp.StatusCode)
	}
	return nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-KEY", c.apiKey)
	}
}

// =============================================================================
// No-Op Client (for development/testing)
// =============================================================================

// NoopClient is an indexer client that hands out no work (for development
// mode and tests).
type NoopClient struct{}

// NewNoopClient creates a no-op indexer client.
func NewNoopClient() *NoopClient {
	return &NoopClient{}
}

// FetchBatch returns no work.
func (c *NoopClient) FetchBatch(ctx context.Context) ([]domain.Token, error) {
	return nil, nil
}

// PersistMetadata does nothing.
func (c *NoopClient) PersistMetadata(ctx context.Context, results []domain.TokenResult) error {
	return nil
}
