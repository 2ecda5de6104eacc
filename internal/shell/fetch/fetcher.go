// Package fetch resolves token URIs into metadata documents.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/onblockio/meta-crawler/internal/core/domain"
	"github.com/onblockio/meta-crawler/internal/core/uri"
)

// =============================================================================
// Fetcher
// =============================================================================

// Upstream hosts throttle or block obvious bots, so requests carry
// browser-like headers.
const (
	acceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9," +
		"image/avif,image/webp,image/apng,*/*;q=0.8," +
		"application/signed-exchange;v=b3;q=0.7"
	userAgentHeader = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/110.0.0.0 Safari/537.36"
)

// maxBodySize caps how much of a metadata response is read.
const maxBodySize = 10 << 20 // 10 MiB

// Fetcher resolves token URIs. Every failure maps to a fetch code and an
// error document; Resolve never fails with a Go error.
type Fetcher struct {
	gateway    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Config holds fetcher configuration.
type Config struct {
	// IPFSGateway is the gateway URIs with IPFS CIDs are re-rooted at.
	IPFSGateway string

	// Timeout is the per-request timeout.
	// Default: 30 seconds.
	Timeout time.Duration
}

// NewFetcher creates a new metadata fetcher.
func NewFetcher(cfg Config, logger *slog.Logger) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Fetcher{
		gateway: strings.TrimSuffix(cfg.IPFSGateway, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// Resolve fetches the metadata behind a token URI.
//
// Resolution order: inline data URIs are decoded without touching the
// network; URIs carrying an IPFS CID are re-rooted at the configured
// gateway; leftover ipfs:// and ar:// URIs are rejected with their fetch
// codes; everything else is fetched over HTTP.
func (f *Fetcher) Resolve(ctx context.Context, tokenURI string) (domain.FetchCode, string) {
	if data, err := uri.DecodeDataURI(tokenURI); err == nil {
		return 200, data
	}

	target := uri.RewriteIPFS(tokenURI, f.gateway)

	if uri.IsIPFS(target) {
		return domain.CodeInvalidIPFS, errorDoc("invalid ipfs link")
	}
	if uri.IsArweave(target) {
		return domain.CodeUnknownProtocol, errorDoc("unknown protocol")
	}

	return f.fetch(ctx, target)
}

// fetch performs the HTTP request and classifies its outcome.
func (f *Fetcher) fetch(ctx context.Context, target string) (domain.FetchCode, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return domain.CodeInvalidURI, errorDoc("invalid URI")
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", userAgentHeader)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return classifyRequestError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return domain.CodeNoResult, errorDoc("no response")
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		if isJSONContentType(resp.Header.Get("Content-Type")) {
			return domain.CodeNotParsable, errorDoc("result is not parsable")
		}
		return domain.CodeNotParsable, errorDoc("result is no json")
	}

	normalized, err := json.Marshal(decoded)
	if err != nil {
		return domain.CodeNotParsable, errorDoc("result is not parsable")
	}

	return domain.FetchCode(resp.StatusCode), string(normalized)
}

// classifyRequestError maps transport failures to fetch codes.
func classifyRequestError(err error) (domain.FetchCode, string) {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if strings.Contains(urlErr.Err.Error(), "unsupported protocol scheme") {
			return domain.CodeInvalidURI, errorDoc("invalid URI")
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return domain.CodeServiceNotFound, errorDoc("service not found")
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) {
		return domain.CodeServiceNotFound, errorDoc("service not found")
	}

	return domain.CodeNoResult, errorDoc("no response")
}

// isJSONContentType reports whether a Content-Type header claims JSON.
func isJSONContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "application/json") || strings.Contains(ct, "+json")
}

// errorDoc renders the small error document persisted for failed fetches.
func errorDoc(message string) string {
	doc, _ := json.Marshal(map[string]string{"error": message})
	return string(doc)
}
