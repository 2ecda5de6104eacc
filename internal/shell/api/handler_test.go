package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/onblockio/meta-crawler/internal/core/domain"
	"github.com/onblockio/meta-crawler/internal/shell/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeProgress struct {
	progress domain.CrawlProgress
}

func (f fakeProgress) Snapshot() domain.CrawlProgress { return f.progress }

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

type fakeStore struct {
	store.Store

	runs     []domain.CrawlRun
	counts   map[domain.FetchCode]int64
	listErr  error
	getErr   error
	countErr error
}

func (f *fakeStore) ListRecentRuns(ctx context.Context, limit int) ([]domain.CrawlRun, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if limit < len(f.runs) {
		return f.runs[:limit], nil
	}
	return f.runs, nil
}

func (f *fakeStore) GetCrawlRun(ctx context.Context, id string) (*domain.CrawlRun, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for i := range f.runs {
		if f.runs[i].ID == id {
			return &f.runs[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) CountOutcomesByCode(ctx context.Context, runID string) (map[domain.FetchCode]int64, error) {
	if f.countErr != nil {
		return nil, f.countErr
	}
	return f.counts, nil
}

func newTestHandler(s *fakeStore, progress domain.CrawlProgress, pingErr error) http.Handler {
	h := NewHandler(s, fakeProgress{progress: progress}, fakePinger{err: pingErr}, nil)
	return h.Routes()
}

func doRequest(t *testing.T, handler http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// =============================================================================
// Health Tests
// =============================================================================

func TestHandler_Health(t *testing.T) {
	handler := newTestHandler(&fakeStore{}, domain.CrawlProgress{}, nil)

	rec := doRequest(t, handler, http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
}

func TestHandler_Ready(t *testing.T) {
	handler := newTestHandler(&fakeStore{}, domain.CrawlProgress{}, nil)

	rec := doRequest(t, handler, http.MethodGet, "/ready")

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ReadyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, "ok", resp.Checks["store"])
	assert.Equal(t, "ok", resp.Checks["indexer"])
}

func TestHandler_Ready_IndexerDown(t *testing.T) {
	handler := newTestHandler(&fakeStore{}, domain.CrawlProgress{}, errors.New("connection refused"))

	rec := doRequest(t, handler, http.MethodGet, "/ready")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp ReadyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "not_ready", resp.Status)
	assert.Equal(t, "failed", resp.Checks["indexer"])
}

func TestHandler_Ready_StoreDown(t *testing.T) {
	s := &fakeStore{listErr: errors.New("database is locked")}
	handler := newTestHandler(s, domain.CrawlProgress{}, nil)

	rec := doRequest(t, handler, http.MethodGet, "/ready")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// =============================================================================
// Status Tests
// =============================================================================

func TestHandler_Status(t *testing.T) {
	progress := domain.CrawlProgress{
		RunID:     "run-1",
		Queued:    40,
		InFlight:  10,
		Fetched:   150,
		Persisted: 100,
		Failed:    3,
	}
	s := &fakeStore{counts: map[domain.FetchCode]int64{
		200:                    97,
		domain.CodeInvalidIPFS: 2,
		domain.CodeNotParsable: 1,
	}}
	handler := newTestHandler(s, progress, nil)

	rec := doRequest(t, handler, http.MethodGet, "/status")

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "run-1", resp.Run.RunID)
	assert.Equal(t, int64(100), resp.Run.Persisted)
	assert.Equal(t, "ok", resp.Health)
	assert.Equal(t, int64(97), resp.Codes["200"])
	assert.Equal(t, int64(2), resp.Codes["4"])
	assert.Equal(t, int64(1), resp.Codes["1"])
}

func TestHandler_Status_NoRunYet(t *testing.T) {
	handler := newTestHandler(&fakeStore{}, domain.CrawlProgress{}, nil)

	rec := doRequest(t, handler, http.MethodGet, "/status")

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unknown", resp.Health)
	assert.Empty(t, resp.Codes)
}

// =============================================================================
// Run Tests
// =============================================================================

func testRuns() []domain.CrawlRun {
	finished := time.Now().UTC()
	return []domain.CrawlRun{
		{
			ID:        "run-2",
			Status:    domain.RunStatusRunning,
			Fetched:   50,
			StartedAt: finished.Add(-time.Minute),
		},
		{
			ID:         "run-1",
			Status:     domain.RunStatusCompleted,
			Fetched:    1000,
			Persisted:  990,
			Failed:     10,
			StartedAt:  finished.Add(-time.Hour),
			FinishedAt: &finished,
		},
	}
}

func TestHandler_ListRuns(t *testing.T) {
	handler := newTestHandler(&fakeStore{runs: testRuns()}, domain.CrawlProgress{}, nil)

	rec := doRequest(t, handler, http.MethodGet, "/api/v1/runs")

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ListRunsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Runs, 2)
	assert.Equal(t, "run-2", resp.Runs[0].ID)
	assert.Equal(t, "running", resp.Runs[0].Status)
	assert.Equal(t, "run-1", resp.Runs[1].ID)
	require.NotNil(t, resp.Runs[1].FinishedAt)
}

func TestHandler_ListRuns_Limit(t *testing.T) {
	handler := newTestHandler(&fakeStore{runs: testRuns()}, domain.CrawlProgress{}, nil)

	rec := doRequest(t, handler, http.MethodGet, "/api/v1/runs?limit=1")

	var resp ListRunsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Runs, 1)
}

func TestHandler_ListRuns_InvalidLimit(t *testing.T) {
	handler := newTestHandler(&fakeStore{}, domain.CrawlProgress{}, nil)

	rec := doRequest(t, handler, http.MethodGet, "/api/v1/runs?limit=banana")

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "validation_error", resp.Code)
}

func TestHandler_GetRun(t *testing.T) {
	handler := newTestHandler(&fakeStore{runs: testRuns()}, domain.CrawlProgress{}, nil)

	rec := doRequest(t, handler, http.MethodGet, "/api/v1/runs/run-1")

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "run-1", resp.ID)
	assert.Equal(t, int64(990), resp.Persisted)
}

func TestHandler_GetRun_NotFound(t *testing.T) {
	handler := newTestHandler(&fakeStore{}, domain.CrawlProgress{}, nil)

	rec := doRequest(t, handler, http.MethodGet, "/api/v1/runs/missing")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_RequestIDHeader(t *testing.T) {
	handler := newTestHandler(&fakeStore{}, domain.CrawlProgress{}, nil)

	rec := doRequest(t, handler, http.MethodGet, "/health")

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
