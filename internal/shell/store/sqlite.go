package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/onblockio/meta-crawler/internal/core/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeFormat is how timestamps are stored in SQLite.
const timeFormat = time.RFC3339Nano

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to open database", ErrConnectionFailed)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// Crawl Run Operations
// =============================================================================

// crawlRunRow represents a crawl run row in the database.
type crawlRunRow struct {
	ID           string  `db:"id"`
	Status       string  `db:"status"`
	Fetched      int64   `db:"fetched"`
	Persisted    int64   `db:"persisted"`
	Failed       int64   `db:"failed"`
	ErrorMessage string  `db:"error_message"`
	StartedAt    string  `db:"started_at"`
	FinishedAt   *string `db:"finished_at"`
}

func (r crawlRunRow) toDomain() (*domain.CrawlRun, error) {
	startedAt, err := time.Parse(timeFormat, r.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid started_at: %w", err)
	}

	run := &domain.CrawlRun{
		ID:        r.ID,
		Status:    domain.RunStatus(r.Status),
		Fetched:   r.Fetched,
		Persisted: r.Persisted,
		Failed:    r.Failed,
		Error:     r.ErrorMessage,
		StartedAt: startedAt,
	}

	if r.FinishedAt != nil {
		finishedAt, err := time.Parse(timeFormat, *r.FinishedAt)
		if err != nil {
			return nil, fmt.Errorf("invalid finished_at: %w", err)
		}
		run.FinishedAt = &finishedAt
	}

	return run, nil
}

func rowFromRun(run *domain.CrawlRun) crawlRunRow {
	row := crawlRunRow{
		ID:           run.ID,
		Status:       string(run.Status),
		Fetched:      run.Fetched,
		Persisted:    run.Persisted,
		Failed:       run.Failed,
		ErrorMessage: run.Error,
		StartedAt:    run.StartedAt.Format(timeFormat),
	}
	if run.FinishedAt != nil {
		finishedAt := run.FinishedAt.Format(timeFormat)
		row.FinishedAt = &finishedAt
	}
	return row
}

func (s *SQLiteStore) CreateCrawlRun(ctx context.Context, run *domain.CrawlRun) error {
	row := rowFromRun(run)

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO crawl_runs (id, status, fetched, persisted, failed, error_message, started_at, finished_at)
		VALUES (:id, :status, :fetched, :persisted, :failed, :error_message, :started_at, :finished_at)`,
		row)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return NewStoreError("CreateCrawlRun", "crawl_run", run.ID, "run already exists", ErrDuplicateID)
		}
		return NewStoreError("CreateCrawlRun", "crawl_run", run.ID, err.Error(), err)
	}

	return nil
}

func (s *SQLiteStore) UpdateCrawlRun(ctx context.Context, run *domain.CrawlRun) error {
	row := rowFromRun(run)

	result, err := s.db.NamedExecContext(ctx, `
		UPDATE crawl_runs
		SET status = :status,
		    fetched = :fetched,
		    persisted = :persisted,
		    failed = :failed,
		    error_message = :error_message,
		    finished_at = :finished_at
		WHERE id = :id`,
		row)
	if err != nil {
		return NewStoreError("UpdateCrawlRun", "crawl_run", run.ID, err.Error(), err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return NewStoreError("UpdateCrawlRun", "crawl_run", run.ID, err.Error(), err)
	}
	if affected == 0 {
		return NewStoreError("UpdateCrawlRun", "crawl_run", run.ID, "run not found", ErrNotFound)
	}

	return nil
}

func (s *SQLiteStore) GetCrawlRun(ctx context.Context, id string) (*domain.CrawlRun, error) {
	var row crawlRunRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM crawl_runs WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetCrawlRun", "crawl_run", id, "run not found", ErrNotFound)
		}
		return nil, NewStoreError("GetCrawlRun", "crawl_run", id, err.Error(), err)
	}

	run, err := row.toDomain()
	if err != nil {
		return nil, NewStoreError("GetCrawlRun", "crawl_run", id, err.Error(), err)
	}
	return run, nil
}

func (s *SQLiteStore) ListRecentRuns(ctx context.Context, limit int) ([]domain.CrawlRun, error) {
	if limit <= 0 {
		limit = 10
	}

	var rows []crawlRunRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM crawl_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, NewStoreError("ListRecentRuns", "crawl_run", "", err.Error(), err)
	}

	runs := make([]domain.CrawlRun, 0, len(rows))
	for _, row := range rows {
		run, err := row.toDomain()
		if err != nil {
			return nil, NewStoreError("ListRecentRuns", "crawl_run", row.ID, err.Error(), err)
		}
		runs = append(runs, *run)
	}

	return runs, nil
}

// =============================================================================
// Outcome Operations
// =============================================================================

// outcomeRow represents a crawl outcome row in the database.
type outcomeRow struct {
	RunID        string `db:"run_id"`
	ContractHash string `db:"contract_hash"`
	TokenID      string `db:"token_id"`
	TokenURI     string `db:"token_uri"`
	Code         int64  `db:"code"`
	CreatedAt    string `db:"created_at"`
}

func (s *SQLiteStore) RecordOutcomes(ctx context.Context, runID string, results []domain.TokenResult) error {
	if len(results) == 0 {
		return nil
	}

	now := time.Now().UTC().Format(timeFormat)
	rows := make([]outcomeRow, len(results))
	for i, r := range results {
		rows[i] = outcomeRow{
			RunID:        runID,
			ContractHash: r.ContractHash,
			TokenID:      r.TokenID,
			TokenURI:     r.TokenURI,
			Code:         int64(r.Code),
			CreatedAt:    now,
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return NewStoreError("RecordOutcomes", "outcome", runID, err.Error(), err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO crawl_outcomes (run_id, contract_hash, token_id, token_uri, code, created_at)
		VALUES (:run_id, :contract_hash, :token_id, :token_uri, :code, :created_at)`,
		rows)
	if err != nil {
		return NewStoreError("RecordOutcomes", "outcome", runID, err.Error(), err)
	}

	if err := tx.Commit(); err != nil {
		return NewStoreError("RecordOutcomes", "outcome", runID, err.Error(), err)
	}

	return nil
}

func (s *SQLiteStore) CountOutcomesByCode(ctx context.Context, runID string) (map[domain.FetchCode]int64, error) {
	type codeCount struct {
		Code  int64 `db:"code"`
		Count int64 `db:"count"`
	}

	var rows []codeCount
	err := s.db.SelectContext(ctx, &rows, `
		SELECT code, COUNT(*) AS count
		FROM crawl_outcomes
		WHERE run_id = ?
		GROUP BY code`,
		runID)
	if err != nil {
		return nil, NewStoreError("CountOutcomesByCode", "outcome", runID, err.Error(), err)
	}

	counts := make(map[domain.FetchCode]int64, len(rows))
	for _, row := range rows {
		counts[domain.FetchCode(row.Code)] = row.Count
	}

	return counts, nil
}
