package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/SiddharthSanch/product-discoverer/internal/model"
)

// CrawlDB provides SQLite-based storage for crawl jobs and the URLs
// they discover.
//
// Design decision: We use a single database file for all domains rather
// than one file per domain. This keeps cross-domain queries (job
// history, repeated crawls of the same catalog) simple and makes
// backup/restore a single-file operation.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, "discoverer.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating
	// new files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; multiple connections just queue.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- Jobs store one record per crawl run
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		domain TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at DATETIME,
		finished_at DATETIME,
		discovered INTEGER DEFAULT 0,
		visited INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		budget_capped INTEGER DEFAULT 0,
		error_message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_domain ON jobs(domain);
	CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);

	-- Discovered URLs store the result set of a completed job
	CREATE TABLE IF NOT EXISTS discovered_urls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL,
		url TEXT NOT NULL,
		UNIQUE(job_id, url),
		FOREIGN KEY(job_id) REFERENCES jobs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_urls_job ON discovered_urls(job_id);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// JobRecord is a stored crawl job row.
type JobRecord struct {
	ID           string
	Domain       string
	Status       string
	StartedAt    time.Time
	FinishedAt   time.Time
	Discovered   int
	Visited      int
	Failed       int
	BudgetCapped bool
	ErrorMessage string
}

// SaveJob upserts the job row and replaces its result URLs in a single
// transaction, so a crash never leaves a completed job with half its
// URLs.
func (cdb *CrawlDB) SaveJob(ctx context.Context, snap model.JobSnapshot, urls []string) error {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	query := `
	INSERT INTO jobs (id, domain, status, started_at, finished_at, discovered, visited, failed, budget_capped, error_message)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		status = excluded.status,
		started_at = excluded.started_at,
		finished_at = excluded.finished_at,
		discovered = excluded.discovered,
		visited = excluded.visited,
		failed = excluded.failed,
		budget_capped = excluded.budget_capped,
		error_message = excluded.error_message
	`

	var finishedAt interface{}
	if !snap.FinishedAt.IsZero() {
		finishedAt = snap.FinishedAt.UTC().Format(time.RFC3339)
	}
	var startedAt interface{}
	if !snap.StartedAt.IsZero() {
		startedAt = snap.StartedAt.UTC().Format(time.RFC3339)
	}

	if _, err := tx.ExecContext(ctx, query,
		snap.ID,
		snap.Domain,
		string(snap.Status),
		startedAt,
		finishedAt,
		snap.Stats.Discovered,
		snap.Stats.Visited,
		snap.Stats.Failed,
		snap.BudgetCapped,
		snap.ErrorMessage,
	); err != nil {
		return fmt.Errorf("failed to upsert job: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM discovered_urls WHERE job_id = ?`, snap.ID); err != nil {
		return fmt.Errorf("failed to clear job URLs: %w", err)
	}

	for _, u := range urls {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO discovered_urls (job_id, url) VALUES (?, ?)`, snap.ID, u); err != nil {
			return fmt.Errorf("failed to insert URL: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

// GetJob retrieves a job row by ID. Returns nil when the job does not
// exist.
func (cdb *CrawlDB) GetJob(ctx context.Context, id string) (*JobRecord, error) {
	query := `
	SELECT id, domain, status, started_at, finished_at, discovered, visited, failed, budget_capped, error_message
	FROM jobs
	WHERE id = ?
	`
	return cdb.scanJob(cdb.db.QueryRowContext(ctx, query, id))
}

// GetLatestJobByDomain retrieves the most recently started job for a
// domain. Returns nil when the domain was never crawled.
func (cdb *CrawlDB) GetLatestJobByDomain(ctx context.Context, domain string) (*JobRecord, error) {
	query := `
	SELECT id, domain, status, started_at, finished_at, discovered, visited, failed, budget_capped, error_message
	FROM jobs
	WHERE domain = ?
	ORDER BY started_at DESC
	LIMIT 1
	`
	return cdb.scanJob(cdb.db.QueryRowContext(ctx, query, domain))
}

func (cdb *CrawlDB) scanJob(row *sql.Row) (*JobRecord, error) {
	var rec JobRecord
	var startedAt, finishedAt, errorMessage sql.NullString

	err := row.Scan(
		&rec.ID,
		&rec.Domain,
		&rec.Status,
		&startedAt,
		&finishedAt,
		&rec.Discovered,
		&rec.Visited,
		&rec.Failed,
		&rec.BudgetCapped,
		&errorMessage,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	if startedAt.Valid {
		rec.StartedAt = parseTimestamp(startedAt.String)
	}
	if finishedAt.Valid {
		rec.FinishedAt = parseTimestamp(finishedAt.String)
	}
	rec.ErrorMessage = errorMessage.String

	return &rec, nil
}

// GetJobURLs retrieves the result URLs of a job in lexicographic order.
func (cdb *CrawlDB) GetJobURLs(ctx context.Context, jobID string) ([]string, error) {
	query := `
	SELECT url FROM discovered_urls
	WHERE job_id = ?
	ORDER BY url
	`

	rows, err := cdb.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query job URLs: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan URL: %w", err)
		}
		urls = append(urls, u)
	}

	return urls, rows.Err()
}

// ListCrawledDomains returns all domains that have at least one job,
// sorted.
func (cdb *CrawlDB) ListCrawledDomains(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT domain FROM jobs
	ORDER BY domain
	`

	rows, err := cdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}
	defer rows.Close()

	var domains []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan domain: %w", err)
		}
		domains = append(domains, d)
	}

	return domains, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05", // SQLite default datetime format
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
