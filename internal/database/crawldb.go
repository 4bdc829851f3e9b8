package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/linkharvest/internal/model"
)

// DBFileName is the name of the database file inside the data directory.
const DBFileName = "linkharvest.db"

// ErrRunNotFound is returned when a crawl run ID is unknown.
var ErrRunNotFound = errors.New("crawl run not found")

// CrawlDB provides SQLite-based storage for links and crawl history.
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
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

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

	// mode=rw refuses to create a missing file; mode=rwc allows it.
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

	// SQLite only supports one writer.
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

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- Domains known to the link store, including those with no links yet
	CREATE TABLE IF NOT EXISTS domains (
		domain TEXT PRIMARY KEY
	);

	-- Every link ever discovered, per domain
	CREATE TABLE IF NOT EXISTS links (
		domain TEXT NOT NULL,
		url TEXT NOT NULL,
		PRIMARY KEY (domain, url)
	);

	-- One row per crawl invocation
	CREATE TABLE IF NOT EXISTS crawl_runs (
		id TEXT PRIMARY KEY,
		seed TEXT NOT NULL,
		domain TEXT NOT NULL,
		max_links INTEGER NOT NULL,
		discovered_count INTEGER NOT NULL DEFAULT 0,
		new_count INTEGER NOT NULL DEFAULT 0,
		pages_fetched INTEGER NOT NULL DEFAULT 0,
		pages_failed INTEGER NOT NULL DEFAULT 0,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_runs_domain ON crawl_runs(domain);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON crawl_runs(started_at);

	-- Links a run found to be new
	CREATE TABLE IF NOT EXISTS run_links (
		run_id TEXT NOT NULL REFERENCES crawl_runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		PRIMARY KEY (run_id, url)
	);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// Load returns the full domain to links mapping.
func (cdb *CrawlDB) Load(ctx context.Context) (model.Links, error) {
	links := model.NewLinks()

	domainRows, err := cdb.db.QueryContext(ctx, `SELECT domain FROM domains`)
	if err != nil {
		return nil, fmt.Errorf("failed to query domains: %w", err)
	}
	defer domainRows.Close()

	for domainRows.Next() {
		var domain string
		if err := domainRows.Scan(&domain); err != nil {
			return nil, fmt.Errorf("failed to scan domain: %w", err)
		}
		links[domain] = []string{}
	}
	if err := domainRows.Err(); err != nil {
		return nil, err
	}

	rows, err := cdb.db.QueryContext(ctx, `SELECT domain, url FROM links ORDER BY domain, url`)
	if err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var domain, url string
		if err := rows.Scan(&domain, &url); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links[domain] = append(links[domain], url)
	}

	return links, rows.Err()
}

// Save replaces the stored mapping within one transaction.
func (cdb *CrawlDB) Save(ctx context.Context, links model.Links) (err error) {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM links`); err != nil {
		return fmt.Errorf("failed to clear links: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM domains`); err != nil {
		return fmt.Errorf("failed to clear domains: %w", err)
	}

	domainStmt, err := tx.PrepareContext(ctx, `INSERT INTO domains (domain) VALUES (?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare domain insert: %w", err)
	}
	defer domainStmt.Close()

	linkStmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO links (domain, url) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare link insert: %w", err)
	}
	defer linkStmt.Close()

	for _, domain := range links.Domains() {
		if _, err = domainStmt.ExecContext(ctx, domain); err != nil {
			return fmt.Errorf("failed to insert domain %s: %w", domain, err)
		}
		for _, url := range links[domain] {
			if _, err = linkStmt.ExecContext(ctx, domain, url); err != nil {
				return fmt.Errorf("failed to insert link: %w", err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit links: %w", err)
	}
	return nil
}

// SaveRun records a crawl run and the links it found to be new.
func (cdb *CrawlDB) SaveRun(ctx context.Context, run *model.CrawlRun) (err error) {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query := `
	INSERT INTO crawl_runs (id, seed, domain, max_links, discovered_count, new_count,
		pages_fetched, pages_failed, started_at, finished_at, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		run.ID,
		run.Seed,
		run.Domain,
		run.MaxLinks,
		run.DiscoveredCount,
		run.NewCount,
		run.PagesFetched,
		run.PagesFailed,
		formatTimestamp(run.StartedAt),
		formatTimestamp(run.FinishedAt),
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert crawl run: %w", err)
	}

	for _, url := range run.NewLinks {
		if _, err = tx.ExecContext(ctx, `INSERT OR IGNORE INTO run_links (run_id, url) VALUES (?, ?)`, run.ID, url); err != nil {
			return fmt.Errorf("failed to insert run link: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit crawl run: %w", err)
	}
	return nil
}

const runColumns = `id, seed, domain, max_links, discovered_count, new_count,
	pages_fetched, pages_failed, started_at, finished_at, error`

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*model.CrawlRun, error) {
	var run model.CrawlRun
	var startedAt, finishedAt string

	err := s.Scan(
		&run.ID,
		&run.Seed,
		&run.Domain,
		&run.MaxLinks,
		&run.DiscoveredCount,
		&run.NewCount,
		&run.PagesFetched,
		&run.PagesFailed,
		&startedAt,
		&finishedAt,
		&run.Error,
	)
	if err != nil {
		return nil, err
	}

	run.StartedAt = parseTimestamp(startedAt)
	run.FinishedAt = parseTimestamp(finishedAt)
	return &run, nil
}

// ListRuns returns crawl runs, newest first. An empty domain lists runs for
// every domain. A limit of zero or less means no limit.
func (cdb *CrawlDB) ListRuns(ctx context.Context, domain string, limit int) ([]*model.CrawlRun, error) {
	query := `SELECT ` + runColumns + ` FROM crawl_runs WHERE 1=1`
	args := make([]any, 0)

	if domain != "" {
		query += " AND domain = ?"
		args = append(args, domain)
	}

	query += " ORDER BY started_at DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query crawl runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*model.CrawlRun, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan crawl run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// GetRun returns one crawl run with the links it found to be new.
func (cdb *CrawlDB) GetRun(ctx context.Context, id string) (*model.CrawlRun, error) {
	row := cdb.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM crawl_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl run: %w", err)
	}

	rows, err := cdb.db.QueryContext(ctx, `SELECT url FROM run_links WHERE run_id = ? ORDER BY url`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query run links: %w", err)
	}
	defer rows.Close()

	run.NewLinks = make([]string, 0)
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan run link: %w", err)
		}
		run.NewLinks = append(run.NewLinks, url)
	}

	return run, rows.Err()
}

// ListDomains returns every domain that has stored links or crawl runs.
func (cdb *CrawlDB) ListDomains(ctx context.Context) ([]string, error) {
	query := `
	SELECT domain FROM domains
	UNION
	SELECT domain FROM crawl_runs
	ORDER BY domain
	`

	rows, err := cdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}
	defer rows.Close()

	domains := make([]string, 0)
	for rows.Next() {
		var domain string
		if err := rows.Scan(&domain); err != nil {
			return nil, fmt.Errorf("failed to scan domain: %w", err)
		}
		domains = append(domains, domain)
	}

	return domains, rows.Err()
}

// formatTimestamp stores times in UTC with nanosecond precision so that
// string ordering matches chronological ordering.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z")
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
