package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ownsearch/ownsearch/internal/crawler"
	"github.com/ownsearch/ownsearch/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "ownsearch.db"

// ErrRunNotFound is returned when a crawl run ID is unknown.
var ErrRunNotFound = errors.New("crawl run not found")

// timestampLayout is how timestamps are written. It sorts lexically in
// chronological order, which the ORDER BY clauses below rely on.
const timestampLayout = "2006-01-02 15:04:05.000"

// CrawlDB provides SQLite-based storage for crawl history.
// It manages connection pooling and provides methods for CRUD operations.
//
// Design decision: We use a single database file for every run instead of
// one file per seed. This keeps "what changed since the last crawl" a single
// query and simplifies backup/restore operations.
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

// Open opens or creates a CrawlDB in the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (run a crawl first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer. Crawl workers insert pages
	// concurrently, so they queue on this single connection.
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

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- Runs store one row per crawl invocation
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed_url TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		pages_fetched INTEGER DEFAULT 0,
		pages_failed INTEGER DEFAULT 0,
		urls_seen INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Pages store every record a run published
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		url TEXT NOT NULL,
		title TEXT,
		content_hash TEXT,
		body_length INTEGER DEFAULT 0,
		fetched_at TEXT NOT NULL,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);
	CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);

	-- Skips store every URL whose fetch failed
	CREATE TABLE IF NOT EXISTS skips (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		url TEXT NOT NULL,
		reason TEXT NOT NULL,
		skipped_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_skips_run ON skips(run_id);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// Run is one crawl invocation.
type Run struct {
	ID           uuid.UUID `json:"id"`
	SeedURL      string    `json:"seed_url"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at,omitzero"`
	PagesFetched int       `json:"pages_fetched"`
	PagesFailed  int       `json:"pages_failed"`
	URLsSeen     int       `json:"urls_seen"`
}

// Finished reports whether FinishRun was called for the run.
// Runs interrupted by a crash stay unfinished.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Duration returns how long the run took, or zero when it never finished.
func (r Run) Duration() time.Duration {
	if !r.Finished() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// PageStatus compares a page with its previous crawl.
type PageStatus string

const (
	// PageNew means no earlier run fetched the URL.
	PageNew PageStatus = "new"
	// PageChanged means the body text differs from the previous crawl.
	PageChanged PageStatus = "changed"
	// PageUnchanged means the body text hash matches the previous crawl.
	PageUnchanged PageStatus = "unchanged"
)

// PageEntry is a stored page record.
type PageEntry struct {
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	ContentHash string     `json:"content_hash"`
	BodyLength  int        `json:"body_length"`
	FetchedAt   time.Time  `json:"fetched_at"`
	Status      PageStatus `json:"status"`
}

// SkipEntry is a URL whose fetch failed during a run.
type SkipEntry struct {
	URL       string    `json:"url"`
	Reason    string    `json:"reason"`
	SkippedAt time.Time `json:"skipped_at"`
}

// StartRun records the beginning of a crawl and returns its ID.
func (cdb *CrawlDB) StartRun(ctx context.Context, seedURL string) (uuid.UUID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to generate run id: %w", err)
	}

	query := `
	INSERT INTO runs (id, seed_url, started_at)
	VALUES (?, ?, ?)
	`

	if _, err := cdb.db.ExecContext(ctx, query, id.String(), seedURL, formatTimestamp(time.Now())); err != nil {
		return uuid.Nil, fmt.Errorf("failed to start run: %w", err)
	}

	return id, nil
}

// FinishRun stores the final counters of a crawl.
func (cdb *CrawlDB) FinishRun(ctx context.Context, id uuid.UUID, stats crawler.Stats) error {
	query := `
	UPDATE runs
	SET finished_at = ?, pages_fetched = ?, pages_failed = ?, urls_seen = ?
	WHERE id = ?
	`

	result, err := cdb.db.ExecContext(ctx, query,
		formatTimestamp(time.Now()),
		stats.PagesFetched,
		stats.PagesFailed,
		stats.URLsSeen,
		id.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	return nil
}

// InsertPage stores a published record for a run.
// Uses UPSERT so a URL appears once per run.
func (cdb *CrawlDB) InsertPage(ctx context.Context, runID uuid.UUID, record model.CrawlRecord) error {
	query := `
	INSERT INTO pages (run_id, url, title, content_hash, body_length, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, url) DO UPDATE SET
		title = excluded.title,
		content_hash = excluded.content_hash,
		body_length = excluded.body_length,
		fetched_at = excluded.fetched_at
	`

	_, err := cdb.db.ExecContext(ctx, query,
		runID.String(),
		record.URL,
		record.Title,
		record.ContentHash(),
		len(record.BodyText),
		formatTimestamp(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to insert page: %w", err)
	}

	return nil
}

// InsertSkip stores a URL that a run could not fetch.
func (cdb *CrawlDB) InsertSkip(ctx context.Context, runID uuid.UUID, pageURL, reason string) error {
	query := `
	INSERT INTO skips (run_id, url, reason, skipped_at)
	VALUES (?, ?, ?, ?)
	`

	if _, err := cdb.db.ExecContext(ctx, query, runID.String(), pageURL, reason, formatTimestamp(time.Now())); err != nil {
		return fmt.Errorf("failed to insert skip: %w", err)
	}

	return nil
}

// runColumns is shared by ListRuns and GetRun so scanRun sees one layout.
const runColumns = `id, seed_url, started_at, finished_at, pages_fetched, pages_failed, urls_seen`

// ListRuns returns crawl runs, newest first. A non-positive limit returns all.
func (cdb *CrawlDB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id DESC`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// GetRun retrieves one crawl run. It returns ErrRunNotFound for unknown IDs.
func (cdb *CrawlDB) GetRun(ctx context.Context, id uuid.UUID) (Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`

	run, err := scanRun(cdb.db.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}

	return run, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run        Run
		id         string
		startedAt  string
		finishedAt sql.NullString
	)

	err := row.Scan(
		&id,
		&run.SeedURL,
		&startedAt,
		&finishedAt,
		&run.PagesFetched,
		&run.PagesFailed,
		&run.URLsSeen,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("failed to scan run: %w", err)
	}

	run.ID, err = uuid.Parse(id)
	if err != nil {
		return Run{}, fmt.Errorf("failed to parse run id %q: %w", id, err)
	}
	run.StartedAt = parseTimestamp(startedAt)
	if finishedAt.Valid {
		run.FinishedAt = parseTimestamp(finishedAt.String)
	}

	return run, nil
}

// ListPages returns the pages of a run ordered by URL. Each entry's Status
// compares its content hash with the most recent earlier crawl of the same URL.
// Run IDs are UUIDv7, so their text form sorts by creation time.
func (cdb *CrawlDB) ListPages(ctx context.Context, runID uuid.UUID) ([]PageEntry, error) {
	query := `
	SELECT p.url, p.title, p.content_hash, p.body_length, p.fetched_at,
		(SELECT q.content_hash FROM pages q
		 WHERE q.url = p.url AND q.run_id < p.run_id
		 ORDER BY q.run_id DESC LIMIT 1)
	FROM pages p
	WHERE p.run_id = ?
	ORDER BY p.url
	`

	rows, err := cdb.db.QueryContext(ctx, query, runID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	pages := make([]PageEntry, 0)
	for rows.Next() {
		var (
			page      PageEntry
			title     sql.NullString
			hash      sql.NullString
			fetchedAt string
			previous  sql.NullString
		)

		if err := rows.Scan(&page.URL, &title, &hash, &page.BodyLength, &fetchedAt, &previous); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}

		page.Title = title.String
		page.ContentHash = hash.String
		page.FetchedAt = parseTimestamp(fetchedAt)
		switch {
		case !previous.Valid:
			page.Status = PageNew
		case previous.String == page.ContentHash:
			page.Status = PageUnchanged
		default:
			page.Status = PageChanged
		}

		pages = append(pages, page)
	}

	return pages, rows.Err()
}

// ListSkips returns the failed URLs of a run in the order they were recorded.
func (cdb *CrawlDB) ListSkips(ctx context.Context, runID uuid.UUID) ([]SkipEntry, error) {
	query := `
	SELECT url, reason, skipped_at FROM skips
	WHERE run_id = ?
	ORDER BY id
	`

	rows, err := cdb.db.QueryContext(ctx, query, runID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list skips: %w", err)
	}
	defer rows.Close()

	skips := make([]SkipEntry, 0)
	for rows.Next() {
		var (
			skip      SkipEntry
			skippedAt string
		)
		if err := rows.Scan(&skip.URL, &skip.Reason, &skippedAt); err != nil {
			return nil, fmt.Errorf("failed to scan skip: %w", err)
		}
		skip.SkippedAt = parseTimestamp(skippedAt)
		skips = append(skips, skip)
	}

	return skips, rows.Err()
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,
	"2006-01-02 15:04:05",  // SQLite default datetime format
	"2006-01-02T15:04:05Z", // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",  // ISO 8601 without timezone
	time.RFC3339,
	time.RFC3339Nano,
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// Rows written by older versions or by hand may use any of them.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
