package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/llmsgen/internal/model"
)

const (
	// DBFileName is the SQLite file created inside the database directory.
	DBFileName = "history.db"

	// storedTimeFormat has a fixed width so that text ordering in SQL
	// matches chronological ordering.
	storedTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"
)

// ErrNoSiteMap is returned when a run without a site map is saved.
var ErrNoSiteMap = errors.New("run has no site map to save")

// HistoryDB provides SQLite-based storage for generated site maps.
//
// Design decision: the history is write-only from the crawler's point of
// view. A crawl never reads it, so a corrupt or missing database can never
// change what is generated; it only feeds the history commands.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
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

// Open opens or creates a HistoryDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
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

	// mode=rw refuses to create a new file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}
	dsn += "&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (h *HistoryDB) createTables() error {
	schema := `
	-- One row per generated site map
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		origin TEXT NOT NULL,
		site_name TEXT NOT NULL,
		generated_at TEXT NOT NULL,
		page_count INTEGER NOT NULL,
		fingerprint TEXT NOT NULL,
		stop_reason TEXT,
		enhanced INTEGER NOT NULL DEFAULT 0,
		document TEXT NOT NULL,
		final_document TEXT NOT NULL,
		stats_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_origin ON runs(origin);
	CREATE INDEX IF NOT EXISTS idx_runs_generated_at ON runs(generated_at);

	-- Pages listed in a run, in document order
	CREATE TABLE IF NOT EXISTS run_pages (
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		title TEXT NOT NULL,
		section TEXT NOT NULL,
		description TEXT,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_run_pages_run ON run_pages(run_id);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord is the stored summary of one generated site map.
type RunRecord struct {
	ID          int64            `json:"id"`
	Origin      string           `json:"origin"`
	SiteName    string           `json:"site_name"`
	GeneratedAt time.Time        `json:"generated_at"`
	PageCount   int              `json:"page_count"`
	Fingerprint string           `json:"fingerprint"`
	StopReason  model.StopReason `json:"stop_reason,omitempty"`
	Enhanced    bool             `json:"enhanced"`
	Stats       model.CrawlStats `json:"stats"`

	// Document and FinalDocument are only filled by GetRun.
	Document      string `json:"document,omitempty"`
	FinalDocument string `json:"final_document,omitempty"`
}

// PageRecord is one page of a stored run.
type PageRecord struct {
	Position    int    `json:"position"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Section     string `json:"section"`
	Description string `json:"description,omitempty"`
}

// SaveRun stores run and its pages in one transaction and returns the new run ID.
func (h *HistoryDB) SaveRun(ctx context.Context, run *model.Run) (int64, error) {
	if run == nil || run.SiteMap == nil {
		return 0, ErrNoSiteMap
	}
	sm := run.SiteMap

	statsJSON, err := json.Marshal(run.Stats)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize stats: %w", err)
	}

	generatedAt := sm.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // Rollback after Commit is a no-op

	result, err := tx.ExecContext(ctx, `
	INSERT INTO runs (origin, site_name, generated_at, page_count, fingerprint, stop_reason, enhanced, document, final_document, stats_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sm.Origin,
		sm.Title,
		generatedAt.UTC().Format(storedTimeFormat),
		sm.PageCount(),
		sm.Fingerprint(),
		string(run.Stats.StopReason),
		run.IsEnhanced(),
		run.Document,
		run.FinalDocument(),
		string(statsJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO run_pages (run_id, position, url, title, section, description)
	VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare page insert: %w", err)
	}
	defer stmt.Close()

	position := 0
	for _, sec := range sm.Sections {
		for _, p := range sec.Pages {
			if _, err := stmt.ExecContext(ctx, runID, position, p.URL, p.Title, sec.Key, p.Description); err != nil {
				return 0, fmt.Errorf("failed to insert page %s: %w", p.URL, err)
			}
			position++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

const runColumns = `id, origin, site_name, generated_at, page_count, fingerprint, stop_reason, enhanced, stats_json`

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner, extra ...any) (*RunRecord, error) {
	var rec RunRecord
	var generatedAt string
	var stopReason, statsJSON sql.NullString

	dest := append([]any{
		&rec.ID,
		&rec.Origin,
		&rec.SiteName,
		&generatedAt,
		&rec.PageCount,
		&rec.Fingerprint,
		&stopReason,
		&rec.Enhanced,
		&statsJSON,
	}, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}

	rec.GeneratedAt = parseTimestamp(generatedAt)
	rec.StopReason = model.StopReason(stopReason.String)
	if statsJSON.Valid && statsJSON.String != "" {
		// Stats are informational; a malformed value leaves them zero.
		_ = json.Unmarshal([]byte(statsJSON.String), &rec.Stats) //nolint:errcheck
	}
	return &rec, nil
}

// GetRun retrieves a run including its documents.
// It returns nil without error when no run has the given ID.
func (h *HistoryDB) GetRun(ctx context.Context, id int64) (*RunRecord, error) {
	query := `SELECT ` + runColumns + `, document, final_document FROM runs WHERE id = ?`

	var document, finalDocument string
	rec, err := scanRun(h.db.QueryRowContext(ctx, query, id), &document, &finalDocument)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	rec.Document = document
	rec.FinalDocument = finalDocument
	return rec, nil
}

// ListRuns returns the runs of origin, newest first, without documents.
func (h *HistoryDB) ListRuns(ctx context.Context, origin string) ([]RunRecord, error) {
	return h.queryRuns(ctx, `SELECT `+runColumns+` FROM runs WHERE origin = ? ORDER BY generated_at DESC, id DESC`, origin)
}

// LatestRuns returns at most n runs of origin, newest first.
func (h *HistoryDB) LatestRuns(ctx context.Context, origin string, n int) ([]RunRecord, error) {
	return h.queryRuns(ctx, `SELECT `+runColumns+` FROM runs WHERE origin = ? ORDER BY generated_at DESC, id DESC LIMIT ?`, origin, n)
}

func (h *HistoryDB) queryRuns(ctx context.Context, query string, args ...any) ([]RunRecord, error) {
	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var results []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		results = append(results, *rec)
	}
	return results, rows.Err()
}

// OriginSummary describes the runs stored for one origin.
type OriginSummary struct {
	Origin    string    `json:"origin"`
	Runs      int       `json:"runs"`
	LatestRun time.Time `json:"latest_run"`
}

// ListOrigins returns every origin with stored runs, sorted by origin.
func (h *HistoryDB) ListOrigins(ctx context.Context) ([]OriginSummary, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT origin, COUNT(*), MAX(generated_at) FROM runs
	GROUP BY origin
	ORDER BY origin
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list origins: %w", err)
	}
	defer rows.Close()

	var origins []OriginSummary
	for rows.Next() {
		var s OriginSummary
		var latest string
		if err := rows.Scan(&s.Origin, &s.Runs, &latest); err != nil {
			return nil, fmt.Errorf("failed to scan origin: %w", err)
		}
		s.LatestRun = parseTimestamp(latest)
		origins = append(origins, s)
	}
	return origins, rows.Err()
}

// RunPages returns the pages of a run in document order.
func (h *HistoryDB) RunPages(ctx context.Context, runID int64) ([]PageRecord, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT position, url, title, section, description FROM run_pages
	WHERE run_id = ?
	ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	var pages []PageRecord
	for rows.Next() {
		var p PageRecord
		var desc sql.NullString
		if err := rows.Scan(&p.Position, &p.URL, &p.Title, &p.Section, &desc); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		p.Description = desc.String
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// DeleteRun removes a run and its pages.
func (h *HistoryDB) DeleteRun(ctx context.Context, id int64) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // Rollback after Commit is a no-op

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_pages WHERE run_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete pages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return tx.Commit()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	storedTimeFormat,      // written by SaveRun
	time.RFC3339Nano,      // RFC3339 with fractional seconds
	time.RFC3339,          // Full RFC3339 format
	"2006-01-02 15:04:05", // SQLite default datetime format
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
