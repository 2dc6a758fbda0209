package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Actions recorded in the audit log.
const (
	ActionDelete = "DELETE"
	ActionDryRun = "DRY_RUN"
	ActionStale  = "STALE"
	ActionReject = "REJECT"
	ActionError  = "ERROR"
)

// DeletionDB manages the SQLite database holding the deletion audit log
type DeletionDB struct {
	db *sql.DB
}

// DeletionRecord is one per-path outcome of a delete batch
type DeletionRecord struct {
	ID            int64     `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	BatchID       string    `json:"batch_id"`
	Action        string    `json:"action"`
	Path          string    `json:"path"`
	ParentProject string    `json:"parent_project"`
	Size          int64     `json:"size"`
	ErrorMessage  string    `json:"error,omitempty"`
}

// NewDeletionDB opens (creating if needed) the database at dbPath and
// initializes the schema.
func NewDeletionDB(dbPath string) (*DeletionDB, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	// _loc=auto makes DATETIME columns scan back into time.Time.
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	// sql.Open is lazy; this forces the file to be created.
	if _, err = db.Exec("SELECT 1"); err != nil {
		return nil, fmt.Errorf("failed to initialize database (check permissions on %s): %w", dbPath, err)
	}
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	ddb := &DeletionDB{db: db}
	if err = ddb.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return ddb, nil
}

func (d *DeletionDB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS deletions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		batch_id TEXT NOT NULL,
		action TEXT NOT NULL,
		path TEXT NOT NULL,
		parent_project TEXT,
		size INTEGER NOT NULL,
		error_message TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_timestamp ON deletions(timestamp);
	CREATE INDEX IF NOT EXISTS idx_batch_id ON deletions(batch_id);
	CREATE INDEX IF NOT EXISTS idx_action ON deletions(action);
	CREATE INDEX IF NOT EXISTS idx_path ON deletions(path);
	CREATE INDEX IF NOT EXISTS idx_size ON deletions(size);

	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := d.db.Exec(schema)
	return err
}

// RecordDeletion inserts one outcome. A zero Timestamp is set to now.
func (d *DeletionDB) RecordDeletion(r DeletionRecord) error {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}

	query := `
	INSERT INTO deletions (
		timestamp, batch_id, action, path, parent_project, size, error_message
	) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	var errMsg sql.NullString
	if r.ErrorMessage != "" {
		errMsg = sql.NullString{String: r.ErrorMessage, Valid: true}
	}

	_, err := d.db.Exec(
		query,
		r.Timestamp.UTC(),
		r.BatchID,
		r.Action,
		r.Path,
		r.ParentProject,
		r.Size,
		errMsg,
	)
	return err
}

// Close closes the database connection
func (d *DeletionDB) Close() error {
	return d.db.Close()
}

// Vacuum optimizes the database (run periodically)
func (d *DeletionDB) Vacuum() error {
	_, err := d.db.Exec("VACUUM")
	return err
}

// DatabaseStats describes the audit log file itself
type DatabaseStats struct {
	TotalRecords  int64      `json:"total_records"`
	SizeBytes     int64      `json:"database_size_bytes"`
	OldestRecord  *time.Time `json:"oldest_record,omitempty"`
	NewestRecord  *time.Time `json:"newest_record,omitempty"`
	DistinctPaths int64      `json:"distinct_paths"`
}

// GetDatabaseStats returns database statistics
func (d *DeletionDB) GetDatabaseStats() (*DatabaseStats, error) {
	stats := &DatabaseStats{}

	err := d.db.QueryRow("SELECT COUNT(*), COUNT(DISTINCT path) FROM deletions").
		Scan(&stats.TotalRecords, &stats.DistinctPaths)
	if err != nil {
		return nil, err
	}

	var pageCount, pageSize int64
	if err := d.db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return nil, err
	}
	if err := d.db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return nil, err
	}
	stats.SizeBytes = pageCount * pageSize

	// Aggregates lose the column type, so the values come back as text.
	var oldest, newest sql.NullString
	err = d.db.QueryRow("SELECT MIN(timestamp), MAX(timestamp) FROM deletions").Scan(&oldest, &newest)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	stats.OldestRecord = parseTimestamp(oldest)
	stats.NewestRecord = parseTimestamp(newest)

	return stats, nil
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

func parseTimestamp(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s.String); err == nil {
			return &t
		}
	}
	return nil
}
