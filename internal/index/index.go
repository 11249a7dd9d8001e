// Package index provides SQLite-backed storage of validation run history
// and per-file checksums for change detection between runs.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	files       INTEGER NOT NULL DEFAULT 0,
	changed     INTEGER NOT NULL DEFAULT 0,
	valid       INTEGER NOT NULL DEFAULT 0,
	errors      INTEGER NOT NULL DEFAULT 0,
	warnings    INTEGER NOT NULL DEFAULT 0,
	info        INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS issues (
	run_id   INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	code     TEXT NOT NULL,
	message  TEXT NOT NULL,
	severity TEXT NOT NULL,
	file     TEXT NOT NULL DEFAULT '',
	line     INTEGER NOT NULL DEFAULT 0,
	col      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_issues_run ON issues(run_id);

CREATE TABLE IF NOT EXISTS files (
	path     TEXT PRIMARY KEY,
	checksum TEXT NOT NULL DEFAULT '',
	mod_time DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// RunStore is the interface consumers depend on instead of the concrete
// *DB type, to facilitate testing with mocks.
type RunStore interface {
	RecordRun(run RunRecord) (int64, error)
	ListRuns(limit int) ([]RunRow, error)
	RunIssues(runID int64) ([]IssueRow, error)
	UpsertFile(path, checksum string) error
	AllChecksums() (map[string]string, error)
	Close() error
}

var _ RunStore = (*DB)(nil)

// DB wraps a sql.DB with run-history operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
