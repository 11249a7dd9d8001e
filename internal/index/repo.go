package index

import (
	"fmt"
	"time"
)

// RunRecord is the input for recording one completed validation run.
type RunRecord struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Files      int
	// Changed counts files whose checksum differs from the previous run.
	Changed int
	Valid   bool
	Issues  []IssueRow
}

// RunRow is one row in the runs table.
type RunRow struct {
	ID         int64     `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Files      int       `json:"files"`
	Changed    int       `json:"changed"`
	Valid      bool      `json:"valid"`
	Errors     int       `json:"errors"`
	Warnings   int       `json:"warnings"`
	Info       int       `json:"info"`
}

// IssueRow is one stored finding.
type IssueRow struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
}

// RecordRun stores a run and its findings within a transaction and returns
// the new run id.
func (db *DB) RecordRun(run RunRecord) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var errs, warns, infos int
	for _, i := range run.Issues {
		switch i.Severity {
		case "error":
			errs++
		case "warning":
			warns++
		default:
			infos++
		}
	}

	res, err := tx.Exec(`
		INSERT INTO runs (started_at, finished_at, files, changed, valid, errors, warnings, info)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.StartedAt, run.FinishedAt, run.Files, run.Changed, run.Valid, errs, warns, infos)
	if err != nil {
		return 0, fmt.Errorf("index: insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("index: run id: %w", err)
	}

	if len(run.Issues) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO issues (run_id, code, message, severity, file, line, col)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return 0, fmt.Errorf("index: prepare issue insert: %w", err)
		}
		defer stmt.Close()
		for _, i := range run.Issues {
			if _, err := stmt.Exec(runID, i.Code, i.Message, i.Severity, i.File, i.Line, i.Column); err != nil {
				return 0, fmt.Errorf("index: insert issue: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("index: commit: %w", err)
	}
	return runID, nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id, started_at, finished_at, files, changed, valid, errors, warnings, info
		FROM runs ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("index: list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var r RunRow
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Files, &r.Changed, &r.Valid, &r.Errors, &r.Warnings, &r.Info); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunIssues returns every stored finding for a run.
func (db *DB) RunIssues(runID int64) ([]IssueRow, error) {
	rows, err := db.conn.Query(`
		SELECT code, message, severity, file, line, col
		FROM issues WHERE run_id = ?
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("index: run issues: %w", err)
	}
	defer rows.Close()

	var out []IssueRow
	for rows.Next() {
		var i IssueRow
		if err := rows.Scan(&i.Code, &i.Message, &i.Severity, &i.File, &i.Line, &i.Column); err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

// UpsertFile stores the current checksum for a vault file.
func (db *DB) UpsertFile(path, checksum string) error {
	_, err := db.conn.Exec(`
		INSERT INTO files (path, checksum, mod_time)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(path) DO UPDATE SET
			checksum = excluded.checksum,
			mod_time = excluded.mod_time
	`, path, checksum)
	if err != nil {
		return fmt.Errorf("index: upsert file: %w", err)
	}
	return nil
}

// AllChecksums returns every stored path with its checksum.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM files`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
