// Package history keeps a journal of economode runs in SQLite so operators
// can see what was changed, when, and on which devices.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Run is one recorded fleet run.
type Run struct {
	ID        int64
	StartedAt time.Time
	Desired   string
	Results   []DeviceOutcome
}

// DeviceOutcome is one device's recorded result within a run.
type DeviceOutcome struct {
	Device  string
	Outcome string
	Detail  string
}

// Store is a SQLite-backed run journal.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at INTEGER NOT NULL,
	desired_state TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS device_results (
	run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	device TEXT NOT NULL,
	outcome TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_device_results_run ON device_results(run_id);
`

// Open opens (creating if needed) the journal at path. An empty path uses an
// in-memory database.
func Open(path string) (*Store, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// The journal is written by one process at a time; one connection keeps
	// SQLite's locking out of the picture.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// RecordRun stores one run and its per-device outcomes atomically.
func (s *Store) RecordRun(ctx context.Context, startedAt time.Time, desired string, results []DeviceOutcome) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (started_at, desired_state) VALUES (?, ?)`,
		startedAt.Unix(), desired)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	for i, r := range results {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO device_results (run_id, position, device, outcome, detail) VALUES (?, ?, ?, ?, ?)`,
			runID, i, r.Device, r.Outcome, r.Detail); err != nil {
			return 0, fmt.Errorf("failed to insert device result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// RecentRuns returns up to limit runs, newest first, with device outcomes in
// their original fleet order.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, desired_state FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var startedAt int64
		if err := rows.Scan(&run.ID, &startedAt, &run.Desired); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.StartedAt = time.Unix(startedAt, 0)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	for i := range runs {
		results, err := s.runResults(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Results = results
	}
	return runs, nil
}

func (s *Store) runResults(ctx context.Context, runID int64) ([]DeviceOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT device, outcome, detail FROM device_results WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query device results: %w", err)
	}
	defer rows.Close()

	var results []DeviceOutcome
	for rows.Next() {
		var r DeviceOutcome
		if err := rows.Scan(&r.Device, &r.Outcome, &r.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan device result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}
