// Package history persists a ledger of finished batch runs.
// The ledger is append-only and never consulted during execution.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// DefaultPath is where the ledger lives unless overridden by config.
func DefaultPath() string {
	return filepath.Join(".grayforge", "history.db")
}

// Run is one recorded batch execution.
type Run struct {
	ID         string
	StartedAt  time.Time
	Mode       string
	Workers    int
	Total      int
	Succeeded  int
	LoadFailed int
	SaveFailed int
	IOErrors   int
	Elapsed    time.Duration
	InputDir   string
	OutputDir  string
}

// Store manages run history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database, creating
// parent directories as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Record appends one finished run to the ledger and returns its id.
// A missing id is generated, a missing start time defaults to now.
func (s *Store) Record(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, mode, workers, total, succeeded,
			load_failed, save_failed, io_errors, elapsed_ms, input_dir, output_dir)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC().Format(time.RFC3339Nano), run.Mode, run.Workers,
		run.Total, run.Succeeded, run.LoadFailed, run.SaveFailed, run.IOErrors,
		run.Elapsed.Milliseconds(), run.InputDir, run.OutputDir,
	)
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	return run.ID, nil
}

// Recent returns up to limit runs, newest first. A non-positive
// limit falls back to 20.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, mode, workers, total, succeeded,
			load_failed, save_failed, io_errors, elapsed_ms, input_dir, output_dir
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run       Run
			startedAt string
			elapsedMS int64
		)
		if err := rows.Scan(&run.ID, &startedAt, &run.Mode, &run.Workers, &run.Total,
			&run.Succeeded, &run.LoadFailed, &run.SaveFailed, &run.IOErrors,
			&elapsedMS, &run.InputDir, &run.OutputDir); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parse started_at %q: %w", startedAt, err)
		}
		run.StartedAt = ts
		run.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Clear deletes all recorded runs and returns how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM runs")
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
