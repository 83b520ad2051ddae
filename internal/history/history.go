// Package history persists finished run reports in a local sqlite
// database so past runs can be inspected after the process exits.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"github.com/scenrun/scenrun/internal/report"
)

// ErrNotFound is returned when no run matches the requested ID.
var ErrNotFound = errors.New("history: run not found")

// Entry is one persisted run.
type Entry struct {
	RunID      string
	Scenario   string
	Outcome    report.Outcome
	StartedAt  time.Time
	FinishedAt time.Time
	Tasks      []report.TaskResult
}

// Store owns the history database. The data directory is guarded by a
// file lock so that concurrent runner processes do not interleave
// schema setup.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	scenario    TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	started_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP NOT NULL,
	tasks       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs (started_at DESC);
`

// Open creates or opens the history database under dataDir.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	lock := flock.New(filepath.Join(dataDir, "history.lock"))
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("lock data dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, "history.db"))
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}
	return &Store{db: db, lock: lock}, nil
}

// Close releases the database and the directory lock.
func (s *Store) Close() error {
	err := s.db.Close()
	if unlockErr := s.lock.Unlock(); err == nil {
		err = unlockErr
	}
	return err
}

// Save persists a finalized report.
func (s *Store) Save(ctx context.Context, rep *report.Report) error {
	tasks, err := json.Marshal(rep.Results())
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, scenario, outcome, started_at, finished_at, tasks)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rep.RunID(), rep.Scenario(), string(rep.Outcome()),
		rep.StartedAt().UTC(), rep.FinishedAt().UTC(), string(tasks))
	if err != nil {
		return fmt.Errorf("save run %s: %w", rep.RunID(), err)
	}
	return nil
}

// Get returns one run by ID.
func (s *Store) Get(ctx context.Context, runID string) (Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, scenario, outcome, started_at, finished_at, tasks
		 FROM runs WHERE run_id = ?`, runID)
	entry, err := scanEntry(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return entry, err
}

// Recent returns the latest runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, scenario, outcome, started_at, finished_at, tasks
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanEntry(scan func(dest ...any) error) (Entry, error) {
	var entry Entry
	var outcome, tasks string
	if err := scan(&entry.RunID, &entry.Scenario, &outcome,
		&entry.StartedAt, &entry.FinishedAt, &tasks); err != nil {
		return Entry{}, err
	}
	entry.Outcome = report.Outcome(outcome)
	if err := json.Unmarshal([]byte(tasks), &entry.Tasks); err != nil {
		return Entry{}, fmt.Errorf("decode tasks for run %s: %w", entry.RunID, err)
	}
	return entry, nil
}
