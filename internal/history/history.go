// Package history keeps a ledger of generation runs in SQLite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get for unknown run ids.
var ErrNotFound = errors.New("run not found")

// Run is one recorded generation run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	Revision   string
	Roots      []RootResult
	// Report is the JSON run report.
	Report []byte
}

// RootResult is the per-root tally of a run.
type RootResult struct {
	Root      string
	Generated int
	Unchanged int
	Kept      int
	Errors    int
}

// Store is the SQLite ledger.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the ledger. Use ":memory:" for an in-memory database.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection would see its own empty database.
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		status TEXT NOT NULL,
		revision TEXT,
		report BLOB
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE TABLE IF NOT EXISTS root_results (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		root TEXT NOT NULL,
		generated INTEGER NOT NULL,
		unchanged INTEGER NOT NULL,
		kept INTEGER NOT NULL,
		errors INTEGER NOT NULL,
		PRIMARY KEY (run_id, position)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a run and its root results in one transaction.
func (s *Store) Record(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO runs (id, started_at, finished_at, status, revision, report) VALUES (?, ?, ?, ?, ?, ?)",
		run.ID, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(), run.Status, run.Revision, run.Report,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	for i, r := range run.Roots {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO root_results (run_id, position, root, generated, unchanged, kept, errors) VALUES (?, ?, ?, ?, ?, ?, ?)",
			run.ID, i, r.Root, r.Generated, r.Unchanged, r.Kept, r.Errors,
		)
		if err != nil {
			return fmt.Errorf("insert root result: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// List returns the most recent runs first, at most limit of them. The JSON
// report is not loaded.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, started_at, finished_at, status, revision FROM runs ORDER BY started_at DESC, id LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished int64
			revision          sql.NullString
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.Status, &revision); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(started)
		r.FinishedAt = time.UnixMilli(finished)
		r.Revision = revision.String
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	for i := range runs {
		roots, err := s.roots(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Roots = roots
	}
	return runs, nil
}

// Get returns one run including its JSON report.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		r                 Run
		started, finished int64
		revision          sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, started_at, finished_at, status, revision, report FROM runs WHERE id = ?", id,
	).Scan(&r.ID, &started, &finished, &r.Status, &revision, &r.Report)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("query run: %w", err)
	}
	r.StartedAt = time.UnixMilli(started)
	r.FinishedAt = time.UnixMilli(finished)
	r.Revision = revision.String

	roots, err := s.roots(ctx, id)
	if err != nil {
		return Run{}, err
	}
	r.Roots = roots
	return r, nil
}

func (s *Store) roots(ctx context.Context, runID string) ([]RootResult, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT root, generated, unchanged, kept, errors FROM root_results WHERE run_id = ? ORDER BY position",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query root results: %w", err)
	}
	defer rows.Close()

	var out []RootResult
	for rows.Next() {
		var r RootResult
		if err := rows.Scan(&r.Root, &r.Generated, &r.Unchanged, &r.Kept, &r.Errors); err != nil {
			return nil, fmt.Errorf("scan root result: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
