// Package persistence owns the durable state of the tracker: the task
// registry with its status state machine, work sessions and their
// breaks, and the append-only note timeline. Storage is a single
// SQLite file; every mutation is one statement or one transaction, so
// no record is ever left half-written.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path. The
// path always comes from configuration; there is no implicit default
// resolved from the working directory.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("open store: empty database path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite3: %w", err)
	}
	// Single-process, single-session model: one connection is the
	// concurrency contract, not just a tuning choice.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db}
	if err := store.configurePragmas(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) configurePragmas(ctx context.Context) error {
	pragma := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=FULL;",
	}
	for _, q := range pragma {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("set pragma %q: %w", q, err)
		}
	}
	return nil
}

// initSchema creates the four tables. Column names and the integer
// status codes are a durable on-disk contract and must never be
// renumbered or renamed.
func (s *Store) initSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS task (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			create_dt TEXT NOT NULL,
			status_code INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS work (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id INTEGER NOT NULL REFERENCES task(id),
			beg_dt TEXT NOT NULL,
			end_dt TEXT NOT NULL,
			duration_sec INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS break (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id INTEGER NOT NULL REFERENCES task(id),
			work_id INTEGER NOT NULL REFERENCES work(id),
			beg_dt TEXT NOT NULL,
			end_dt TEXT NOT NULL,
			duration_sec INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS note (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			task_id INTEGER NOT NULL REFERENCES task(id),
			opt_work_id INTEGER REFERENCES work(id),
			user_text TEXT NOT NULL,
			flow_text TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_work_task ON work(task_id);`,
		`CREATE INDEX IF NOT EXISTS idx_break_work ON break(work_id);`,
		`CREATE INDEX IF NOT EXISTS idx_note_task ON note(task_id, timestamp);`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
