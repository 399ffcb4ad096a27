// Package store persists parsed training sessions in a single SQLite
// database file: sessions with their exercise groups and sets, plus an
// import log recording each ingestion run.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested session does not exist.
var ErrNotFound = errors.New("session not found")

// Store is the SQLite-backed persistence layer.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open creates or opens the database at dbPath. Pass ":memory:" for tests.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			import_id TEXT,
			date TEXT NOT NULL,
			title TEXT NOT NULL,
			type TEXT NOT NULL,
			location TEXT,
			rpe INTEGER,
			feeling TEXT,
			notes TEXT,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_date ON sessions(date)`,
		`CREATE TABLE IF NOT EXISTS session_groups (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			order_index INTEGER NOT NULL DEFAULT 0,
			notes TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_groups_session ON session_groups(session_id)`,
		`CREATE TABLE IF NOT EXISTS group_sets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			group_id INTEGER NOT NULL REFERENCES session_groups(id) ON DELETE CASCADE,
			exercise_name TEXT NOT NULL,
			category TEXT,
			sets INTEGER NOT NULL DEFAULT 1,
			reps INTEGER NOT NULL DEFAULT 1,
			weight_kg REAL,
			distance_m REAL,
			time_s REAL,
			recovery_s INTEGER,
			notes TEXT,
			details TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sets_group ON group_sets(group_id)`,
		`CREATE TABLE IF NOT EXISTS import_log (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			source TEXT NOT NULL,
			sessions_inserted INTEGER NOT NULL DEFAULT 0,
			personal_bests INTEGER NOT NULL DEFAULT 0,
			injuries INTEGER NOT NULL DEFAULT 0,
			error_message TEXT
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("initializing schema: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
