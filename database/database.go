// Package database provides database connectivity and schema management.
package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3" // Import sqlite3 driver
)

// DB wraps the SQL database connection
type DB struct {
	*sql.DB
}

// NewDB creates a new database connection
func NewDB(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists per connection
	if dataSourceName == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db}, nil
}

// InitSchema initializes the database schema
func (db *DB) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sweep_runs (
		id TEXT PRIMARY KEY,
		tier TEXT NOT NULL,
		dry_run BOOLEAN NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		kept INTEGER NOT NULL DEFAULT 0,
		deleted INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		expiring_soon INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_sweep_runs_tier ON sweep_runs(tier);
	CREATE INDEX IF NOT EXISTS idx_sweep_runs_started_at ON sweep_runs(started_at);

	CREATE TABLE IF NOT EXISTS sweep_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		movie_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		type TEXT NOT NULL,
		reason TEXT,
		message TEXT NOT NULL,
		details TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (run_id) REFERENCES sweep_runs (id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_sweep_events_run_id ON sweep_events(run_id);
	CREATE INDEX IF NOT EXISTS idx_sweep_events_movie_id ON sweep_events(movie_id);
	CREATE INDEX IF NOT EXISTS idx_sweep_events_type ON sweep_events(type);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	slog.Debug("database schema initialized")
	return nil
}
