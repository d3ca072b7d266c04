// Package repository provides data access layer for the sweep audit trail.
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"moviesweep/database"
	"moviesweep/models"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

// SweepRunRepository handles database operations for sweep runs
type SweepRunRepository struct {
	db *database.DB
}

// NewSweepRunRepository creates a new sweep run repository
func NewSweepRunRepository(db *database.DB) *SweepRunRepository {
	return &SweepRunRepository{db: db}
}

const sweepRunColumns = `id, tier, dry_run, status, kept, deleted, skipped, failed,
	expiring_soon, error, started_at, finished_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSweepRun(row rowScanner) (*models.SweepRun, error) {
	var run models.SweepRun
	var errMsg sql.NullString
	var finishedAt sql.NullTime

	err := row.Scan(
		&run.ID, &run.Tier, &run.DryRun, &run.Status,
		&run.Kept, &run.Deleted, &run.Skipped, &run.Failed,
		&run.ExpiringSoon, &errMsg, &run.StartedAt, &finishedAt,
	)
	if err != nil {
		return nil, err
	}

	if errMsg.Valid {
		run.Error = errMsg.String
	}
	if finishedAt.Valid {
		finished := finishedAt.Time
		run.FinishedAt = &finished
	}
	return &run, nil
}

// Create inserts a new run in the running state
func (r *SweepRunRepository) Create(run *models.SweepRun) error {
	if run.ID == "" {
		return fmt.Errorf("sweep run id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = models.SweepRunning
	}

	query := `INSERT INTO sweep_runs (id, tier, dry_run, status, started_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := r.db.Exec(query, run.ID, string(run.Tier), run.DryRun, string(run.Status), run.StartedAt); err != nil {
		return fmt.Errorf("failed to create sweep run: %w", err)
	}
	return nil
}

// Finish stores the final counts and status of a run
func (r *SweepRunRepository) Finish(run *models.SweepRun) error {
	if run.FinishedAt == nil {
		now := time.Now().UTC()
		run.FinishedAt = &now
	}

	query := `
		UPDATE sweep_runs
		SET status = ?, kept = ?, deleted = ?, skipped = ?, failed = ?,
			expiring_soon = ?, error = ?, finished_at = ?
		WHERE id = ?
	`
	result, err := r.db.Exec(query,
		string(run.Status), run.Kept, run.Deleted, run.Skipped, run.Failed,
		run.ExpiringSoon, nullString(run.Error), *run.FinishedAt, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish sweep run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("sweep run %s: %w", run.ID, ErrNotFound)
	}
	return nil
}

// GetByID retrieves a run by its ID
func (r *SweepRunRepository) GetByID(id string) (*models.SweepRun, error) {
	row := r.db.QueryRow(`SELECT `+sweepRunColumns+` FROM sweep_runs WHERE id = ?`, id)

	run, err := scanSweepRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sweep run %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get sweep run: %w", err)
	}
	return run, nil
}

// List returns the most recent runs, newest first
func (r *SweepRunRepository) List(limit int) ([]models.SweepRun, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(`SELECT `+sweepRunColumns+` FROM sweep_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sweep runs: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("failed to close rows", "error", err)
		}
	}()

	runs := []models.SweepRun{}
	for rows.Next() {
		run, err := scanSweepRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sweep run: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}
	return runs, nil
}

// DeleteOlderThan removes runs (and their events) started before the cutoff
func (r *SweepRunRepository) DeleteOlderThan(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	if _, err := r.db.Exec(`DELETE FROM sweep_events WHERE run_id IN (SELECT id FROM sweep_runs WHERE started_at < ?)`, cutoff); err != nil {
		return 0, fmt.Errorf("failed to delete old sweep events: %w", err)
	}

	result, err := r.db.Exec(`DELETE FROM sweep_runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old sweep runs: %w", err)
	}
	return result.RowsAffected()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
