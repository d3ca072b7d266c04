package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"moviesweep/database"
	"moviesweep/models"
)

// SweepEventRepository handles sweep event data operations
type SweepEventRepository struct {
	db *database.DB
}

// NewSweepEventRepository creates a new sweep event repository
func NewSweepEventRepository(db *database.DB) *SweepEventRepository {
	return &SweepEventRepository{db: db}
}

// Create adds a new sweep event
func (r *SweepEventRepository) Create(event *models.SweepEvent, details interface{}) error {
	if details != nil {
		detailsBytes, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("failed to marshal event details: %w", err)
		}
		event.Details = string(detailsBytes)
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO sweep_events (run_id, movie_id, title, type, reason, message, details, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.Exec(query,
		event.RunID, event.MovieID, event.Title, string(event.Type),
		nullString(string(event.Reason)), event.Message, nullString(event.Details), event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create sweep event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	event.ID = int(id)
	return nil
}

func (r *SweepEventRepository) query(query string, args ...interface{}) ([]models.SweepEvent, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sweep events: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			slog.Warn("failed to close rows", "error", cerr)
		}
	}()

	events := []models.SweepEvent{}
	for rows.Next() {
		var event models.SweepEvent
		var reason, details sql.NullString

		err := rows.Scan(&event.ID, &event.RunID, &event.MovieID, &event.Title, &event.Type,
			&reason, &event.Message, &details, &event.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sweep event: %w", err)
		}

		if reason.Valid {
			event.Reason = models.ReasonCode(reason.String)
		}
		if details.Valid {
			event.Details = details.String
		}

		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sweep events: %w", err)
	}
	return events, nil
}

const sweepEventColumns = `id, run_id, movie_id, title, type, reason, message, details, created_at`

// GetByRunID returns all events for a run in the order they happened
func (r *SweepEventRepository) GetByRunID(runID string) ([]models.SweepEvent, error) {
	return r.query(`SELECT `+sweepEventColumns+` FROM sweep_events WHERE run_id = ? ORDER BY id ASC`, runID)
}

// ExpiringSoon returns the expiring_soon events of the latest completed run of each tier
func (r *SweepEventRepository) ExpiringSoon() ([]models.SweepEvent, error) {
	query := `
		SELECT ` + sweepEventColumns + `
		FROM sweep_events
		WHERE type = ? AND run_id IN (
			SELECT r.id FROM sweep_runs r
			WHERE r.status = ? AND r.started_at = (
				SELECT MAX(r2.started_at) FROM sweep_runs r2
				WHERE r2.tier = r.tier AND r2.status = ?
			)
		)
		ORDER BY id ASC
	`
	return r.query(query, models.EventExpiringSoon, models.SweepCompleted, models.SweepCompleted)
}

// CountByType tallies a run's events by type
func (r *SweepEventRepository) CountByType(runID string) (map[models.SweepEventType]int, error) {
	rows, err := r.db.Query(`SELECT type, COUNT(*) FROM sweep_events WHERE run_id = ? GROUP BY type`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to count sweep events: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			slog.Warn("failed to close rows", "error", cerr)
		}
	}()

	counts := map[models.SweepEventType]int{}
	for rows.Next() {
		var eventType models.SweepEventType
		var n int
		if err := rows.Scan(&eventType, &n); err != nil {
			return nil, fmt.Errorf("failed to scan event count: %w", err)
		}
		counts[eventType] = n
	}
	return counts, rows.Err()
}
