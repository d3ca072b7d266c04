package models

import "time"

// SweepStatus represents the lifecycle state of a sweep run
type SweepStatus string

// Sweep status constants
const (
	SweepRunning   SweepStatus = "running"
	SweepCompleted SweepStatus = "completed"
	SweepAborted   SweepStatus = "aborted"
)

// SweepRun is the persisted summary of one sweep over one library tier
type SweepRun struct {
	ID           string      `json:"id"`
	Tier         LibraryTier `json:"tier"`
	DryRun       bool        `json:"dry_run"`
	Status       SweepStatus `json:"status"`
	Kept         int         `json:"kept"`
	Deleted      int         `json:"deleted"`
	Skipped      int         `json:"skipped"`
	Failed       int         `json:"failed"`
	ExpiringSoon int         `json:"expiring_soon"`
	Error        string      `json:"error,omitempty"`
	StartedAt    time.Time   `json:"started_at"`
	FinishedAt   *time.Time  `json:"finished_at,omitempty"`
}

// SweepEventType represents the type of sweep event
type SweepEventType string

const (
	EventMovieSkipped    SweepEventType = "movie_skipped"
	EventRatingRejected  SweepEventType = "rating_rejected"
	EventDeletionPlanned SweepEventType = "deletion_planned"
	EventMovieDeleted    SweepEventType = "movie_deleted"
	EventDeletionFailed  SweepEventType = "deletion_failed"
	EventExpiringSoon    SweepEventType = "expiring_soon"
)

// SweepEvent is an audit entry written while a sweep processes a movie
type SweepEvent struct {
	ID        int            `json:"id"`
	RunID     string         `json:"run_id"`
	MovieID   int            `json:"tmdb_id"`
	Title     string         `json:"title"`
	Type      SweepEventType `json:"type"`
	Reason    ReasonCode     `json:"reason,omitempty"`
	Message   string         `json:"message"`
	Details   string         `json:"details,omitempty"` // JSON string for additional data
	CreatedAt time.Time      `json:"created_at"`
}

// RunDetailsResponse is a run together with its audit events
type RunDetailsResponse struct {
	Run    *SweepRun              `json:"run"`
	Events []SweepEvent           `json:"events"`
	Counts map[SweepEventType]int `json:"counts"`
}
