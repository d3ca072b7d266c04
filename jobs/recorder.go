package jobs

import (
	"moviesweep/models"
	"moviesweep/repository"
)

// EventRecorder persists the audit trail of a sweep
type EventRecorder interface {
	StartRun(run *models.SweepRun) error
	FinishRun(run *models.SweepRun) error
	RecordEvent(event *models.SweepEvent, details interface{}) error
}

// RepositoryRecorder writes runs and events to the SQLite audit tables
type RepositoryRecorder struct {
	runs   *repository.SweepRunRepository
	events *repository.SweepEventRepository
}

// NewRepositoryRecorder creates a recorder backed by the repositories
func NewRepositoryRecorder(runs *repository.SweepRunRepository, events *repository.SweepEventRepository) *RepositoryRecorder {
	return &RepositoryRecorder{runs: runs, events: events}
}

// StartRun inserts the run row
func (r *RepositoryRecorder) StartRun(run *models.SweepRun) error {
	return r.runs.Create(run)
}

// FinishRun stores the run's final counts
func (r *RepositoryRecorder) FinishRun(run *models.SweepRun) error {
	return r.runs.Finish(run)
}

// RecordEvent appends an event to the run
func (r *RepositoryRecorder) RecordEvent(event *models.SweepEvent, details interface{}) error {
	return r.events.Create(event, details)
}
