package jobs

import (
	"context"
	"fmt"

	"moviesweep/models"
)

// Deleter removes a movie and its files from a tier's library
type Deleter interface {
	DeleteMovie(ctx context.Context, arrID int, tier models.LibraryTier) error
}

// RadarrDeleter routes deletions to the Radarr instance of the tier
type RadarrDeleter struct {
	managers map[models.LibraryTier]LibraryManager
}

// NewRadarrDeleter creates a deleter over one Radarr instance per tier
func NewRadarrDeleter(managers map[models.LibraryTier]LibraryManager) *RadarrDeleter {
	return &RadarrDeleter{managers: managers}
}

// DeleteMovie deletes the movie from the tier's Radarr, files included
func (d *RadarrDeleter) DeleteMovie(ctx context.Context, arrID int, tier models.LibraryTier) error {
	manager, ok := d.managers[tier]
	if !ok {
		return fmt.Errorf("no radarr instance configured for tier %s", tier)
	}
	return manager.DeleteMovie(ctx, arrID)
}
