// Package jobs runs retention sweeps against the media stack.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"moviesweep/models"
	"moviesweep/retention"
	"moviesweep/services"
)

// ErrNotInPlex is returned for movies the library manager has on disk but Plex does not index
var ErrNotInPlex = errors.New("movie not found in plex library")

// MovieRef identifies one movie held by a tier's library manager
type MovieRef struct {
	ArrID   int
	MovieID int
	IMDBID  string
	Title   string
	Tier    models.LibraryTier
	AddedAt time.Time
	Ratings map[models.RatingSource]float64
}

// MovieSource lists the movies of a tier and fetches their signals
type MovieSource interface {
	Movies(ctx context.Context, tier models.LibraryTier) ([]MovieRef, error)
	Signals(ctx context.Context, ref MovieRef) (retention.Signals, error)
}

// LibraryManager is a Radarr instance
type LibraryManager interface {
	Movies(ctx context.Context) ([]services.RadarrMovie, error)
	DeleteMovie(ctx context.Context, movieID int) error
}

// PlexLibrary indexes the Plex movie section by TMDB id
type PlexLibrary interface {
	LibraryIndex(ctx context.Context) (map[int]services.PlexItem, error)
}

// WatchHistory answers when a Plex item was last played
type WatchHistory interface {
	LastWatched(ctx context.Context, ratingKey string) (*time.Time, error)
}

// RequestTracker lists who asked for which movie
type RequestTracker interface {
	Login(ctx context.Context) error
	Requests(ctx context.Context) ([]services.OverseerrRequest, error)
}

// ChartSource provides the IMDB Top 250
type ChartSource interface {
	Top250(ctx context.Context) (services.Top250, error)
}

// LibrarySource builds movie signals from Radarr, Plex, Tautulli, Overseerr and IMDB.
// The Plex index, the request list and the chart are loaded once per call to Movies.
type LibrarySource struct {
	managers map[models.LibraryTier]LibraryManager
	plex     PlexLibrary
	history  WatchHistory
	tracker  RequestTracker
	chart    ChartSource // nil disables the Top 250 check

	mu        sync.RWMutex
	index     map[int]services.PlexItem
	requested map[int]services.OverseerrRequest
	top250    services.Top250
}

// NewLibrarySource creates a source over the given collaborators
func NewLibrarySource(managers map[models.LibraryTier]LibraryManager, plex PlexLibrary, history WatchHistory, tracker RequestTracker, chart ChartSource) *LibrarySource {
	return &LibrarySource{
		managers: managers,
		plex:     plex,
		history:  history,
		tracker:  tracker,
		chart:    chart,
	}
}

// Movies lists the tier's movies that have a file on disk and refreshes the
// shared Plex, request and chart snapshots used by Signals
func (s *LibrarySource) Movies(ctx context.Context, tier models.LibraryTier) ([]MovieRef, error) {
	manager, ok := s.managers[tier]
	if !ok {
		return nil, fmt.Errorf("no radarr instance configured for tier %s", tier)
	}

	if err := s.refresh(ctx); err != nil {
		return nil, err
	}

	movies, err := manager.Movies(ctx)
	if err != nil {
		return nil, err
	}

	refs := make([]MovieRef, 0, len(movies))
	for _, m := range movies {
		refs = append(refs, MovieRef{
			ArrID:   m.ID,
			MovieID: m.TMDBID,
			IMDBID:  m.IMDBID,
			Title:   m.Title,
			Tier:    tier,
			AddedAt: m.Added,
			Ratings: m.Ratings.Entries(),
		})
	}
	return refs, nil
}

func (s *LibrarySource) refresh(ctx context.Context) error {
	index, err := s.plex.LibraryIndex(ctx)
	if err != nil {
		return err
	}

	if err := s.tracker.Login(ctx); err != nil {
		return err
	}
	reqs, err := s.tracker.Requests(ctx)
	if err != nil {
		return err
	}

	top := services.NewTop250(nil)
	if s.chart != nil {
		chart, err := s.chart.Top250(ctx)
		if err != nil {
			// an unreachable chart only loses the Top 250 protection
			slog.Warn("failed to load imdb top 250, continuing without it", "error", err)
		} else {
			top = chart
		}
	}

	s.mu.Lock()
	s.index = index
	s.requested = services.RequestsByTMDBID(reqs)
	s.top250 = top
	s.mu.Unlock()

	slog.Debug("library snapshot loaded",
		"plex_items", len(index),
		"requests", len(reqs),
		"top250", top.Len(),
	)
	return nil
}

// Signals gathers everything known about one movie
func (s *LibrarySource) Signals(ctx context.Context, ref MovieRef) (retention.Signals, error) {
	s.mu.RLock()
	item, inPlex := s.index[ref.MovieID]
	request, requested := s.requested[ref.MovieID]
	top250 := s.top250.Contains(ref.IMDBID, ref.Title)
	s.mu.RUnlock()

	if !inPlex {
		return retention.Signals{}, fmt.Errorf("%s (tmdb %d): %w", ref.Title, ref.MovieID, ErrNotInPlex)
	}

	lastWatched, err := s.history.LastWatched(ctx, item.RatingKey)
	if err != nil {
		return retention.Signals{}, err
	}

	signals := retention.Signals{
		MovieID:         ref.MovieID,
		ArrID:           ref.ArrID,
		IMDBID:          ref.IMDBID,
		Title:           ref.Title,
		Top250:          top250,
		AddedAt:         item.AddedAt,
		PlexRating:      item.UserRating,
		ExternalRatings: rawRatings(ref.Ratings),
		Watch:           retention.WatchInfo{LastWatched: lastWatched},
	}

	switch {
	case requested:
		requestedAt := request.CreatedAt
		signals.Request = retention.RequestInfo{Email: request.RequestedBy.Email, RequestedAt: &requestedAt}
	case item.AddedAt != nil:
		// movies added outside the request tracker age from when Plex picked them up
		signals.Request = retention.RequestInfo{RequestedAt: item.AddedAt}
	case !ref.AddedAt.IsZero():
		addedAt := ref.AddedAt
		signals.Request = retention.RequestInfo{RequestedAt: &addedAt}
	}

	return signals, nil
}

// rawRatings orders ratings by source so records are built deterministically
func rawRatings(entries map[models.RatingSource]float64) []retention.RawRating {
	out := make([]retention.RawRating, 0, len(entries))
	for source, value := range entries {
		out = append(out, retention.RawRating{Source: source, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}
