package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"moviesweep/models"
	"moviesweep/retention"
	"moviesweep/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRadarr struct {
	movies  []services.RadarrMovie
	err     error
	deleted []int
}

func (r *fakeRadarr) Movies(context.Context) ([]services.RadarrMovie, error) {
	return r.movies, r.err
}

func (r *fakeRadarr) DeleteMovie(_ context.Context, id int) error {
	if r.err != nil {
		return r.err
	}
	r.deleted = append(r.deleted, id)
	return nil
}

type fakePlex struct {
	items map[int]services.PlexItem
	err   error
	calls int
}

func (p *fakePlex) LibraryIndex(context.Context) (map[int]services.PlexItem, error) {
	p.calls++
	return p.items, p.err
}

type fakeHistory struct {
	watched map[string]*time.Time
	err     error
}

func (h *fakeHistory) LastWatched(_ context.Context, ratingKey string) (*time.Time, error) {
	return h.watched[ratingKey], h.err
}

type fakeTracker struct {
	requests []services.OverseerrRequest
	loginErr error
	logins   int
}

func (t *fakeTracker) Login(context.Context) error {
	t.logins++
	return t.loginErr
}

func (t *fakeTracker) Requests(context.Context) ([]services.OverseerrRequest, error) {
	return t.requests, nil
}

type fakeChart struct {
	top services.Top250
	err error
}

func (c *fakeChart) Top250(context.Context) (services.Top250, error) {
	return c.top, c.err
}

func overseerrRequest(tmdbID int, email string, createdAt time.Time) services.OverseerrRequest {
	var r services.OverseerrRequest
	r.Media.TMDBID = tmdbID
	r.RequestedBy.Email = email
	r.CreatedAt = createdAt
	return r
}

type sourceFixture struct {
	radarr  *fakeRadarr
	plex    *fakePlex
	history *fakeHistory
	tracker *fakeTracker
	chart   *fakeChart
	source  *LibrarySource
}

func newSourceFixture() *sourceFixture {
	requested := testNow.AddDate(0, 0, -30)
	plexAdded := testNow.AddDate(0, 0, -12)
	watched := testNow.AddDate(0, 0, -2)

	f := &sourceFixture{
		radarr: &fakeRadarr{movies: []services.RadarrMovie{
			{
				ID: 1, TMDBID: 603, IMDBID: "tt0133093", Title: "The Matrix", HasFile: true,
				Added: testNow.AddDate(0, 0, -60),
				Ratings: services.RadarrRatings{
					IMDB:           &services.RadarrRating{Value: 8.7, Votes: 2000000},
					RottenTomatoes: &services.RadarrRating{Value: 83, Votes: 150},
				},
			},
			{ID: 2, TMDBID: 550, Title: "Fight Club", HasFile: true, Added: testNow.AddDate(0, 0, -20)},
			{ID: 3, TMDBID: 999, Title: "Not In Plex", HasFile: true},
		}},
		plex: &fakePlex{items: map[int]services.PlexItem{
			603: {RatingKey: "101", Title: "The Matrix", UserRating: ptr(8.0)},
			550: {RatingKey: "102", Title: "Fight Club", AddedAt: &plexAdded},
		}},
		history: &fakeHistory{watched: map[string]*time.Time{"101": &watched}},
		tracker: &fakeTracker{requests: []services.OverseerrRequest{
			overseerrRequest(603, "Admin@Example.com", requested),
		}},
		chart: &fakeChart{top: services.NewTop250(map[string]string{"tt0133093": "The Matrix"})},
	}
	f.source = NewLibrarySource(
		map[models.LibraryTier]LibraryManager{models.Tier4K: f.radarr},
		f.plex, f.history, f.tracker, f.chart,
	)
	return f
}

func TestLibrarySource_Movies(t *testing.T) {
	f := newSourceFixture()

	refs, err := f.source.Movies(context.Background(), models.Tier4K)
	require.NoError(t, err)
	require.Len(t, refs, 3)

	assert.Equal(t, 1, refs[0].ArrID)
	assert.Equal(t, 603, refs[0].MovieID)
	assert.Equal(t, models.Tier4K, refs[0].Tier)
	assert.Equal(t, 8.7, refs[0].Ratings[models.SourceIMDB])
	assert.Equal(t, 1, f.plex.calls)
	assert.Equal(t, 1, f.tracker.logins)
}

func TestLibrarySource_UnknownTier(t *testing.T) {
	f := newSourceFixture()

	_, err := f.source.Movies(context.Background(), models.Tier1080p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no radarr instance configured")
}

func TestLibrarySource_SignalsForRequestedMovie(t *testing.T) {
	f := newSourceFixture()
	refs, err := f.source.Movies(context.Background(), models.Tier4K)
	require.NoError(t, err)

	signals, err := f.source.Signals(context.Background(), refs[0])
	require.NoError(t, err)

	assert.Equal(t, 603, signals.MovieID)
	assert.Equal(t, 1, signals.ArrID)
	assert.True(t, signals.Top250)
	require.NotNil(t, signals.PlexRating)
	assert.Equal(t, 8.0, *signals.PlexRating)
	assert.Equal(t, "Admin@Example.com", signals.Request.Email)
	require.NotNil(t, signals.Request.RequestedAt)
	assert.True(t, testNow.AddDate(0, 0, -30).Equal(*signals.Request.RequestedAt))
	require.NotNil(t, signals.Watch.LastWatched)

	assert.Equal(t, []retention.RawRating{
		{Source: models.SourceIMDB, Value: 8.7},
		{Source: models.SourceRottenTomatoes, Value: 83},
	}, signals.ExternalRatings)

	record, err := retention.Aggregate(signals, models.Tier4K, retention.NewAdminSet("admin@example.com"))
	require.NoError(t, err)
	assert.Equal(t, models.RequesterAdmin, record.RequesterClass)
}

func TestLibrarySource_UnrequestedMovieAgesFromPlexAdded(t *testing.T) {
	f := newSourceFixture()
	refs, err := f.source.Movies(context.Background(), models.Tier4K)
	require.NoError(t, err)

	signals, err := f.source.Signals(context.Background(), refs[1])
	require.NoError(t, err)

	assert.Empty(t, signals.Request.Email)
	require.NotNil(t, signals.Request.RequestedAt)
	assert.True(t, testNow.AddDate(0, 0, -12).Equal(*signals.Request.RequestedAt))
	assert.Nil(t, signals.PlexRating)
	assert.Nil(t, signals.Watch.LastWatched)
	assert.False(t, signals.Top250)
}

func TestLibrarySource_MovieMissingFromPlex(t *testing.T) {
	f := newSourceFixture()
	refs, err := f.source.Movies(context.Background(), models.Tier4K)
	require.NoError(t, err)

	_, err = f.source.Signals(context.Background(), refs[2])
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotInPlex))
	assert.False(t, models.IsAuthFailure(err))
}

func TestLibrarySource_WatchHistoryAuthFailure(t *testing.T) {
	f := newSourceFixture()
	f.history.err = &models.CollaboratorUnavailableError{Service: "tautulli", Op: "get history", StatusCode: 401, Auth: true}

	refs, err := f.source.Movies(context.Background(), models.Tier4K)
	require.NoError(t, err)

	_, err = f.source.Signals(context.Background(), refs[0])
	assert.True(t, models.IsAuthFailure(err))
}

func TestLibrarySource_ChartFailureIsNotFatal(t *testing.T) {
	f := newSourceFixture()
	f.chart.err = errors.New("chart unavailable")

	refs, err := f.source.Movies(context.Background(), models.Tier4K)
	require.NoError(t, err)

	signals, err := f.source.Signals(context.Background(), refs[0])
	require.NoError(t, err)
	assert.False(t, signals.Top250)
}

func TestLibrarySource_NoChartConfigured(t *testing.T) {
	f := newSourceFixture()
	source := NewLibrarySource(
		map[models.LibraryTier]LibraryManager{models.Tier4K: f.radarr},
		f.plex, f.history, f.tracker, nil,
	)

	refs, err := source.Movies(context.Background(), models.Tier4K)
	require.NoError(t, err)

	signals, err := source.Signals(context.Background(), refs[0])
	require.NoError(t, err)
	assert.False(t, signals.Top250)
}

func TestLibrarySource_LoginFailureFailsListing(t *testing.T) {
	f := newSourceFixture()
	f.tracker.loginErr = &models.CollaboratorUnavailableError{Service: "overseerr", Op: "login", StatusCode: 403, Auth: true}

	_, err := f.source.Movies(context.Background(), models.Tier4K)
	assert.True(t, models.IsAuthFailure(err))
}

func TestRadarrDeleter(t *testing.T) {
	radarr := &fakeRadarr{}
	deleter := NewRadarrDeleter(map[models.LibraryTier]LibraryManager{models.Tier1080p: radarr})

	require.NoError(t, deleter.DeleteMovie(context.Background(), 42, models.Tier1080p))
	assert.Equal(t, []int{42}, radarr.deleted)

	err := deleter.DeleteMovie(context.Background(), 42, models.Tier4K)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no radarr instance configured for tier 4k")
}
