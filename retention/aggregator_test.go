package retention

import (
	"errors"
	"testing"

	"moviesweep/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSignals() Signals {
	return Signals{
		MovieID: 603,
		ArrID:   12,
		IMDBID:  "tt0133093",
		Title:   "The Matrix",
		Request: RequestInfo{Email: "friend@example.com", RequestedAt: ptr(daysAgo(30))},
	}
}

func TestAggregate_ClassifiesRequester(t *testing.T) {
	admins := NewAdminSet("Owner@Example.com", " second@example.com ")

	in := testSignals()
	in.Request.Email = "owner@EXAMPLE.com"
	record, err := Aggregate(in, models.Tier4K, admins)
	require.NoError(t, err)
	assert.Equal(t, models.RequesterAdmin, record.RequesterClass)
	assert.Equal(t, models.Tier4K, record.Tier)

	in.Request.Email = "friend@example.com"
	record, err = Aggregate(in, models.Tier4K, admins)
	require.NoError(t, err)
	assert.Equal(t, models.RequesterUser, record.RequesterClass)
}

func TestAggregate_UnknownRequesterDefaultsToUser(t *testing.T) {
	in := testSignals()
	in.Request.Email = ""

	record, err := Aggregate(in, models.Tier1080p, NewAdminSet("owner@example.com"))
	require.NoError(t, err)
	assert.Equal(t, models.RequesterUser, record.RequesterClass)
}

func TestAggregate_KeepsAbsentSignalsAbsent(t *testing.T) {
	record, err := Aggregate(testSignals(), models.Tier1080p, NewAdminSet())
	require.NoError(t, err)

	assert.Nil(t, record.PlexRating)
	assert.Nil(t, record.LastWatched)
	assert.False(t, record.HasPlexRating())
	assert.Empty(t, record.ExternalRatings)
}

func TestAggregate_PreservesRealZeroRating(t *testing.T) {
	in := testSignals()
	in.PlexRating = ptr(0.0)
	in.Watch.LastWatched = ptr(daysAgo(2))

	record, err := Aggregate(in, models.Tier1080p, NewAdminSet())
	require.NoError(t, err)

	require.NotNil(t, record.PlexRating)
	assert.Equal(t, 0.0, *record.PlexRating)
	require.NotNil(t, record.LastWatched)
	assert.Equal(t, daysAgo(2), *record.LastWatched)

	*in.PlexRating = 9
	assert.Equal(t, 0.0, *record.PlexRating)
}

func TestAggregate_NormalizesExternalRatings(t *testing.T) {
	in := testSignals()
	in.ExternalRatings = []RawRating{
		{Source: models.SourceIMDB, Value: 8.7},
		{Source: models.SourceRottenTomatoes, Value: 88},
		{Source: models.SourceMetacritic, Value: 73},
		{Source: models.SourceTrakt, Value: 4.5, ScaleMax: 5},
	}

	record, err := Aggregate(in, models.Tier1080p, NewAdminSet())
	require.NoError(t, err)
	require.Len(t, record.ExternalRatings, 4)

	scores := map[models.RatingSource]float64{}
	for _, r := range record.ExternalRatings {
		scores[r.Source] = r.Score
	}
	assert.InDelta(t, 8.7, scores[models.SourceIMDB], 0.0001)
	assert.InDelta(t, 8.8, scores[models.SourceRottenTomatoes], 0.0001)
	assert.InDelta(t, 7.3, scores[models.SourceMetacritic], 0.0001)
	assert.InDelta(t, 9.0, scores[models.SourceTrakt], 0.0001)
}

func TestAggregate_DropsOutOfScaleRatings(t *testing.T) {
	in := testSignals()
	in.ExternalRatings = []RawRating{
		{Source: models.SourceIMDB, Value: 87},
		{Source: models.SourceTMDB, Value: 7.1},
		{Source: models.RatingSource("letterboxd"), Value: 4},
	}

	record, err := Aggregate(in, models.Tier1080p, NewAdminSet())
	require.NoError(t, err)

	assert.Len(t, record.ExternalRatings, 1)
	assert.Equal(t, models.SourceTMDB, record.ExternalRatings[0].Source)
	require.Len(t, record.RejectedRatings, 2)

	var scaleErr *models.InvalidRatingScaleError
	assert.True(t, errors.As(record.RejectedRatings[0], &scaleErr))
	assert.Equal(t, models.SourceIMDB, scaleErr.Source)
}

func TestAggregate_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Signals)
		field  string
	}{
		{"no movie id", func(s *Signals) { s.MovieID = 0 }, "movie id"},
		{"no request timestamp", func(s *Signals) { s.Request.RequestedAt = nil }, "request timestamp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := testSignals()
			tt.mutate(&in)

			_, err := Aggregate(in, models.Tier4K, NewAdminSet())

			var incomplete *models.IncompleteRecordError
			require.True(t, errors.As(err, &incomplete))
			assert.Equal(t, tt.field, incomplete.Field)
		})
	}
}

func TestAggregate_RejectsUnknownTier(t *testing.T) {
	_, err := Aggregate(testSignals(), models.LibraryTier("720p"), NewAdminSet())
	assert.Error(t, err)
}
