package models

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExternalRating_Scales(t *testing.T) {
	tests := []struct {
		source RatingSource
		raw    float64
		max    float64
		want   float64
	}{
		{SourceIMDB, 7.4, 0, 7.4},
		{SourceRottenTomatoes, 91, 0, 9.1},
		{SourceMetacritic, 100, 0, 10},
		{SourceTrakt, 3, 5, 6},
		{SourceTMDB, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.source), func(t *testing.T) {
			rating, err := NewExternalRating(tt.source, tt.raw, tt.max)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, rating.Score, 0.0001)
			assert.Equal(t, tt.source, rating.Source)
		})
	}
}

func TestNewExternalRating_OutOfScale(t *testing.T) {
	_, err := NewExternalRating(SourceIMDB, 10.5, 0)
	var scaleErr *InvalidRatingScaleError
	require.True(t, errors.As(err, &scaleErr))
	assert.Equal(t, 10.0, scaleErr.Max)

	_, err = NewExternalRating(SourceRottenTomatoes, -1, 0)
	assert.Error(t, err)

	_, err = NewExternalRating(RatingSource("letterboxd"), 3, 0)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no known scale")
}

func TestThresholdConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())

	bad := DefaultThresholds()
	bad.UserWindowDays = -1
	bad.LowRatingFloor = 11
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user window")
	assert.Contains(t, err.Error(), "low rating floor")
}

func TestThresholdConfig_ClassLookups(t *testing.T) {
	th := DefaultThresholds()
	th.AdminRatingFloor = 3
	assert.Equal(t, 180, th.WindowFor(RequesterAdmin))
	assert.Equal(t, 90, th.WindowFor(RequesterUser))
	assert.Equal(t, 3.0, th.RatingFloorFor(RequesterAdmin))
	assert.Equal(t, 5.0, th.RatingFloorFor(RequesterUser))
}

func TestParseLibraryTier(t *testing.T) {
	tier, err := ParseLibraryTier("4K")
	require.NoError(t, err)
	assert.Equal(t, Tier4K, tier)

	tier, err = ParseLibraryTier(" 1080p ")
	require.NoError(t, err)
	assert.Equal(t, Tier1080p, tier)

	_, err = ParseLibraryTier("720p")
	assert.Error(t, err)
}

func TestIsAuthFailure(t *testing.T) {
	authErr := &CollaboratorUnavailableError{Service: "overseerr", Op: "login", StatusCode: 401, Auth: true}
	wrapped := fmt.Errorf("loading requests: %w", authErr)

	assert.True(t, IsAuthFailure(wrapped))
	assert.Contains(t, authErr.Error(), "authentication rejected")
	assert.False(t, IsAuthFailure(&CollaboratorUnavailableError{Service: "plex", Op: "library", StatusCode: 502}))
	assert.False(t, IsAuthFailure(errors.New("boom")))
}

func TestVerdict_ExpiresWithin(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	soon := now.Add(48 * time.Hour)

	v := Verdict{Outcome: OutcomeKeep, ExpiresAt: &soon}
	assert.True(t, v.ExpiresWithin(now, 72*time.Hour))
	assert.False(t, v.ExpiresWithin(now, 24*time.Hour))

	v.Outcome = OutcomeDelete
	assert.False(t, v.ExpiresWithin(now, 72*time.Hour))

	assert.False(t, Verdict{Outcome: OutcomeKeep}.ExpiresWithin(now, 72*time.Hour))
}
