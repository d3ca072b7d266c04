package retention

import (
	"time"

	"moviesweep/models"
)

const day = 24 * time.Hour

// isLowRated reports a present Plex rating strictly below the low-rating floor
func isLowRated(r models.MovieRecord, t models.ThresholdConfig) bool {
	return r.HasPlexRating() && *r.PlexRating < t.LowRatingFloor
}

// ApplicableWindowDays picks the retention window for a movie.
// A low Plex rating overrides requester-class leniency.
func ApplicableWindowDays(record models.MovieRecord, thresholds models.ThresholdConfig) int {
	if isLowRated(record, thresholds) {
		return thresholds.LowRatedWindowDays
	}
	return thresholds.WindowFor(record.RequesterClass)
}

// AgeDays is the number of whole days since the movie was requested.
// Watch activity does not reset the clock. Requests dated in the future count as zero.
func AgeDays(record models.MovieRecord, now time.Time) int {
	elapsed := now.Sub(record.RequestedAt)
	if elapsed <= 0 {
		return 0
	}
	return int(elapsed / day)
}
