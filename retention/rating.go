package retention

import "moviesweep/models"

// ratingGuard is one rating-protection rule; the first guard that matches wins
type ratingGuard struct {
	reason  models.ReasonCode
	matches func(models.MovieRecord, models.ThresholdConfig) bool
}

var ratingGuards = []ratingGuard{
	{models.ReasonTop250Protected, inTop250},
	{models.ReasonRatingProtected, plexRatingAtFloor},
	{models.ReasonExternalRatingProtected, externalRatingAtFloor},
}

func inTop250(r models.MovieRecord, _ models.ThresholdConfig) bool {
	return r.Top250
}

// An absent Plex rating never satisfies the floor.
func plexRatingAtFloor(r models.MovieRecord, t models.ThresholdConfig) bool {
	return r.HasPlexRating() && *r.PlexRating >= t.RatingFloorFor(r.RequesterClass)
}

func externalRatingAtFloor(r models.MovieRecord, t models.ThresholdConfig) bool {
	for _, er := range r.ExternalRatings {
		if er.Score >= t.ExternalRatingFloor {
			return true
		}
	}
	return false
}

// EvaluateRating returns the reason a movie is protected by its ratings, if any
func EvaluateRating(record models.MovieRecord, thresholds models.ThresholdConfig) (models.ReasonCode, bool) {
	for _, g := range ratingGuards {
		if g.matches(record, thresholds) {
			return g.reason, true
		}
	}
	return "", false
}

// IsProtectedByRating reports whether ratings alone keep the movie
func IsProtectedByRating(record models.MovieRecord, thresholds models.ThresholdConfig) bool {
	_, ok := EvaluateRating(record, thresholds)
	return ok
}
