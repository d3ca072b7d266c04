package retention

import (
	"time"

	"moviesweep/models"
)

// Decide produces the keep/delete verdict for one movie.
// It is deterministic: the same record, thresholds and now give the same Verdict.
func Decide(record models.MovieRecord, thresholds models.ThresholdConfig, now time.Time) models.Verdict {
	age := AgeDays(record, now)
	verdict := models.Verdict{
		MovieID: record.ID,
		ArrID:   record.ArrID,
		Title:   record.Title,
		Tier:    record.Tier,
		AgeDays: age,
	}

	if reason, ok := EvaluateRating(record, thresholds); ok {
		verdict.Outcome = models.OutcomeKeep
		verdict.Reason = reason
		return verdict
	}

	window := ApplicableWindowDays(record, thresholds)
	expires := record.RequestedAt.Add(time.Duration(window) * day)
	verdict.WindowDays = window
	verdict.ExpiresAt = &expires

	switch {
	case age < window:
		verdict.Outcome = models.OutcomeKeep
		verdict.Reason = models.ReasonWithinRetentionWindow
	case isLowRated(record, thresholds):
		verdict.Outcome = models.OutcomeDelete
		verdict.Reason = models.ReasonExpiredLowRated
	default:
		verdict.Outcome = models.OutcomeDelete
		verdict.Reason = models.ReasonExpiredRequesterWindow
	}

	return verdict
}
