package models

import "time"

// Outcome is the keep/delete result for one movie
type Outcome string

// Outcome constants
const (
	OutcomeKeep   Outcome = "keep"
	OutcomeDelete Outcome = "delete"
)

// ReasonCode explains which rule produced a verdict
type ReasonCode string

// Reason code constants
const (
	ReasonRatingProtected         ReasonCode = "rating_protected"
	ReasonTop250Protected         ReasonCode = "top250_protected"
	ReasonExternalRatingProtected ReasonCode = "external_rating_protected"
	ReasonWithinRetentionWindow   ReasonCode = "within_retention_window"
	ReasonExpiredLowRated         ReasonCode = "expired_low_rated"
	ReasonExpiredRequesterWindow  ReasonCode = "expired_requester_window"
)

// Verdict is the retention decision for one movie
type Verdict struct {
	MovieID    int         `json:"tmdb_id"`
	ArrID      int         `json:"arr_id"`
	Title      string      `json:"title"`
	Tier       LibraryTier `json:"tier"`
	Outcome    Outcome     `json:"outcome"`
	Reason     ReasonCode  `json:"reason"`
	AgeDays    int         `json:"age_days"`
	WindowDays int         `json:"window_days,omitempty"`
	ExpiresAt  *time.Time  `json:"expires_at,omitempty"` // nil when protected by rating
}

// ExpiresWithin reports whether a kept movie will expire in the next d
func (v Verdict) ExpiresWithin(now time.Time, d time.Duration) bool {
	if v.Outcome != OutcomeKeep || v.ExpiresAt == nil {
		return false
	}
	return !v.ExpiresAt.Before(now) && !v.ExpiresAt.After(now.Add(d))
}
