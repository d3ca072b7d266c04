// Package retention decides whether a movie stays in the library.
//
// Everything here is pure: callers pass already fetched signals and a
// ThresholdConfig, and get back a MovieRecord or a Verdict. No I/O happens
// in this package, so every function is safe to call from several goroutines
// with disjoint inputs.
package retention

import (
	"strings"
	"time"

	"moviesweep/models"
)

// AdminSet is a case-insensitive set of admin email addresses
type AdminSet map[string]struct{}

// NewAdminSet builds an AdminSet from a list of emails
func NewAdminSet(emails ...string) AdminSet {
	set := make(AdminSet, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			set[e] = struct{}{}
		}
	}
	return set
}

// Contains reports whether email belongs to an admin
func (s AdminSet) Contains(email string) bool {
	_, ok := s[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

// RawRating is an external score as reported by the ratings provider.
// ScaleMax of zero means the source's native scale.
type RawRating struct {
	Source   models.RatingSource
	Value    float64
	ScaleMax float64
}

// RequestInfo comes from the request tracker
type RequestInfo struct {
	Email       string
	RequestedAt *time.Time
}

// WatchInfo comes from the watch-history service
type WatchInfo struct {
	LastWatched *time.Time
}

// Signals is everything fetched about one movie before aggregation
type Signals struct {
	MovieID         int
	ArrID           int
	IMDBID          string
	Title           string
	Top250          bool
	AddedAt         *time.Time
	PlexRating      *float64
	ExternalRatings []RawRating
	Request         RequestInfo
	Watch           WatchInfo
}

// Aggregate merges raw signals into a MovieRecord.
// Invalid external ratings are dropped and listed in RejectedRatings.
func Aggregate(in Signals, tier models.LibraryTier, admins AdminSet) (models.MovieRecord, error) {
	if in.MovieID <= 0 {
		return models.MovieRecord{}, &models.IncompleteRecordError{Field: "movie id", Title: in.Title}
	}
	if in.Request.RequestedAt == nil || in.Request.RequestedAt.IsZero() {
		return models.MovieRecord{}, &models.IncompleteRecordError{Field: "request timestamp", Title: in.Title}
	}
	if !tier.Valid() {
		return models.MovieRecord{}, &models.IncompleteRecordError{Field: "library tier", Title: in.Title}
	}

	record := models.MovieRecord{
		ID:             in.MovieID,
		ArrID:          in.ArrID,
		IMDBID:         in.IMDBID,
		Title:          in.Title,
		Tier:           tier,
		RequestedBy:    in.Request.Email,
		RequesterClass: models.RequesterUser,
		RequestedAt:    *in.Request.RequestedAt,
		Top250:         in.Top250,
	}

	if admins.Contains(in.Request.Email) {
		record.RequesterClass = models.RequesterAdmin
	}

	// Copy optional values so the record never aliases caller memory
	if in.PlexRating != nil {
		rating := *in.PlexRating
		record.PlexRating = &rating
	}
	if in.Watch.LastWatched != nil {
		watched := *in.Watch.LastWatched
		record.LastWatched = &watched
	}
	if in.AddedAt != nil {
		added := *in.AddedAt
		record.AddedAt = &added
	}

	for _, raw := range in.ExternalRatings {
		rating, err := models.NewExternalRating(raw.Source, raw.Value, raw.ScaleMax)
		if err != nil {
			record.RejectedRatings = append(record.RejectedRatings, err)
			continue
		}
		record.ExternalRatings = append(record.ExternalRatings, rating)
	}

	return record, nil
}
