package models

import "time"

// ExternalRating is one score from one external source, normalized to 0-10
type ExternalRating struct {
	Source RatingSource `json:"source"`
	Score  float64      `json:"score"`
}

// NewExternalRating normalizes a raw score to the 0-10 scale.
// A scaleMax of zero or less selects the source's native scale.
func NewExternalRating(source RatingSource, raw, scaleMax float64) (ExternalRating, error) {
	if scaleMax <= 0 {
		native, ok := source.NativeScale()
		if !ok {
			return ExternalRating{}, &InvalidRatingScaleError{Source: source, Raw: raw}
		}
		scaleMax = native
	}

	if raw < 0 || raw > scaleMax {
		return ExternalRating{}, &InvalidRatingScaleError{Source: source, Raw: raw, Max: scaleMax}
	}

	return ExternalRating{Source: source, Score: raw / scaleMax * 10}, nil
}

// MovieRecord is the canonical per-movie fact sheet the retention engine works from.
// Optional signals are pointers: nil means the service had no value.
type MovieRecord struct {
	ID              int              `json:"tmdb_id"`
	ArrID           int              `json:"arr_id"`
	IMDBID          string           `json:"imdb_id,omitempty"`
	Title           string           `json:"title"`
	Tier            LibraryTier      `json:"tier"`
	PlexRating      *float64         `json:"plex_rating,omitempty"`
	ExternalRatings []ExternalRating `json:"external_ratings,omitempty"`
	RequestedBy     string           `json:"requested_by,omitempty"`
	RequesterClass  RequesterClass   `json:"requester_class"`
	RequestedAt     time.Time        `json:"requested_at"`
	LastWatched     *time.Time       `json:"last_watched,omitempty"`
	AddedAt         *time.Time       `json:"added_at,omitempty"`
	Top250          bool             `json:"top_250"`

	// RejectedRatings holds ratings dropped during aggregation
	RejectedRatings []error `json:"-"`
}

// HasPlexRating reports whether the user rated the movie in Plex
func (m MovieRecord) HasPlexRating() bool {
	return m.PlexRating != nil
}
