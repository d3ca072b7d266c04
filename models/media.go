// Package models defines the data structures used throughout the application.
package models

import (
	"fmt"
	"strings"
)

// LibraryTier identifies which library instance a movie belongs to
type LibraryTier string

// Library tier constants
const (
	Tier4K    LibraryTier = "4k"
	Tier1080p LibraryTier = "1080p"
)

// AllTiers returns every known library tier in sweep order
func AllTiers() []LibraryTier {
	return []LibraryTier{Tier4K, Tier1080p}
}

// ParseLibraryTier converts a user supplied string into a LibraryTier
func ParseLibraryTier(s string) (LibraryTier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(Tier4K), "uhd", "2160p":
		return Tier4K, nil
	case string(Tier1080p), "hd", "streaming":
		return Tier1080p, nil
	}
	return "", fmt.Errorf("unknown library tier %q", s)
}

// Valid reports whether the tier is one of the known values
func (t LibraryTier) Valid() bool {
	return t == Tier4K || t == Tier1080p
}

// RequesterClass classifies who requested a movie
type RequesterClass string

// Requester class constants
const (
	RequesterAdmin RequesterClass = "admin"
	RequesterUser  RequesterClass = "user"
)

// RatingSource names an external ratings provider
type RatingSource string

// Rating source constants
const (
	SourceIMDB           RatingSource = "imdb"
	SourceRottenTomatoes RatingSource = "rotten_tomatoes"
	SourceTMDB           RatingSource = "tmdb"
	SourceMetacritic     RatingSource = "metacritic"
	SourceTrakt          RatingSource = "trakt"
)

// nativeScales holds the maximum raw score each source reports
var nativeScales = map[RatingSource]float64{
	SourceIMDB:           10,
	SourceRottenTomatoes: 100,
	SourceTMDB:           10,
	SourceMetacritic:     100,
	SourceTrakt:          10,
}

// NativeScale returns the top of the source's own scale, or false for unknown sources
func (s RatingSource) NativeScale() (float64, bool) {
	max, ok := nativeScales[s]
	return max, ok
}
