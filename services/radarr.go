package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"moviesweep/models"
)

// RadarrService handles interactions with one Radarr instance
type RadarrService struct {
	BaseURL string
	APIKey  string
	Tier    models.LibraryTier
	client  *http.Client
}

// RadarrMovie represents a movie response from the Radarr API
type RadarrMovie struct {
	ID      int           `json:"id"`
	Title   string        `json:"title"`
	Year    int           `json:"year"`
	TMDBID  int           `json:"tmdbId"`
	IMDBID  string        `json:"imdbId"`
	HasFile bool          `json:"hasFile"`
	Added   time.Time     `json:"added"`
	Ratings RadarrRatings `json:"ratings"`
}

// RadarrRatings holds the external ratings Radarr has cached for a movie
type RadarrRatings struct {
	IMDB           *RadarrRating `json:"imdb"`
	TMDB           *RadarrRating `json:"tmdb"`
	Metacritic     *RadarrRating `json:"metacritic"`
	RottenTomatoes *RadarrRating `json:"rottenTomatoes"`
	Trakt          *RadarrRating `json:"trakt"`
}

// RadarrRating is a single rating entry
type RadarrRating struct {
	Votes int     `json:"votes"`
	Value float64 `json:"value"`
	Type  string  `json:"type"`
}

// NewRadarrService creates a new Radarr service instance for a library tier
func NewRadarrService(baseURL, apiKey string, tier models.LibraryTier) *RadarrService {
	return &RadarrService{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Tier:    tier,
		client:  newHTTPClient(),
	}
}

func (r *RadarrService) name() string {
	return "radarr-" + string(r.Tier)
}

func (r *RadarrService) newRequest(ctx context.Context, method, path string, params url.Values) (*http.Request, error) {
	u := r.BaseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", r.name(), err)
	}
	req.Header.Set("X-Api-Key", r.APIKey)
	return req, nil
}

// Movies returns every movie in the instance that has a file on disk
func (r *RadarrService) Movies(ctx context.Context) ([]RadarrMovie, error) {
	req, err := r.newRequest(ctx, http.MethodGet, "/api/v3/movie", nil)
	if err != nil {
		return nil, err
	}

	var all []RadarrMovie
	if err := doJSON(r.client, r.name(), "list movies", req, &all); err != nil {
		return nil, err
	}

	movies := make([]RadarrMovie, 0, len(all))
	for _, m := range all {
		if m.HasFile {
			movies = append(movies, m)
		}
	}
	return movies, nil
}

// DeleteMovie removes a movie and its files from the instance
func (r *RadarrService) DeleteMovie(ctx context.Context, movieID int) error {
	params := url.Values{}
	params.Set("deleteFiles", "true")

	req, err := r.newRequest(ctx, http.MethodDelete, fmt.Sprintf("/api/v3/movie/%d", movieID), params)
	if err != nil {
		return err
	}

	resp, err := do(r.client, r.name(), "delete movie", req)
	if err != nil {
		return err
	}
	closeBody(r.name(), resp.Body)
	return nil
}

// Entries lists the ratings that carry a value, keyed by source.
// Zero-value, zero-vote placeholders are left out.
func (r RadarrRatings) Entries() map[models.RatingSource]float64 {
	entries := map[models.RatingSource]*RadarrRating{
		models.SourceIMDB:           r.IMDB,
		models.SourceRottenTomatoes: r.RottenTomatoes,
		models.SourceTMDB:           r.TMDB,
		models.SourceMetacritic:     r.Metacritic,
		models.SourceTrakt:          r.Trakt,
	}

	out := make(map[models.RatingSource]float64, len(entries))
	for source, rating := range entries {
		if rating == nil || (rating.Value == 0 && rating.Votes == 0) {
			continue
		}
		out[source] = rating.Value
	}
	return out
}
