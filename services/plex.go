package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// PlexService handles interactions with a Plex Media Server
type PlexService struct {
	BaseURL string
	Token   string
	Library string
	client  *http.Client
}

// PlexItem is what the sweep needs to know about one movie in Plex
type PlexItem struct {
	RatingKey  string
	Title      string
	UserRating *float64
	AddedAt    *time.Time
}

type plexSectionsResponse struct {
	MediaContainer struct {
		Directory []struct {
			Key   string `json:"key"`
			Title string `json:"title"`
			Type  string `json:"type"`
		} `json:"Directory"`
	} `json:"MediaContainer"`
}

type plexMetadataResponse struct {
	MediaContainer struct {
		Metadata []plexMetadata `json:"Metadata"`
	} `json:"MediaContainer"`
}

type plexMetadata struct {
	RatingKey  string   `json:"ratingKey"`
	Title      string   `json:"title"`
	UserRating *float64 `json:"userRating"`
	AddedAt    int64    `json:"addedAt"`
	Guid       []struct {
		ID string `json:"id"`
	} `json:"Guid"`
}

// NewPlexService creates a new Plex service instance
func NewPlexService(baseURL, token, library string) *PlexService {
	if library == "" {
		library = "Movies"
	}
	return &PlexService{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Library: library,
		client:  newHTTPClient(),
	}
}

func (p *PlexService) get(ctx context.Context, op, path string, params url.Values, out interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("X-Plex-Token", p.Token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create plex request: %w", err)
	}
	return doJSON(p.client, "plex", op, req, out)
}

func (p *PlexService) sectionKey(ctx context.Context) (string, error) {
	var sections plexSectionsResponse
	if err := p.get(ctx, "list sections", "/library/sections", nil, &sections); err != nil {
		return "", err
	}

	for _, dir := range sections.MediaContainer.Directory {
		if strings.EqualFold(dir.Title, p.Library) {
			return dir.Key, nil
		}
	}
	return "", fmt.Errorf("plex library section %q not found", p.Library)
}

// LibraryIndex loads the movie section and indexes it by TMDB id
func (p *PlexService) LibraryIndex(ctx context.Context) (map[int]PlexItem, error) {
	key, err := p.sectionKey(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("includeGuids", "1")

	var resp plexMetadataResponse
	if err := p.get(ctx, "list movies", "/library/sections/"+key+"/all", params, &resp); err != nil {
		return nil, err
	}

	index := make(map[int]PlexItem, len(resp.MediaContainer.Metadata))
	for _, m := range resp.MediaContainer.Metadata {
		tmdbID := 0
		for _, g := range m.Guid {
			if id, ok := strings.CutPrefix(g.ID, "tmdb://"); ok {
				if n, err := strconv.Atoi(id); err == nil {
					tmdbID = n
					break
				}
			}
		}
		if tmdbID == 0 {
			continue
		}

		index[tmdbID] = PlexItem{
			RatingKey:  m.RatingKey,
			Title:      m.Title,
			UserRating: m.UserRating,
			AddedAt:    unixTime(m.AddedAt),
		}
	}
	return index, nil
}
