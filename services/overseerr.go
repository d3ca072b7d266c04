package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const overseerrPageSize = 250

// OverseerrService handles interactions with the Overseerr request tracker
type OverseerrService struct {
	BaseURL  string
	APIKey   string
	Email    string
	Password string
	Client   *http.Client
	Cookie   string
}

// OverseerrRequest represents a single media request
type OverseerrRequest struct {
	ID        int       `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Media     struct {
		TMDBID int `json:"tmdbId"`
	} `json:"media"`
	RequestedBy struct {
		Email string `json:"email"`
	} `json:"requestedBy"`
}

type overseerrRequestPage struct {
	PageInfo struct {
		Pages   int `json:"pages"`
		Page    int `json:"page"`
		Results int `json:"results"`
	} `json:"pageInfo"`
	Results []OverseerrRequest `json:"results"`
}

// NewOverseerrService creates a new Overseerr service instance
func NewOverseerrService(baseURL, apiKey, email, password string) *OverseerrService {
	return &OverseerrService{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		APIKey:   apiKey,
		Email:    email,
		Password: password,
		Client:   newHTTPClient(),
	}
}

// Login authenticates with a local Overseerr account and keeps the session cookie.
// It is a no-op when no credentials are configured; the API key is then used alone.
func (o *OverseerrService) Login(ctx context.Context) error {
	if o.Email == "" || o.Password == "" {
		return nil
	}

	body, err := json.Marshal(map[string]string{"email": o.Email, "password": o.Password})
	if err != nil {
		return fmt.Errorf("failed to encode overseerr login: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/api/v1/auth/local", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create overseerr login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", o.APIKey)

	resp, err := do(o.Client, "overseerr", "login", req)
	if err != nil {
		return err
	}
	defer closeBody("overseerr", resp.Body)

	cookies := resp.Header.Get("Set-Cookie")
	if cookies != "" {
		o.Cookie = strings.Split(cookies, ";")[0]
	}
	return nil
}

// Requests pages through every available request
func (o *OverseerrService) Requests(ctx context.Context) ([]OverseerrRequest, error) {
	var all []OverseerrRequest

	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("take", strconv.Itoa(overseerrPageSize))
		params.Set("skip", strconv.Itoa((page-1)*overseerrPageSize))
		params.Set("sort", "added")
		params.Set("filter", "available")

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+"/api/v1/request?"+params.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create overseerr request: %w", err)
		}
		req.Header.Set("X-Api-Key", o.APIKey)
		if o.Cookie != "" {
			req.Header.Set("Cookie", o.Cookie)
		}

		var resp overseerrRequestPage
		if err := doJSON(o.Client, "overseerr", "list requests", req, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Results...)

		if page >= resp.PageInfo.Pages || len(resp.Results) == 0 {
			break
		}
	}

	return all, nil
}

// RequestsByTMDBID indexes requests by movie, keeping the earliest request per movie
func RequestsByTMDBID(requests []OverseerrRequest) map[int]OverseerrRequest {
	byID := make(map[int]OverseerrRequest, len(requests))
	for _, r := range requests {
		if r.Media.TMDBID == 0 {
			continue
		}
		if existing, ok := byID[r.Media.TMDBID]; ok && !r.CreatedAt.Before(existing.CreatedAt) {
			continue
		}
		byID[r.Media.TMDBID] = r
	}
	return byID
}
