package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TautulliService handles interactions with the Tautulli watch-history API
type TautulliService struct {
	BaseURL string
	APIKey  string
	client  *http.Client
}

// tautulliHistoryResponse represents the response from the get_history command
type tautulliHistoryResponse struct {
	Response struct {
		Result  string `json:"result"`
		Message string `json:"message"`
		Data    struct {
			Data []struct {
				Date int64 `json:"date"`
			} `json:"data"`
		} `json:"data"`
	} `json:"response"`
}

// NewTautulliService creates a new Tautulli service instance
func NewTautulliService(baseURL, apiKey string) *TautulliService {
	return &TautulliService{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		client:  newHTTPClient(),
	}
}

// LastWatched returns when any user last watched the item, or nil if never
func (t *TautulliService) LastWatched(ctx context.Context, ratingKey string) (*time.Time, error) {
	params := url.Values{}
	params.Set("apikey", t.APIKey)
	params.Set("cmd", "get_history")
	params.Set("rating_key", ratingKey)
	params.Set("length", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.BaseURL+"/api/v2?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create tautulli request: %w", err)
	}

	var history tautulliHistoryResponse
	if err := doJSON(t.client, "tautulli", "get history", req, &history); err != nil {
		return nil, err
	}

	if history.Response.Result != "success" {
		return nil, fmt.Errorf("tautulli get_history returned %q: %s", history.Response.Result, history.Response.Message)
	}
	if len(history.Response.Data.Data) == 0 {
		return nil, nil
	}
	return unixTime(history.Response.Data.Data[0].Date), nil
}
