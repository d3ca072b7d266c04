// Package services provides external service integrations.
package services

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"moviesweep/models"
)

const defaultTimeout = 30 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

func closeBody(service string, body io.ReadCloser) {
	if err := body.Close(); err != nil {
		slog.Warn("failed to close response body", "service", service, "error", err)
	}
}

// do sends req and turns transport errors and non-2xx replies into
// CollaboratorUnavailableError. 401 and 403 are flagged as auth failures.
func do(client *http.Client, service, op string, req *http.Request) (*http.Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, &models.CollaboratorUnavailableError{Service: service, Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		closeBody(service, resp.Body)
		return nil, &models.CollaboratorUnavailableError{
			Service:    service,
			Op:         op,
			StatusCode: resp.StatusCode,
			Auth:       resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden,
		}
	}

	return resp, nil
}

// doJSON sends req and decodes a JSON reply into out
func doJSON(client *http.Client, service, op string, req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")

	resp, err := do(client, service, op, req)
	if err != nil {
		return err
	}
	defer closeBody(service, resp.Body)

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &models.CollaboratorUnavailableError{
			Service: service,
			Op:      op,
			Err:     fmt.Errorf("failed to decode response: %w", err),
		}
	}
	return nil
}

func unixTime(ts int64) *time.Time {
	if ts <= 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}
