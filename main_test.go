package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"moviesweep/config"
	"moviesweep/database"
	"moviesweep/jobs"
	"moviesweep/metrics"
	"moviesweep/models"
	"moviesweep/repository"
	"moviesweep/retention"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSource serves an empty library, optionally blocking until release is closed
type stubSource struct {
	release chan struct{}
}

func (s *stubSource) Movies(ctx context.Context, _ models.LibraryTier) ([]jobs.MovieRef, error) {
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, nil
}

func (s *stubSource) Signals(context.Context, jobs.MovieRef) (retention.Signals, error) {
	return retention.Signals{}, nil
}

type stubDeleter struct{}

func (stubDeleter) DeleteMovie(context.Context, int, models.LibraryTier) error { return nil }

func testConfig() *config.Config {
	cfg := &config.Config{
		Radarr: map[string]config.ServiceConfig{
			"4k": {URL: "http://radarr-4k:7878", APIKey: "key"},
		},
		AdminEmails: []string{"admin@example.com"},
		Schedule:    "0 3 * * *",
	}
	keepDays, upcomingDays := 30, 7
	cfg.Database.KeepDays = &keepDays
	cfg.UpcomingDays = &upcomingDays
	return cfg
}

func setupTestApp(t *testing.T) (*App, func()) {
	// Create a temporary test database
	testDB, err := database.NewDB(":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	// Initialize schema
	if err := testDB.InitSchema(); err != nil {
		t.Fatalf("Failed to initialize test schema: %v", err)
	}

	cfg := testConfig()
	app := &App{
		db:        testDB,
		runRepo:   repository.NewSweepRunRepository(testDB),
		eventRepo: repository.NewSweepEventRepository(testDB),
		metrics:   metrics.NewCollector("test", prometheus.NewRegistry()),
		config:    func() *config.Config { return cfg },
	}

	// Return cleanup function
	cleanup := func() {
		app.Close()
	}

	return app, cleanup
}

// withJobManager attaches a started job manager sweeping source
func withJobManager(t *testing.T, app *App, source jobs.MovieSource) {
	app.sweeper = jobs.NewSweeper(source, stubDeleter{}, jobs.SweeperOptions{
		Recorder: jobs.NewRepositoryRecorder(app.runRepo, app.eventRepo),
		Metrics:  app.metrics,
	})
	app.jobManager = jobs.NewJobManager(app.sweeper, "0 3 * * *", func() jobs.RunPlan {
		return planFor(app.config())
	}, app.runRepo)
	require.NoError(t, app.jobManager.Start())
}

func createTestRun(t *testing.T, app *App, id string, tier models.LibraryTier, startedAt time.Time) *models.SweepRun {
	run := &models.SweepRun{ID: id, Tier: tier, StartedAt: startedAt}
	require.NoError(t, app.runRepo.Create(run))
	run.Status = models.SweepCompleted
	run.Kept = 3
	require.NoError(t, app.runRepo.Finish(run))
	return run
}

func doRequest(t *testing.T, app *App, method, target string) *httptest.ResponseRecorder {
	req, err := http.NewRequest(method, target, nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	app.router().ServeHTTP(rr, req)
	return rr
}

func TestHealthHandler(t *testing.T) {
	app, cleanup := setupTestApp(t)
	defer cleanup()

	rr := doRequest(t, app, "GET", "/health")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
}

func TestListRunsHandler_EmptyDatabase(t *testing.T) {
	app, cleanup := setupTestApp(t)
	defer cleanup()

	rr := doRequest(t, app, "GET", "/api/v1/runs")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var runs []models.SweepRun
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &runs))
	assert.Empty(t, runs)
}

func TestListRunsHandler_WithLimit(t *testing.T) {
	app, cleanup := setupTestApp(t)
	defer cleanup()

	base := time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)
	createTestRun(t, app, "run-1", models.Tier4K, base)
	createTestRun(t, app, "run-2", models.Tier4K, base.Add(time.Hour))
	createTestRun(t, app, "run-3", models.Tier1080p, base.Add(2*time.Hour))

	rr := doRequest(t, app, "GET", "/api/v1/runs?limit=2")
	require.Equal(t, http.StatusOK, rr.Code)

	var runs []models.SweepRun
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &runs))
	require.Len(t, runs, 2)
	assert.Equal(t, "run-3", runs[0].ID)
	assert.Equal(t, "run-2", runs[1].ID)
}

func TestListRunsHandler_InvalidLimit(t *testing.T) {
	app, cleanup := setupTestApp(t)
	defer cleanup()

	for _, limit := range []string{"abc", "-1"} {
		rr := doRequest(t, app, "GET", "/api/v1/runs?limit="+limit)
		assert.Equal(t, http.StatusBadRequest, rr.Code, "limit %s", limit)
	}
}

func TestGetRunHandler(t *testing.T) {
	app, cleanup := setupTestApp(t)
	defer cleanup()

	createTestRun(t, app, "run-1", models.Tier4K, time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC))

	rr := doRequest(t, app, "GET", "/api/v1/runs/run-1")
	require.Equal(t, http.StatusOK, rr.Code)

	var run models.SweepRun
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &run))
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, models.Tier4K, run.Tier)
	assert.Equal(t, models.SweepCompleted, run.Status)
	assert.Equal(t, 3, run.Kept)
}

func TestGetRunHandler_NotFound(t *testing.T) {
	app, cleanup := setupTestApp(t)
	defer cleanup()

	rr := doRequest(t, app, "GET", "/api/v1/runs/missing")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doRequest(t, app, "GET", "/api/v1/runs/missing/events")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetRunEventsHandler(t *testing.T) {
	app, cleanup := setupTestApp(t)
	defer cleanup()

	createTestRun(t, app, "run-1", models.Tier4K, time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC))
	require.NoError(t, app.eventRepo.Create(&models.SweepEvent{
		RunID:   "run-1",
		MovieID: 603,
		Title:   "The Matrix",
		Type:    models.EventMovieDeleted,
		Reason:  models.ReasonExpiredRequesterWindow,
		Message: "deleted",
	}, map[string]interface{}{"arr_id": 1}))

	rr := doRequest(t, app, "GET", "/api/v1/runs/run-1/events")
	require.Equal(t, http.StatusOK, rr.Code)

	var details models.RunDetailsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &details))
	require.NotNil(t, details.Run)
	assert.Equal(t, "run-1", details.Run.ID)
	require.Len(t, details.Events, 1)
	assert.Equal(t, "The Matrix", details.Events[0].Title)
	assert.Equal(t, models.EventMovieDeleted, details.Events[0].Type)
	assert.JSONEq(t, `{"arr_id":1}`, details.Events[0].Details)
	assert.Equal(t, map[models.SweepEventType]int{models.EventMovieDeleted: 1}, details.Counts)
}

func TestGetRunEventsHandler_EmptyRunHasEmptyCounts(t *testing.T) {
	app, cleanup := setupTestApp(t)
	defer cleanup()

	createTestRun(t, app, "run-1", models.Tier4K, time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC))

	rr := doRequest(t, app, "GET", "/api/v1/runs/run-1/events")
	require.Equal(t, http.StatusOK, rr.Code)

	var details models.RunDetailsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &details))
	assert.Empty(t, details.Events)
	assert.Empty(t, details.Counts)
}

func TestExpiringHandler(t *testing.T) {
	app, cleanup := setupTestApp(t)
	defer cleanup()

	createTestRun(t, app, "run-1", models.Tier4K, time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC))
	require.NoError(t, app.eventRepo.Create(&models.SweepEvent{
		RunID:   "run-1",
		MovieID: 11,
		Title:   "Star Wars",
		Type:    models.EventExpiringSoon,
		Reason:  models.ReasonWithinRetentionWindow,
		Message: "'Star Wars' will be deleted on 2025-06-05",
	}, nil))

	rr := doRequest(t, app, "GET", "/api/v1/expiring")
	require.Equal(t, http.StatusOK, rr.Code)

	var events []models.SweepEvent
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "Star Wars", events[0].Title)
}

func TestTriggerSweepHandler_NoScheduler(t *testing.T) {
	app, cleanup := setupTestApp(t)
	defer cleanup()

	rr := doRequest(t, app, "POST", "/api/v1/sweeps")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestTriggerSweepHandler_BadRequests(t *testing.T) {
	app, cleanup := setupTestApp(t)
	defer cleanup()
	withJobManager(t, app, &stubSource{})

	tests := []struct {
		name  string
		query string
	}{
		{"unknown tier", "?tier=720p"},
		{"unconfigured tier", "?tier=1080p"},
		{"bad dry_run", "?dry_run=maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, app, "POST", "/api/v1/sweeps"+tt.query)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestTriggerSweepHandler_DefaultsToDryRun(t *testing.T) {
	app, cleanup := setupTestApp(t)
	defer cleanup()
	withJobManager(t, app, &stubSource{})

	rr := doRequest(t, app, "POST", "/api/v1/sweeps?tier=4k")
	require.Equal(t, http.StatusAccepted, rr.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "4k", body["tier"])
	assert.Equal(t, true, body["dry_run"])

	assert.Eventually(t, func() bool {
		runs, err := app.runRepo.List(0)
		return err == nil && len(runs) == 1 && runs[0].Status == models.SweepCompleted
	}, 2*time.Second, 10*time.Millisecond)

	runs, err := app.runRepo.List(0)
	require.NoError(t, err)
	assert.True(t, runs[0].DryRun)
	assert.Equal(t, models.Tier4K, runs[0].Tier)
}

func TestTriggerSweepHandler_Conflict(t *testing.T) {
	app, cleanup := setupTestApp(t)
	defer cleanup()

	source := &stubSource{release: make(chan struct{})}
	withJobManager(t, app, source)

	rr := doRequest(t, app, "POST", "/api/v1/sweeps?dry_run=false")
	require.Equal(t, http.StatusAccepted, rr.Code)

	rr = doRequest(t, app, "POST", "/api/v1/sweeps")
	assert.Equal(t, http.StatusConflict, rr.Code)

	close(source.release)
}

func TestMetricsEndpoint(t *testing.T) {
	app, cleanup := setupTestApp(t)
	defer cleanup()

	app.metrics.RecordSkip(models.Tier4K)

	rr := doRequest(t, app, "GET", "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `test_movies_skipped_total{tier="4k"} 1`)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger := newLogger(&buf, config.LoggingConfig{Level: "warn", Format: "json"}, false)
	logger.Info("hidden")
	logger.Warn("shown", "tier", "4k")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	require.Contains(t, out, "shown")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &entry))
	assert.Equal(t, "4k", entry["tier"])
}

func TestNewLogger_VerboseOverridesLevel(t *testing.T) {
	var buf bytes.Buffer

	logger := newLogger(&buf, config.LoggingConfig{Level: "error", Format: "text"}, true)
	logger.Debug("debugging")

	assert.Contains(t, buf.String(), "msg=debugging")
}

func TestPlanFor(t *testing.T) {
	cfg := testConfig()
	cfg.DryRun = true

	plan := planFor(cfg)

	assert.Equal(t, []models.LibraryTier{models.Tier4K}, plan.Tiers)
	assert.Equal(t, models.DefaultThresholds(), plan.Thresholds)
	assert.True(t, plan.Admins.Contains("ADMIN@example.com"))
	assert.Equal(t, 7*24*time.Hour, plan.ExpiryHorizon)
	assert.Equal(t, 30*24*time.Hour, plan.KeepHistory)
	assert.True(t, plan.DryRun)
}

func TestPlanFor_ZeroDaysDisableWarningAndPruning(t *testing.T) {
	cfg := testConfig()
	zero := 0
	cfg.UpcomingDays = &zero
	cfg.Database.KeepDays = &zero

	plan := planFor(cfg)

	assert.Zero(t, plan.ExpiryHorizon)
	assert.Zero(t, plan.KeepHistory)
}

func TestPrintPolicy(t *testing.T) {
	cfg := testConfig()
	var buf bytes.Buffer

	printPolicy(&buf, cfg)

	out := buf.String()
	assert.Contains(t, out, "configuration OK")
	assert.Contains(t, out, "tiers:            4k\n")
	assert.Contains(t, out, "admins:           1\n")
	assert.Contains(t, out, "windows (days):   admin 180, user 90, low-rated 30")
	assert.Contains(t, out, "imdb top 250:     true")
}
