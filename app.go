package main

import (
	"fmt"
	"log/slog"

	"moviesweep/config"
	"moviesweep/database"
	"moviesweep/jobs"
	"moviesweep/metrics"
	"moviesweep/models"
	"moviesweep/repository"
	"moviesweep/retention"
	"moviesweep/services"

	"github.com/prometheus/client_golang/prometheus"
)

// App represents the application with its dependencies
type App struct {
	db         *database.DB
	runRepo    *repository.SweepRunRepository
	eventRepo  *repository.SweepEventRepository
	sweeper    *jobs.Sweeper
	jobManager *jobs.JobManager
	metrics    *metrics.Collector
	config     func() *config.Config
}

// newApp opens the audit database and wires the services for cfg
func newApp(cfg *config.Config) (*App, error) {
	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.InitSchema(); err != nil {
		if cerr := db.Close(); cerr != nil {
			slog.Warn("failed to close database", "error", cerr)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	runRepo := repository.NewSweepRunRepository(db)
	eventRepo := repository.NewSweepEventRepository(db)

	managers := map[models.LibraryTier]jobs.LibraryManager{}
	for _, tier := range cfg.Tiers() {
		radarr, _ := cfg.RadarrFor(tier)
		managers[tier] = services.NewRadarrService(radarr.URL, radarr.APIKey, tier)
		slog.Info("radarr instance configured", "tier", string(tier), "url", radarr.URL)
	}

	var chart jobs.ChartSource
	if cfg.IMDBEnabled() {
		chart = services.NewIMDBService(cfg.IMDB.Top250URL)
	} else {
		slog.Info("imdb top 250 check disabled")
	}

	source := jobs.NewLibrarySource(
		managers,
		services.NewPlexService(cfg.Plex.URL, cfg.Plex.Token, cfg.Plex.Library),
		services.NewTautulliService(cfg.Tautulli.URL, cfg.Tautulli.APIKey),
		services.NewOverseerrService(cfg.Overseerr.URL, cfg.Overseerr.APIKey, cfg.Overseerr.Email, cfg.Overseerr.Password),
		chart,
	)

	collector := metrics.NewCollector(cfg.Metrics.Namespace, prometheus.NewRegistry())
	sweeper := jobs.NewSweeper(source, jobs.NewRadarrDeleter(managers), jobs.SweeperOptions{
		Admins:        retention.NewAdminSet(cfg.AdminEmails...),
		ExpiryHorizon: cfg.UpcomingHorizon(),
		Recorder:      jobs.NewRepositoryRecorder(runRepo, eventRepo),
		Metrics:       collector,
	})

	return &App{
		db:        db,
		runRepo:   runRepo,
		eventRepo: eventRepo,
		sweeper:   sweeper,
		metrics:   collector,
		config:    func() *config.Config { return cfg },
	}, nil
}

// Close releases the database
func (app *App) Close() {
	if app.jobManager != nil {
		app.jobManager.Stop()
	}
	if app.db == nil {
		return
	}
	if err := app.db.Close(); err != nil {
		slog.Warn("failed to close database", "error", err)
	}
}

// planFor snapshots the sweep-relevant parts of a configuration
func planFor(cfg *config.Config) jobs.RunPlan {
	return jobs.RunPlan{
		Tiers:         cfg.Tiers(),
		Thresholds:    cfg.Thresholds(),
		Admins:        retention.NewAdminSet(cfg.AdminEmails...),
		ExpiryHorizon: cfg.UpcomingHorizon(),
		DryRun:        cfg.DryRun,
		KeepHistory:   cfg.HistoryRetention(),
	}
}
