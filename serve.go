package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"moviesweep/config"
	"moviesweep/jobs"

	"github.com/spf13/cobra"
)

var serveFlags struct {
	listen string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scheduled sweeps and serve the audit API",
	Long: `Start the scheduler and an HTTP server exposing sweep history, movies
about to expire, manual sweep triggers and Prometheus metrics.

Thresholds and admin emails are re-read from the watched configuration file
before every sweep. Service addresses and the schedule need a restart.`,
	RunE: serve,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveFlags.listen, "listen", "", "listen address (default from config, :8080)")
}

func serve(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	app, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher := config.NewWatcher(cfgFile, cfg, nil)
	app.config = watcher.Current
	go func() {
		if err := watcher.Watch(ctx); err != nil {
			slog.Error("config watcher stopped", "error", err)
		}
	}()

	app.jobManager = jobs.NewJobManager(app.sweeper, cfg.Schedule, func() jobs.RunPlan {
		return planFor(watcher.Current())
	}, app.runRepo)
	if err := app.jobManager.Start(); err != nil {
		return err
	}
	slog.Info("next scheduled sweep", "at", app.jobManager.NextRun().Format(time.RFC3339))

	listen := serveFlags.listen
	if listen == "" {
		listen = cfg.Server.Listen
	}

	server := &http.Server{
		Addr:         listen,
		Handler:      app.router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
