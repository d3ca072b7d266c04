package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"moviesweep/config"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	envFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "moviesweep",
	Short: "Retention sweeps for a Plex movie library",
	Long: `moviesweep decides which movies in a Plex library have outstayed their
welcome and deletes them through Radarr.

A movie is kept while it is well rated (Plex rating, IMDB Top 250 or a high
external score) or while it is younger than the retention window of whoever
requested it. Everything else is deleted, low-rated movies sooner.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "env file loaded before the config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// loadConfig reads the env file and the config file named by the global flags
func loadConfig() (*config.Config, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	return config.Load(cfgFile)
}

// newLogger builds the process logger from the logging section
func newLogger(w io.Writer, cfg config.LoggingConfig, verbose bool) *slog.Logger {
	level, err := config.ParseLogLevel(cfg.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func setupLogging(cfg *config.Config) {
	slog.SetDefault(newLogger(os.Stderr, cfg.Logging, verbose))
}
