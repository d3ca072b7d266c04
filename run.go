package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"moviesweep/jobs"
	"moviesweep/models"

	"github.com/spf13/cobra"
)

var runFlags struct {
	dryRun bool
	tier   string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one sweep and exit",
	Long: `Evaluate every movie of the configured libraries once and delete the
ones whose retention window has passed.

Examples:
  # Log what would be deleted without deleting anything
  moviesweep run --dry-run

  # Sweep only the 1080p library
  moviesweep run --tier 1080p`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "log deletions without performing them")
	runCmd.Flags().StringVar(&runFlags.tier, "tier", "", "sweep a single tier: 4k or 1080p (default all configured)")
}

func runSweep(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	plan := planFor(cfg)
	plan.DryRun = plan.DryRun || runFlags.dryRun
	if runFlags.tier != "" {
		tier, err := models.ParseLibraryTier(runFlags.tier)
		if err != nil {
			return err
		}
		if _, ok := cfg.RadarrFor(tier); !ok {
			return fmt.Errorf("no radarr instance configured for tier %s", tier)
		}
		plan.Tiers = []models.LibraryTier{tier}
	}

	app, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager := jobs.NewJobManager(app.sweeper, cfg.Schedule, func() jobs.RunPlan { return plan }, app.runRepo)
	results, err := manager.RunNow(ctx, plan)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	for _, tier := range plan.Tiers {
		slog.Info("tier swept", "tier", string(tier), "verdicts", len(results[tier]), "dry_run", plan.DryRun)
	}
	return nil
}

// commandContext returns the command context or a background one for tests
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
