package main

import (
	"fmt"
	"io"
	"strings"

	"moviesweep/config"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration file",
	Long: `Load the configuration file the same way run and serve do, report every
problem found and print the effective retention policy.

Example:
  moviesweep validate --config /etc/moviesweep/config.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	printPolicy(cmd.OutOrStdout(), cfg)
	return nil
}

func printPolicy(w io.Writer, cfg *config.Config) {
	t := cfg.Thresholds()

	tiers := make([]string, 0, len(cfg.Tiers()))
	for _, tier := range cfg.Tiers() {
		tiers = append(tiers, string(tier))
	}

	fmt.Fprintf(w, "configuration OK\n")
	fmt.Fprintf(w, "  tiers:            %s\n", strings.Join(tiers, ", "))
	fmt.Fprintf(w, "  admins:           %d\n", len(cfg.AdminEmails))
	fmt.Fprintf(w, "  windows (days):   admin %d, user %d, low-rated %d\n", t.AdminWindowDays, t.UserWindowDays, t.LowRatedWindowDays)
	fmt.Fprintf(w, "  rating floors:    admin %.1f, user %.1f, low %.1f, external %.1f\n", t.AdminRatingFloor, t.UserRatingFloor, t.LowRatingFloor, t.ExternalRatingFloor)
	fmt.Fprintf(w, "  imdb top 250:     %t\n", cfg.IMDBEnabled())
	fmt.Fprintf(w, "  schedule:         %s\n", cfg.Schedule)
	fmt.Fprintf(w, "  dry run:          %t\n", cfg.DryRun)
}
