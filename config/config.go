// Package config loads the sweep configuration from YAML and the environment.
package config

import (
	"time"

	"moviesweep/models"
)

// Config is the full application configuration
type Config struct {
	Plex              PlexConfig               `yaml:"plex"`
	Tautulli          ServiceConfig            `yaml:"tautulli"`
	Radarr            map[string]ServiceConfig `yaml:"radarr"`
	Overseerr         OverseerrConfig          `yaml:"overseerr"`
	IMDB              IMDBConfig               `yaml:"imdb"`
	AdminEmails       []string                 `yaml:"admin_emails"`
	DeletionThreshold DeletionThreshold        `yaml:"deletion_threshold"`
	UpcomingDays      *int                     `yaml:"upcoming_days"`
	Database          DatabaseConfig           `yaml:"database"`
	Schedule          string                   `yaml:"schedule"`
	DryRun            bool                     `yaml:"dry_run"`
	Server            ServerConfig             `yaml:"server"`
	Logging           LoggingConfig            `yaml:"logging"`
	Metrics           MetricsConfig            `yaml:"metrics"`
}

// ServiceConfig is the address and API key of an external service
type ServiceConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// PlexConfig configures the Plex media server
type PlexConfig struct {
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	Library string `yaml:"library"`
}

// OverseerrConfig configures the request tracker
type OverseerrConfig struct {
	URL      string `yaml:"url"`
	APIKey   string `yaml:"api_key"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// IMDBConfig configures the Top 250 scrape
type IMDBConfig struct {
	Enabled   *bool  `yaml:"enabled"`
	Top250URL string `yaml:"top250_url"`
}

// DeletionThreshold mirrors the deletion_threshold block of config.yaml
type DeletionThreshold struct {
	Days   DaysThreshold   `yaml:"days"`
	Rating RatingThreshold `yaml:"rating"`
}

// DaysThreshold holds retention windows in days
type DaysThreshold struct {
	Users struct {
		Admin *int `yaml:"admin"`
		User  *int `yaml:"user"`
	} `yaml:"users"`
	Rules struct {
		LowRated *int `yaml:"low_rated"`
	} `yaml:"rules"`
}

// RatingThreshold holds rating floors on the 0-10 scale
type RatingThreshold struct {
	Users struct {
		Admin *float64 `yaml:"admin"`
		User  *float64 `yaml:"user"`
	} `yaml:"users"`
	Rules struct {
		Low          *float64 `yaml:"low"`
		ExternalHigh *float64 `yaml:"external_high"`
	} `yaml:"rules"`
}

// DatabaseConfig configures the audit database
type DatabaseConfig struct {
	Path     string `yaml:"path"`
	KeepDays *int   `yaml:"keep_days"` // 0 keeps all run history
}

// ServerConfig configures the HTTP API of the serve command
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// LoggingConfig configures slog output
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures Prometheus metric names
type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
}

// Thresholds returns the retention policy as an immutable value
func (c *Config) Thresholds() models.ThresholdConfig {
	t := models.DefaultThresholds()
	d := c.DeletionThreshold

	if d.Days.Users.Admin != nil {
		t.AdminWindowDays = *d.Days.Users.Admin
	}
	if d.Days.Users.User != nil {
		t.UserWindowDays = *d.Days.Users.User
	}
	if d.Days.Rules.LowRated != nil {
		t.LowRatedWindowDays = *d.Days.Rules.LowRated
	}
	if d.Rating.Users.Admin != nil {
		t.AdminRatingFloor = *d.Rating.Users.Admin
	}
	if d.Rating.Users.User != nil {
		t.UserRatingFloor = *d.Rating.Users.User
	}
	if d.Rating.Rules.Low != nil {
		t.LowRatingFloor = *d.Rating.Rules.Low
	}
	if d.Rating.Rules.ExternalHigh != nil {
		t.ExternalRatingFloor = *d.Rating.Rules.ExternalHigh
	}
	return t
}

// RadarrFor returns the Radarr instance configured for a tier
func (c *Config) RadarrFor(tier models.LibraryTier) (ServiceConfig, bool) {
	svc, ok := c.Radarr[string(tier)]
	return svc, ok && svc.URL != ""
}

// Tiers returns the configured library tiers in sweep order
func (c *Config) Tiers() []models.LibraryTier {
	var tiers []models.LibraryTier
	for _, tier := range models.AllTiers() {
		if _, ok := c.RadarrFor(tier); ok {
			tiers = append(tiers, tier)
		}
	}
	return tiers
}

// UpcomingHorizon is how far ahead kept movies are reported as expiring soon.
// Zero turns the warning off.
func (c *Config) UpcomingHorizon() time.Duration {
	return daysOrDefault(c.UpcomingDays, DefaultUpcomingDays)
}

// HistoryRetention is how long sweep runs are kept. Zero keeps them forever.
func (c *Config) HistoryRetention() time.Duration {
	return daysOrDefault(c.Database.KeepDays, DefaultKeepDays)
}

func daysOrDefault(days *int, def int) time.Duration {
	n := def
	if days != nil {
		n = *days
	}
	return time.Duration(n) * 24 * time.Hour
}

// IMDBEnabled reports whether the Top 250 list should be fetched
func (c *Config) IMDBEnabled() bool {
	return c.IMDB.Enabled == nil || *c.IMDB.Enabled
}
