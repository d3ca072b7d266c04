package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"moviesweep/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default values applied when the file leaves a field out
const (
	DefaultPlexLibrary   = "Movies"
	DefaultDatabasePath  = "moviesweep.db"
	DefaultSchedule      = "0 3 * * *"
	DefaultListenAddress = ":8080"
	DefaultUpcomingDays  = 30
	DefaultKeepDays      = 90
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultNamespace     = "moviesweep"
)

// LoadEnvFile loads a .env file into the process environment.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		slog.Debug("no env file found", "path", path)
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %q: %w", path, err)
	}
	return nil
}

// Load reads the YAML file at path, applies defaults and environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration file %q: %w", path, err)
	}
	return cfg, nil
}

// Parse builds a validated configuration from YAML bytes
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	ApplyDefaults(&cfg)
	normalizeRadarrKeys(&cfg)
	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// ApplyDefaults fills empty optional fields
func ApplyDefaults(cfg *Config) {
	if cfg.Plex.Library == "" {
		cfg.Plex.Library = DefaultPlexLibrary
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = DefaultDatabasePath
	}
	if cfg.Database.KeepDays == nil {
		keep := DefaultKeepDays
		cfg.Database.KeepDays = &keep
	}
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = DefaultListenAddress
	}
	if cfg.UpcomingDays == nil {
		upcoming := DefaultUpcomingDays
		cfg.UpcomingDays = &upcoming
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultNamespace
	}
}

// normalizeRadarrKeys rekeys radarr instances by canonical tier name, so
// "uhd" or "2160p" in the file land on the 4k tier. When several keys name the
// same tier they are all left in place for Validate to report.
func normalizeRadarrKeys(cfg *Config) {
	byTier := map[models.LibraryTier][]string{}
	for name := range cfg.Radarr {
		if tier, err := models.ParseLibraryTier(name); err == nil {
			byTier[tier] = append(byTier[tier], name)
		}
	}
	for tier, names := range byTier {
		if len(names) != 1 || names[0] == string(tier) {
			continue
		}
		cfg.Radarr[string(tier)] = cfg.Radarr[names[0]]
		delete(cfg.Radarr, names[0])
	}
}

// applyEnvOverrides lets MOVIESWEEP_SECTION_FIELD variables replace file values
func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if val := os.Getenv(key); val != "" {
			*dst = val
		}
	}

	setString("MOVIESWEEP_PLEX_URL", &cfg.Plex.URL)
	setString("MOVIESWEEP_PLEX_TOKEN", &cfg.Plex.Token)
	setString("MOVIESWEEP_TAUTULLI_URL", &cfg.Tautulli.URL)
	setString("MOVIESWEEP_TAUTULLI_API_KEY", &cfg.Tautulli.APIKey)
	setString("MOVIESWEEP_OVERSEERR_URL", &cfg.Overseerr.URL)
	setString("MOVIESWEEP_OVERSEERR_API_KEY", &cfg.Overseerr.APIKey)
	setString("MOVIESWEEP_OVERSEERR_EMAIL", &cfg.Overseerr.Email)
	setString("MOVIESWEEP_OVERSEERR_PASSWORD", &cfg.Overseerr.Password)
	setString("MOVIESWEEP_DATABASE_PATH", &cfg.Database.Path)
	setString("MOVIESWEEP_SCHEDULE", &cfg.Schedule)
	setString("MOVIESWEEP_SERVER_LISTEN", &cfg.Server.Listen)
	setString("MOVIESWEEP_LOGGING_LEVEL", &cfg.Logging.Level)
	setString("MOVIESWEEP_LOGGING_FORMAT", &cfg.Logging.Format)

	for _, tier := range models.AllTiers() {
		suffix := strings.ToUpper(string(tier))
		svc := cfg.Radarr[string(tier)]
		setString("MOVIESWEEP_RADARR_"+suffix+"_URL", &svc.URL)
		setString("MOVIESWEEP_RADARR_"+suffix+"_API_KEY", &svc.APIKey)
		if svc.URL != "" || svc.APIKey != "" {
			if cfg.Radarr == nil {
				cfg.Radarr = map[string]ServiceConfig{}
			}
			cfg.Radarr[string(tier)] = svc
		}
	}

	if val := os.Getenv("MOVIESWEEP_ADMIN_EMAILS"); val != "" {
		cfg.AdminEmails = nil
		for _, email := range strings.Split(val, ",") {
			if email = strings.TrimSpace(email); email != "" {
				cfg.AdminEmails = append(cfg.AdminEmails, email)
			}
		}
	}
	if val := os.Getenv("MOVIESWEEP_UPCOMING_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.UpcomingDays = &i
		}
	}
	if val := os.Getenv("MOVIESWEEP_IMDB_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.IMDB.Enabled = &b
		}
	}
}

// Validate checks the configuration for errors. All problems are reported together.
func Validate(cfg *Config) error {
	var errs []error

	required := []struct {
		name  string
		value string
	}{
		{"plex.url", cfg.Plex.URL},
		{"plex.token", cfg.Plex.Token},
		{"tautulli.url", cfg.Tautulli.URL},
		{"tautulli.api_key", cfg.Tautulli.APIKey},
		{"overseerr.url", cfg.Overseerr.URL},
		{"overseerr.api_key", cfg.Overseerr.APIKey},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.name))
		}
	}

	names := make([]string, 0, len(cfg.Radarr))
	for name := range cfg.Radarr {
		names = append(names, name)
	}
	sort.Strings(names)

	seen := map[models.LibraryTier]string{}
	for _, name := range names {
		svc := cfg.Radarr[name]
		tier, err := models.ParseLibraryTier(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("radarr: %w", err))
			continue
		}
		if first, dup := seen[tier]; dup {
			errs = append(errs, fmt.Errorf("radarr: %q and %q both configure the %s tier", first, name, tier))
			continue
		}
		seen[tier] = name
		if svc.URL == "" {
			errs = append(errs, fmt.Errorf("radarr.%s.url is required", tier))
		}
		if svc.APIKey == "" {
			errs = append(errs, fmt.Errorf("radarr.%s.api_key is required", tier))
		}
	}
	if len(cfg.Tiers()) == 0 {
		errs = append(errs, errors.New("at least one radarr instance (4k or 1080p) must be configured"))
	}

	if err := cfg.Thresholds().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("deletion_threshold: %w", err))
	}

	if cfg.UpcomingDays != nil && *cfg.UpcomingDays < 0 {
		errs = append(errs, fmt.Errorf("upcoming_days must not be negative, got %d", *cfg.UpcomingDays))
	}
	if cfg.Database.KeepDays != nil && *cfg.Database.KeepDays < 0 {
		errs = append(errs, fmt.Errorf("database.keep_days must not be negative, got %d", *cfg.Database.KeepDays))
	}

	if _, err := ParseLogLevel(cfg.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json, got %q", cfg.Logging.Format))
	}

	return errors.Join(errs...)
}

// ParseLogLevel converts a configured level name into a slog level
func ParseLogLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("logging.level %q is invalid: %w", level, err)
	}
	return l, nil
}
