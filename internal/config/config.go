// Package config handles tabula configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"

	"github.com/aidanlsb/tabula/internal/dates"
	"github.com/aidanlsb/tabula/internal/export"
	"github.com/aidanlsb/tabula/internal/logging"
)

// Config represents the tabula configuration file.
type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Server    ServerConfig    `toml:"server"`
	Auth      AuthConfig      `toml:"auth"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Export    ExportConfig    `toml:"export"`
	Log       LogConfig       `toml:"log"`
}

// DatabaseConfig locates the SQLite store.
type DatabaseConfig struct {
	// Path is the database file. ":memory:" opens a private in-memory store.
	Path string `toml:"path"`
}

// ServerConfig configures `tbl serve`.
type ServerConfig struct {
	Listen          string        `toml:"listen"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

// AuthConfig configures the bearer-token gate.
type AuthConfig struct {
	// JWTSecret is the HS256 signing secret. Empty disables authentication.
	JWTSecret string `toml:"jwt_secret"`
}

// RateLimitConfig configures per-client request limiting.
type RateLimitConfig struct {
	// PerMinute is the sustained request rate. 0 disables limiting.
	PerMinute int `toml:"per_minute"`
	Burst     int `toml:"burst"`
}

// ExportConfig tunes the export pipeline.
type ExportConfig struct {
	DefaultLimit    int `toml:"default_limit"`
	OverFetchFactor int `toml:"over_fetch_factor"`

	SearchCaseSensitive     bool `toml:"search_case_sensitive"`
	LegacyReferenceFallback bool `toml:"legacy_reference_fallback"`

	// DateFormat is a Go time layout for date cells.
	DateFormat string `toml:"date_format"`
	// Timezone is an IANA zone name used for datetimes and relative buckets.
	Timezone string `toml:"timezone"`
	// WeekStart names the first day of the this_week bucket.
	WeekStart string `toml:"week_start"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Defaults returns the configuration used when no file exists.
func Defaults() *Config {
	return &Config{
		Database: DatabaseConfig{Path: DefaultDatabasePath()},
		Server: ServerConfig{
			Listen:          "127.0.0.1:8080",
			ReadTimeout:     30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		RateLimit: RateLimitConfig{PerMinute: 120, Burst: 20},
		Export: ExportConfig{
			DefaultLimit:    export.DefaultLimit,
			OverFetchFactor: 1,
			DateFormat:      dates.DefaultDisplayLayout,
			Timezone:        "UTC",
			WeekStart:       "monday",
		},
		Log: LogConfig{Level: "info", Format: string(logging.FormatAuto)},
	}
}

// Load loads the configuration from the default location.
// Returns the defaults if the file doesn't exist.
func Load() (*Config, error) {
	return LoadFrom(DefaultPath())
}

// LoadFrom loads the configuration from a specific path. A missing file
// yields the defaults; keys the file leaves out keep their default values.
func LoadFrom(path string) (*Config, error) {
	cfg := Defaults()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if strings.TrimSpace(c.Database.Path) == "" {
		result = multierror.Append(result, errors.New("database.path is required"))
	}
	if c.Server.ReadTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		result = multierror.Append(result, errors.New("server timeouts must not be negative"))
	}
	if c.RateLimit.PerMinute < 0 || c.RateLimit.Burst < 0 {
		result = multierror.Append(result, errors.New("rate_limit values must not be negative"))
	}
	if c.Export.DefaultLimit < 1 || c.Export.DefaultLimit > export.MaxLimit {
		result = multierror.Append(result, fmt.Errorf("export.default_limit must be between 1 and %d", export.MaxLimit))
	}
	if c.Export.OverFetchFactor < 1 {
		result = multierror.Append(result, errors.New("export.over_fetch_factor must be at least 1"))
	}
	if _, err := c.Location(); err != nil {
		result = multierror.Append(result, err)
	}
	if _, err := c.WeekStart(); err != nil {
		result = multierror.Append(result, err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		result = multierror.Append(result, fmt.Errorf("log.level: %w", err))
	}
	switch logging.Format(strings.ToLower(c.Log.Format)) {
	case "", logging.FormatAuto, logging.FormatText, logging.FormatJSON:
	default:
		result = multierror.Append(result, fmt.Errorf("log.format %q must be auto, text or json", c.Log.Format))
	}

	return result.ErrorOrNil()
}

// Location resolves export.timezone. Empty means UTC.
func (c *Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Export.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("export.timezone: %w", err)
	}
	return loc, nil
}

// WeekStart resolves export.week_start. Empty means Monday.
func (c *Config) WeekStart() (time.Weekday, error) {
	d, ok := dates.ParseWeekday(c.Export.WeekStart)
	if !ok {
		return time.Monday, fmt.Errorf("export.week_start: unknown weekday %q", c.Export.WeekStart)
	}
	return d, nil
}

// LogOptions converts the log section for logging.New.
func (c *Config) LogOptions() logging.Options {
	return logging.Options{Level: c.Log.Level, Format: logging.Format(c.Log.Format)}
}

// DefaultPath returns the default config file path.
// Checks ~/.config/tabula/config.toml first (XDG style),
// then falls back to OS-specific location.
func DefaultPath() string {
	if xdgPath, err := XDGPath(); err == nil {
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath
		}
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "tabula", "config.toml")
	}

	return filepath.Join(".", "config.toml")
}

// XDGPath returns the XDG-style config path (~/.config/tabula/config.toml).
func XDGPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "tabula", "config.toml"), nil
}

// DefaultDatabasePath returns ~/.local/share/tabula/tabula.db, or a file in
// the working directory when there is no home directory.
func DefaultDatabasePath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "tabula", "tabula.db")
	}
	return filepath.Join(".", "tabula.db")
}

// ResolvePath resolves the effective config path from an optional override.
func ResolvePath(explicit string) string {
	if strings.TrimSpace(explicit) != "" {
		return explicit
	}
	return DefaultPath()
}
