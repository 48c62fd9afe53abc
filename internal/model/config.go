package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultReferenceOffset is the deployment timezone offset (UTC+5:30) used
// for calendar-day comparisons when none is configured.
const DefaultReferenceOffset = 5*time.Hour + 30*time.Minute

// DefaultStrategicMarkers are the keywords that force a task to high priority.
var DefaultStrategicMarkers = []string{
	"Strategic Work",
	"Deadline",
	"Project Delivery Work",
}

// EngineConfig holds the prioritization rules.
type EngineConfig struct {
	// ReferenceOffset is a duration string (e.g. "5h30m", "-4h") added to
	// "now" before taking its calendar date.
	ReferenceOffset string `mapstructure:"reference_offset" yaml:"reference_offset"`

	// WeekSpanDays is how many days past today still count as "this week".
	WeekSpanDays int `mapstructure:"week_span_days" yaml:"week_span_days"`

	// StrategicMarkers are matched case-insensitively as substrings.
	StrategicMarkers []string `mapstructure:"strategic_markers" yaml:"strategic_markers"`
}

// Offset parses ReferenceOffset, falling back to DefaultReferenceOffset
// when it is empty or malformed.
func (e EngineConfig) Offset() time.Duration {
	if e.ReferenceOffset == "" {
		return DefaultReferenceOffset
	}
	d, err := time.ParseDuration(e.ReferenceOffset)
	if err != nil {
		return DefaultReferenceOffset
	}
	return d
}

// BackendConfig points the client at a remote persistence server.
// An empty BaseURL keeps everything in the local database.
type BackendConfig struct {
	BaseURL         string `mapstructure:"base_url" yaml:"base_url"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec"`
	PollIntervalSec int    `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// ServerConfig holds settings for the built-in REST server.
type ServerConfig struct {
	Addr      string `mapstructure:"addr" yaml:"addr"`
	AuthToken string `mapstructure:"auth_token" yaml:"auth_token"`
}

// DatabaseConfig locates the local SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Engine   EngineConfig   `mapstructure:"engine" yaml:"engine"`
	Backend  BackendConfig  `mapstructure:"backend" yaml:"backend"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Display  DisplayConfig  `mapstructure:"display" yaml:"display"`
}

// configDir returns ~/.config/taskfocus, or the working directory when the
// home directory cannot be resolved.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "taskfocus")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/taskfocus/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultDatabasePath returns ~/.config/taskfocus/taskfocus.db.
func DefaultDatabasePath() string {
	return filepath.Join(configDir(), "taskfocus.db")
}

// DefaultAppConfig returns a sensible default configuration.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Engine: EngineConfig{
			ReferenceOffset:  "5h30m",
			WeekSpanDays:     5,
			StrategicMarkers: append([]string{}, DefaultStrategicMarkers...),
		},
		Backend: BackendConfig{
			TimeoutSec:      30,
			PollIntervalSec: 120,
		},
		Server: ServerConfig{
			Addr: ":5000",
		},
		Database: DatabaseConfig{
			Path: DefaultDatabasePath(),
		},
		Display: DisplayConfig{
			Theme: "default",
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("engine.reference_offset", "5h30m")
	v.SetDefault("engine.week_span_days", 5)
	v.SetDefault("engine.strategic_markers", DefaultStrategicMarkers)
	v.SetDefault("backend.timeout_sec", 30)
	v.SetDefault("backend.poll_interval_sec", 120)
	v.SetDefault("server.addr", ":5000")
	v.SetDefault("database.path", DefaultDatabasePath())
	v.SetDefault("display.theme", "default")

	v.SetEnvPrefix("TASKFOCUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	_ = v.BindEnv("backend.base_url")
	_ = v.BindEnv("server.auth_token")
	_ = v.BindEnv("database.path")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return unmarshalConfig(v, path)
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return unmarshalConfig(v, path)
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	return unmarshalConfig(v, path)
}

func unmarshalConfig(v *viper.Viper, path string) (*AppConfig, error) {
	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Engine.WeekSpanDays <= 0 {
		cfg.Engine.WeekSpanDays = 5
	}
	if len(cfg.Engine.StrategicMarkers) == 0 {
		cfg.Engine.StrategicMarkers = append([]string{}, DefaultStrategicMarkers...)
	}
	if cfg.Backend.TimeoutSec <= 0 {
		cfg.Backend.TimeoutSec = 30
	}
	if cfg.Backend.PollIntervalSec <= 0 {
		cfg.Backend.PollIntervalSec = 120
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("engine", cfg.Engine)
	v.Set("backend", cfg.Backend)
	v.Set("server", cfg.Server)
	v.Set("database", cfg.Database)
	v.Set("display", cfg.Display)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
