// Package config handles configuration loading for MandiSense.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"  yaml:"engine"`
	Catalog CatalogConfig `mapstructure:"catalog" yaml:"catalog"`
	Weather WeatherConfig `mapstructure:"weather" yaml:"weather"`
	Index   IndexConfig   `mapstructure:"index"   yaml:"index"`
	Digest  DigestConfig  `mapstructure:"digest"  yaml:"digest"`
	API     APIConfig     `mapstructure:"api"     yaml:"api"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// EngineConfig holds the rates injected into every analysis call.
type EngineConfig struct {
	TransportRatePerKm        float64 `mapstructure:"transport_rate_per_km"         yaml:"transport_rate_per_km"`         // ₹ per km
	StorageRatePerUnitPerWeek float64 `mapstructure:"storage_rate_per_unit_per_week" yaml:"storage_rate_per_unit_per_week"` // ₹ per unit per week
	DistanceModel             string  `mapstructure:"distance_model"                yaml:"distance_model"`                // "planar" or "haversine"
}

// CatalogConfig locates the reference data.
type CatalogConfig struct {
	SeedFile   string `mapstructure:"seed_file"   yaml:"seed_file"`
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"` // empty keeps the catalog in memory
}

// WeatherConfig holds weather-risk service settings.
type WeatherConfig struct {
	BaseURL        string  `mapstructure:"base_url"         yaml:"base_url"`
	APIKey         string  `mapstructure:"api_key"          yaml:"api_key"`
	TimeoutSec     int     `mapstructure:"timeout_sec"      yaml:"timeout_sec"`
	RequestsPerSec float64 `mapstructure:"requests_per_sec" yaml:"requests_per_sec"`
	CacheTTL       int     `mapstructure:"cache_ttl"        yaml:"cache_ttl"`     // seconds
	DefaultLevel   string  `mapstructure:"default_level"    yaml:"default_level"` // explicit fallback; empty disables
}

// IndexConfig holds wholesale-index service settings.
type IndexConfig struct {
	BaseURL        string  `mapstructure:"base_url"         yaml:"base_url"`
	APIKey         string  `mapstructure:"api_key"          yaml:"api_key"`
	TimeoutSec     int     `mapstructure:"timeout_sec"      yaml:"timeout_sec"`
	RequestsPerSec float64 `mapstructure:"requests_per_sec" yaml:"requests_per_sec"`
	LookbackDays   int     `mapstructure:"lookback_days"    yaml:"lookback_days"`
}

// DigestConfig schedules the daily market digest.
type DigestConfig struct {
	Enabled     bool     `mapstructure:"enabled"     yaml:"enabled"`
	Cron        string   `mapstructure:"cron"        yaml:"cron"` // 6 fields, with seconds
	Commodities []string `mapstructure:"commodities" yaml:"commodities"`
	Latitude    float64  `mapstructure:"latitude"    yaml:"latitude"`
	Longitude   float64  `mapstructure:"longitude"   yaml:"longitude"`
	RadiusKm    float64  `mapstructure:"radius_km"   yaml:"radius_km"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"        yaml:"level"`  // "debug", "info", "warn", "error"
	Format     string `mapstructure:"format"       yaml:"format"` // "text" or "json"
	File       string `mapstructure:"file"         yaml:"file"`   // optional rotating log file
	MaxSizeMB  int    `mapstructure:"max_size_mb"  yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"  yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.mandisense/config.yaml (home directory)
//  3. /etc/mandisense/config.yaml (system)
//
// Environment variables override config file values.
// Format: MANDISENSE_<SECTION>_<KEY>, e.g., MANDISENSE_WEATHER_API_KEY
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".mandisense"))
	v.AddConfigPath("/etc/mandisense")

	bindEnv(v)

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return decode(v)
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("MANDISENSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Engine defaults
	v.SetDefault("engine.transport_rate_per_km", 12.0)
	v.SetDefault("engine.storage_rate_per_unit_per_week", 50.0)
	v.SetDefault("engine.distance_model", "planar")

	// Catalog defaults
	v.SetDefault("catalog.seed_file", "./config/catalog.yaml")
	v.SetDefault("catalog.sqlite_path", "")

	// Weather defaults
	v.SetDefault("weather.timeout_sec", 10)
	v.SetDefault("weather.requests_per_sec", 2.0)
	v.SetDefault("weather.cache_ttl", 1800) // 30 minutes
	v.SetDefault("weather.default_level", "")

	// Index defaults
	v.SetDefault("index.timeout_sec", 15)
	v.SetDefault("index.requests_per_sec", 5.0)
	v.SetDefault("index.lookback_days", 90)

	// Digest defaults (06:30 IST, before the mandi auctions open)
	v.SetDefault("digest.enabled", false)
	v.SetDefault("digest.cron", "0 30 6 * * *")
	v.SetDefault("digest.commodities", []string{"wheat"})
	v.SetDefault("digest.radius_km", 100.0)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("MANDISENSE_WEATHER_API_KEY"); key != "" {
		cfg.Weather.APIKey = key
	}
	if key := os.Getenv("MANDISENSE_INDEX_API_KEY"); key != "" {
		cfg.Index.APIKey = key
	}
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Engine.TransportRatePerKm < 0:
		return fmt.Errorf("engine.transport_rate_per_km must be non-negative, got %v", c.Engine.TransportRatePerKm)
	case c.Engine.StorageRatePerUnitPerWeek < 0:
		return fmt.Errorf("engine.storage_rate_per_unit_per_week must be non-negative, got %v", c.Engine.StorageRatePerUnitPerWeek)
	case c.Index.LookbackDays <= 0:
		return fmt.Errorf("index.lookback_days must be positive, got %d", c.Index.LookbackDays)
	}

	switch strings.ToLower(c.Engine.DistanceModel) {
	case "", "planar", "haversine":
	default:
		return fmt.Errorf("unknown engine.distance_model %q", c.Engine.DistanceModel)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown logging.level %q", c.Logging.Level)
	}

	switch strings.ToUpper(c.Weather.DefaultLevel) {
	case "", "LOW", "MEDIUM", "HIGH":
	default:
		return fmt.Errorf("unknown weather.default_level %q", c.Weather.DefaultLevel)
	}
	return nil
}

// Addr returns the API listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
