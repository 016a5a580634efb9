package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	os.Unsetenv("MANDISENSE_WEATHER_API_KEY")
	os.Unsetenv("MANDISENSE_INDEX_API_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Engine defaults
	if cfg.Engine.TransportRatePerKm != 12 {
		t.Errorf("Engine.TransportRatePerKm: got %v, want 12", cfg.Engine.TransportRatePerKm)
	}
	if cfg.Engine.StorageRatePerUnitPerWeek != 50 {
		t.Errorf("Engine.StorageRatePerUnitPerWeek: got %v, want 50", cfg.Engine.StorageRatePerUnitPerWeek)
	}
	if cfg.Engine.DistanceModel != "planar" {
		t.Errorf("Engine.DistanceModel: got %q, want planar", cfg.Engine.DistanceModel)
	}

	// Collaborator defaults
	if cfg.Index.LookbackDays != 90 {
		t.Errorf("Index.LookbackDays: got %d, want 90", cfg.Index.LookbackDays)
	}
	if cfg.Weather.CacheTTL != 1800 {
		t.Errorf("Weather.CacheTTL: got %d, want 1800", cfg.Weather.CacheTTL)
	}
	if cfg.Weather.DefaultLevel != "" {
		t.Errorf("Weather.DefaultLevel should be empty by default, got %q", cfg.Weather.DefaultLevel)
	}

	// Digest defaults
	if cfg.Digest.Enabled {
		t.Error("Digest.Enabled should be false by default")
	}
	if cfg.Digest.Cron != "0 30 6 * * *" {
		t.Errorf("Digest.Cron: got %q", cfg.Digest.Cron)
	}

	// API defaults
	if cfg.API.Host != "0.0.0.0" || cfg.API.Port != 8080 {
		t.Errorf("API: got %s:%d, want 0.0.0.0:8080", cfg.API.Host, cfg.API.Port)
	}
	if cfg.Addr() != "0.0.0.0:8080" {
		t.Errorf("Addr(): got %q", cfg.Addr())
	}

	// Logging defaults
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging: got %q/%q, want info/text", cfg.Logging.Level, cfg.Logging.Format)
	}
	if cfg.Logging.MaxSizeMB != 50 {
		t.Errorf("Logging.MaxSizeMB: got %d, want 50", cfg.Logging.MaxSizeMB)
	}
}

// ── LoadFromFile ──

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
engine:
  transport_rate_per_km: 9.5
  distance_model: "haversine"
catalog:
  sqlite_path: "/tmp/mandisense.db"
weather:
  base_url: "https://weather.example.in"
  api_key: "wk-test-1234567890"
  default_level: "MEDIUM"
digest:
  enabled: true
  commodities: ["wheat", "gram"]
  latitude: 29.69
  longitude: 76.99
api:
  port: 9090
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Engine.TransportRatePerKm != 9.5 || cfg.Engine.DistanceModel != "haversine" {
		t.Errorf("Engine: got %+v", cfg.Engine)
	}
	// Unset keys keep defaults.
	if cfg.Engine.StorageRatePerUnitPerWeek != 50 {
		t.Errorf("Engine.StorageRatePerUnitPerWeek: got %v, want default 50", cfg.Engine.StorageRatePerUnitPerWeek)
	}
	if cfg.Catalog.SQLitePath != "/tmp/mandisense.db" {
		t.Errorf("Catalog.SQLitePath: got %q", cfg.Catalog.SQLitePath)
	}
	if cfg.Weather.BaseURL != "https://weather.example.in" || cfg.Weather.DefaultLevel != "MEDIUM" {
		t.Errorf("Weather: got %+v", cfg.Weather)
	}
	if !cfg.Digest.Enabled || len(cfg.Digest.Commodities) != 2 || cfg.Digest.Latitude != 29.69 {
		t.Errorf("Digest: got %+v", cfg.Digest)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port: got %d, want 9090", cfg.API.Port)
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadFromFileRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"negative transport rate", "engine:\n  transport_rate_per_km: -1\n", "transport_rate_per_km"},
		{"negative storage rate", "engine:\n  storage_rate_per_unit_per_week: -3\n", "storage_rate_per_unit_per_week"},
		{"unknown distance model", "engine:\n  distance_model: manhattan\n", "distance_model"},
		{"zero lookback", "index:\n  lookback_days: 0\n", "lookback_days"},
		{"bad log level", "logging:\n  level: verbose\n", "logging.level"},
		{"bad weather fallback", "weather:\n  default_level: EXTREME\n", "default_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

// ── Environment overrides ──

func TestOverrideFromEnv(t *testing.T) {
	t.Setenv("MANDISENSE_WEATHER_API_KEY", "wk-env-weather-key")
	t.Setenv("MANDISENSE_INDEX_API_KEY", "ik-env-index-key")

	cfg := &Config{}
	overrideFromEnv(cfg)

	if cfg.Weather.APIKey != "wk-env-weather-key" {
		t.Errorf("Weather.APIKey: got %q", cfg.Weather.APIKey)
	}
	if cfg.Index.APIKey != "ik-env-index-key" {
		t.Errorf("Index.APIKey: got %q", cfg.Index.APIKey)
	}
}

func TestOverrideFromEnvNoEnvSet(t *testing.T) {
	os.Unsetenv("MANDISENSE_WEATHER_API_KEY")
	os.Unsetenv("MANDISENSE_INDEX_API_KEY")

	cfg := &Config{Weather: WeatherConfig{APIKey: "from-config"}}
	overrideFromEnv(cfg)

	if cfg.Weather.APIKey != "from-config" {
		t.Errorf("config value should survive without env, got %q", cfg.Weather.APIKey)
	}
}

func TestEnvOverridesEngineRate(t *testing.T) {
	t.Setenv("MANDISENSE_ENGINE_TRANSPORT_RATE_PER_KM", "15")

	cfg, err := LoadFromFile(writeConfig(t, "api:\n  port: 8081\n"))
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Engine.TransportRatePerKm != 15 {
		t.Errorf("Engine.TransportRatePerKm: got %v, want 15 from env", cfg.Engine.TransportRatePerKm)
	}
}

// ── Keys ──

func TestMaskKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", "***"},
		{"short", "***"},
		{"12345678", "***"},
		{"wk-1234567890abc", "wk-...abc"},
	}
	for _, tt := range tests {
		if got := maskKey(tt.key); got != tt.want {
			t.Errorf("maskKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestCheckAPIKeysAllEmpty(t *testing.T) {
	os.Unsetenv("MANDISENSE_WEATHER_API_KEY")
	os.Unsetenv("MANDISENSE_INDEX_API_KEY")

	statuses := CheckAPIKeys(&Config{})
	if len(statuses) != 2 {
		t.Fatalf("expected 2 key statuses, got %d", len(statuses))
	}
	for _, s := range statuses {
		if s.IsSet || s.Source != KeySourceNone || s.Masked != "" {
			t.Errorf("%s: expected unset, got %+v", s.Name, s)
		}
	}
}

func TestCheckAPIKeysSources(t *testing.T) {
	os.Unsetenv("MANDISENSE_INDEX_API_KEY")
	t.Setenv("MANDISENSE_WEATHER_API_KEY", "wk-env-weather-key")

	cfg := &Config{
		Weather: WeatherConfig{APIKey: "wk-env-weather-key"},
		Index:   IndexConfig{APIKey: "ik-config-index-key"},
	}
	statuses := CheckAPIKeys(cfg)

	if statuses[0].Source != KeySourceEnv || statuses[0].Masked != "wk-...key" {
		t.Errorf("weather key: got %+v", statuses[0])
	}
	if statuses[1].Source != KeySourceConfig || !statuses[1].IsSet {
		t.Errorf("index key: got %+v", statuses[1])
	}
}

func TestHomeDirReturnsNonEmpty(t *testing.T) {
	if homeDir() == "" {
		t.Error("homeDir() should never return empty")
	}
}
