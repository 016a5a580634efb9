package datasource

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/seenimoa/mandisense/pkg/models"
)

// Rain probability thresholds used when a payload carries no risk level.
const (
	highRainPct   = 60.0
	mediumRainPct = 30.0
)

// WeatherOptions configures a WeatherClient.
type WeatherOptions struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	RequestsPerSec float64
	CacheTTL       time.Duration
	HTTPClient     *http.Client // optional, for tests
}

// WeatherClient fetches a rain-risk classification for a location.
type WeatherClient struct {
	endpoint
	cache *Cache
}

// NewWeatherClient builds a client. An empty base URL is ErrNotConfigured.
func NewWeatherClient(opts WeatherOptions) (*WeatherClient, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, fmt.Errorf("weather: %w", ErrNotConfigured)
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &WeatherClient{
		endpoint: newEndpoint(opts.BaseURL, opts.APIKey, opts.Timeout, opts.RequestsPerSec, opts.HTTPClient),
		cache:    NewCache(ttl),
	}, nil
}

// Risk returns the weather risk for the next days at lat/lon. Responses are
// cached per location rounded to two decimals.
func (w *WeatherClient) Risk(ctx context.Context, lat, lon float64, days int) (models.WeatherRisk, error) {
	key := fmt.Sprintf("%.2f,%.2f,%d", lat, lon, days)
	if v, ok := w.cache.Get(key); ok {
		return v.(models.WeatherRisk), nil
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 4, 64))
	q.Set("days", strconv.Itoa(days))

	data, err := w.get(ctx, w.baseURL+"/v1/risk?"+q.Encode())
	if err != nil {
		return models.WeatherRisk{}, fmt.Errorf("weather risk: %w", err)
	}

	risk, err := parseWeatherRisk(data)
	if err != nil {
		return models.WeatherRisk{}, err
	}
	w.cache.Set(key, risk)
	slog.Debug("weather risk fetched", "component", "datasource", "level", risk.Level, "rain_probability", risk.RainProbability)
	return risk, nil
}

func parseWeatherRisk(data []byte) (models.WeatherRisk, error) {
	if !gjson.ValidBytes(data) {
		return models.WeatherRisk{}, fmt.Errorf("%w: weather response is not JSON", ErrBadPayload)
	}
	doc := gjson.ParseBytes(data)
	if d := doc.Get("data"); d.IsObject() {
		doc = d
	}

	risk := models.WeatherRisk{Source: "weather-service"}
	prob := firstOf(doc, "rain_probability", "rainProbability")
	if prob.Exists() {
		risk.RainProbability = prob.Float()
	}
	risk.Description = firstOf(doc, "description", "summary").String()

	level := models.RiskLevel(strings.ToUpper(strings.TrimSpace(firstOf(doc, "risk_level", "riskLevel").String())))
	switch {
	case level.Valid():
		risk.Level = level
	case prob.Exists():
		risk.Level = LevelFromRain(risk.RainProbability)
	default:
		return models.WeatherRisk{}, fmt.Errorf("%w: weather response has neither a risk level nor a rain probability", ErrBadPayload)
	}
	return risk, nil
}

// LevelFromRain classifies a rain probability in percent.
func LevelFromRain(pct float64) models.RiskLevel {
	switch {
	case pct >= highRainPct:
		return models.RiskHigh
	case pct >= mediumRainPct:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

func firstOf(doc gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if r := doc.Get(p); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}

// StaticWeather always reports a configured level, marked as a default.
type StaticWeather struct {
	Level models.RiskLevel
}

func (s StaticWeather) Risk(_ context.Context, _, _ float64, _ int) (models.WeatherRisk, error) {
	return models.WeatherRisk{
		Level:       s.Level,
		Description: "no forecast available; using the configured default risk level",
		Source:      "default",
	}, nil
}

// RiskSource is anything that can classify weather risk.
type RiskSource interface {
	Risk(ctx context.Context, lat, lon float64, days int) (models.WeatherRisk, error)
}

// FallbackWeather asks Primary and answers with Default when it fails.
type FallbackWeather struct {
	Primary RiskSource
	Default StaticWeather
}

func (f FallbackWeather) Risk(ctx context.Context, lat, lon float64, days int) (models.WeatherRisk, error) {
	if f.Primary != nil {
		risk, err := f.Primary.Risk(ctx, lat, lon, days)
		if err == nil {
			return risk, nil
		}
		if ctx.Err() != nil {
			return models.WeatherRisk{}, err
		}
		slog.Warn("weather service failed, using default level", "component", "datasource", "level", f.Default.Level, "error", err)
	}
	return f.Default.Risk(ctx, lat, lon, days)
}
