// Package advisor is the service layer of MandiSense. It resolves reference
// data and external inputs, then hands explicit values to the pure analysis
// packages.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/seenimoa/mandisense/internal/analysis/forecast"
	"github.com/seenimoa/mandisense/internal/analysis/geo"
	"github.com/seenimoa/mandisense/internal/analysis/market"
	"github.com/seenimoa/mandisense/internal/analysis/profit"
	"github.com/seenimoa/mandisense/internal/analysis/trend"
	"github.com/seenimoa/mandisense/internal/datasource"
	"github.com/seenimoa/mandisense/pkg/models"
	"github.com/seenimoa/mandisense/pkg/utils"
)

// WeatherHorizonDays is the window the weather risk is requested for.
const WeatherHorizonDays = 14

// Catalog is the reference data the advisor reads.
type Catalog interface {
	Commodities(ctx context.Context) ([]models.Commodity, error)
	Commodity(ctx context.Context, name string) (models.Commodity, error)
	Markets(ctx context.Context) ([]models.MarketLocation, error)
	Quotes(ctx context.Context, commodity string) ([]models.MarketQuote, error)
	PriceHistory(ctx context.Context, marketID, commodity string) ([]models.PriceHistoryPoint, error)
}

// IndexSource supplies wholesale index series.
type IndexSource interface {
	Series(ctx context.Context, commodity string, to time.Time, days int) ([]models.IndexDataPoint, error)
}

// WeatherSource supplies weather risk for a location.
type WeatherSource interface {
	Risk(ctx context.Context, lat, lon float64, days int) (models.WeatherRisk, error)
}

// Recorder persists plan and digest outcomes.
type Recorder interface {
	RecordPlan(ctx context.Context, plan *models.PlanResult) (string, error)
	RecordDigest(ctx context.Context, entries []models.DigestEntry) error
	RecentPlans(ctx context.Context, limit int) ([]models.PlanRecord, error)
}

// Settings are the engine rates copied from configuration.
type Settings struct {
	TransportRatePerKm        float64
	StorageRatePerUnitPerWeek float64
	DistanceModel             string
	LookbackDays              int
}

// Advisor answers comparison, trend, forecast and planning requests.
type Advisor struct {
	settings Settings
	distance geo.DistanceFunc
	catalog  Catalog
	inputs   *datasource.Aggregator
	recorder Recorder
	log      *slog.Logger
}

// New wires an Advisor. index and weather may be nil; requests that need
// them must then carry the data themselves. A nil recorder records nothing.
func New(settings Settings, catalog Catalog, index IndexSource, weather WeatherSource, rec Recorder) (*Advisor, error) {
	if catalog == nil {
		return nil, errors.New("advisor: catalog is required")
	}
	distance, err := geo.ModelByName(settings.DistanceModel)
	if err != nil {
		return nil, fmt.Errorf("advisor: %w", err)
	}
	if settings.DistanceModel == "" {
		settings.DistanceModel = geo.ModelPlanar
	}
	settings.DistanceModel = strings.ToLower(settings.DistanceModel)

	return &Advisor{
		settings: settings,
		distance: distance,
		catalog:  catalog,
		inputs:   datasource.NewAggregator(index, weather, settings.LookbackDays),
		recorder: rec,
		log:      slog.Default().With("component", "advisor"),
	}, nil
}

// Settings returns the engine settings in use.
func (a *Advisor) Settings() Settings { return a.settings }

// Commodities lists the reference commodities.
func (a *Advisor) Commodities(ctx context.Context) ([]models.Commodity, error) {
	return a.catalog.Commodities(ctx)
}

// Markets lists the reference markets.
func (a *Advisor) Markets(ctx context.Context) ([]models.MarketLocation, error) {
	return a.catalog.Markets(ctx)
}

// RecentPlans lists recorded plans, newest first.
func (a *Advisor) RecentPlans(ctx context.Context, limit int) ([]models.PlanRecord, error) {
	if a.recorder == nil {
		return nil, nil
	}
	return a.recorder.RecentPlans(ctx, limit)
}

// RecordDigest stores digest entries through the recorder.
func (a *Advisor) RecordDigest(ctx context.Context, entries []models.DigestEntry) error {
	if a.recorder == nil {
		return nil
	}
	return a.recorder.RecordDigest(ctx, entries)
}

// ── Compare ──

// CompareRequest asks for markets ranked by net price.
type CompareRequest struct {
	Commodity string
	Latitude  float64
	Longitude float64
	RadiusKm  float64 // 0 means unbounded
	AsOf      time.Time
}

// CompareMarkets ranks every market quoting the commodity.
func (a *Advisor) CompareMarkets(ctx context.Context, req CompareRequest) (*models.MarketComparison, error) {
	commodity, err := a.catalog.Commodity(ctx, req.Commodity)
	if err != nil {
		return nil, err
	}
	markets, err := a.catalog.Markets(ctx)
	if err != nil {
		return nil, fmt.Errorf("load markets: %w", err)
	}
	quotes, err := a.catalog.Quotes(ctx, commodity.Name)
	if err != nil {
		return nil, fmt.Errorf("load quotes: %w", err)
	}

	res, err := market.Compare(&market.Book{
		Commodities: []models.Commodity{commodity},
		Markets:     markets,
		Quotes:      quotes,
	}, market.Request{
		Commodity: commodity.Name,
		Seller:    models.GeoPoint{Latitude: req.Latitude, Longitude: req.Longitude},
		RadiusKm:  req.RadiusKm,
		AsOf:      req.AsOf,
	}, market.Options{
		RatePerKm:     a.settings.TransportRatePerKm,
		Distance:      a.distance,
		DistanceModel: a.settings.DistanceModel,
	})
	if err != nil {
		return nil, err
	}

	a.log.Info("markets compared",
		"commodity", res.Commodity,
		"markets", len(res.Markets),
		"best_market_id", res.BestMarket.MarketID,
		"net_price", res.BestMarket.NetPrice,
		"below_support", res.BelowSupport)
	return res, nil
}

// ── Trend ──

// TrendRequest classifies a market's short price history. When History is
// empty the stored window for MarketID (or MarketName) is used.
type TrendRequest struct {
	MarketID   string
	MarketName string
	Commodity  string
	History    []float64
	AsOf       time.Time
}

// ClassifyTrend labels the price direction over the window.
func (a *Advisor) ClassifyTrend(ctx context.Context, req TrendRequest) (*models.TrendResult, error) {
	commodity := utils.NormalizeCommodity(req.Commodity)
	if commodity == "" {
		return nil, fmt.Errorf("%w: commodity is required", models.ErrInvalidInput)
	}

	history, name := req.History, req.MarketName
	switch {
	case len(history) == 0:
		loc, err := a.findMarket(ctx, req.MarketID, req.MarketName)
		if err != nil {
			return nil, err
		}
		name = loc.Name
		points, err := a.catalog.PriceHistory(ctx, loc.ID, commodity)
		if err != nil {
			return nil, fmt.Errorf("load price history: %w", err)
		}
		if history, err = trend.Prices(points); err != nil {
			return nil, err
		}
	case name == "" && req.MarketID != "":
		name = req.MarketID
		if loc, err := a.findMarket(ctx, req.MarketID, ""); err == nil {
			name = loc.Name
		}
	}

	res, err := trend.Classify(name, commodity, history, req.AsOf)
	if err != nil {
		return nil, err
	}
	a.log.Info("trend classified", "commodity", commodity, "market", name,
		"direction", res.Direction, "percent_change", res.PercentChange)
	return res, nil
}

func (a *Advisor) findMarket(ctx context.Context, id, name string) (models.MarketLocation, error) {
	if id == "" && name == "" {
		return models.MarketLocation{}, fmt.Errorf("%w: market_id or market_name is required", models.ErrInvalidInput)
	}
	markets, err := a.catalog.Markets(ctx)
	if err != nil {
		return models.MarketLocation{}, fmt.Errorf("load markets: %w", err)
	}
	for _, m := range markets {
		if (id != "" && strings.EqualFold(m.ID, id)) || (id == "" && strings.EqualFold(m.Name, name)) {
			return m, nil
		}
	}
	return models.MarketLocation{}, fmt.Errorf("%w: market %q", models.ErrNotFound, firstNonEmpty(id, name))
}

// ── Forecast ──

// ForecastRequest projects a wholesale index. When Series is empty the
// index source is queried for Commodity.
type ForecastRequest struct {
	Commodity string
	Series    []models.IndexDataPoint
	DaysAhead int
	AsOf      time.Time
}

// ForecastIndex fits the series and projects DaysAhead (7, 14 or 30) days.
func (a *Advisor) ForecastIndex(ctx context.Context, req ForecastRequest) (*models.ForecastResult, error) {
	switch req.DaysAhead {
	case 7, 14, 30:
	default:
		return nil, fmt.Errorf("%w: days_ahead must be 7, 14 or 30, got %d", models.ErrInvalidInput, req.DaysAhead)
	}

	series := req.Series
	if len(series) == 0 {
		commodity := utils.NormalizeCommodity(req.Commodity)
		if commodity == "" {
			return nil, fmt.Errorf("%w: series or commodity is required", models.ErrInvalidInput)
		}
		in, err := a.inputs.FetchPlanInputs(ctx, datasource.PlanInputsRequest{
			Commodity:  commodity,
			AsOf:       req.AsOf,
			NeedSeries: true,
		})
		if err != nil {
			return nil, a.inputError(err)
		}
		series = in.Series
	}

	res, err := forecast.Forecast(series, req.DaysAhead)
	if err != nil {
		return nil, err
	}
	a.log.Info("index forecast", "commodity", req.Commodity, "days_ahead", req.DaysAhead,
		"predicted", res.PredictedValue, "confidence", res.Confidence)
	return res, nil
}

// ── Plan ──

// PlanRequest builds sell-timing scenarios. Series and WeatherRisk are
// fetched when absent; the weather lookup needs the seller's location.
type PlanRequest struct {
	Commodity    string
	Quantity     float64
	CurrentPrice float64
	Series       []models.IndexDataPoint
	WeatherRisk  *models.WeatherRisk
	Latitude     float64
	Longitude    float64
	AsOf         time.Time
}

// PlanProfitScenarios compares selling now with waiting 7 or 14 days and
// records the outcome.
func (a *Advisor) PlanProfitScenarios(ctx context.Context, req PlanRequest) (*models.PlanResult, error) {
	commodity := utils.NormalizeCommodity(req.Commodity)
	if commodity == "" {
		return nil, fmt.Errorf("%w: commodity is required", models.ErrInvalidInput)
	}
	if !utils.IsFinite(req.Quantity) || req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %v", models.ErrInvalidInput, req.Quantity)
	}
	if !utils.IsFinite(req.CurrentPrice) || req.CurrentPrice < 0 {
		return nil, fmt.Errorf("%w: current_price must be non-negative, got %v", models.ErrInvalidInput, req.CurrentPrice)
	}

	var unit string
	switch c, err := a.catalog.Commodity(ctx, commodity); {
	case err == nil:
		unit = c.Unit
	case !errors.Is(err, models.ErrNotFound):
		return nil, err
	}

	needWeather := req.WeatherRisk == nil
	if needWeather && req.Latitude == 0 && req.Longitude == 0 {
		return nil, fmt.Errorf("%w: weather_risk or a location is required", models.ErrInvalidInput)
	}

	series := req.Series
	var weather models.WeatherRisk
	if req.WeatherRisk != nil {
		weather = *req.WeatherRisk
		weather.Level = models.RiskLevel(strings.ToUpper(string(weather.Level)))
		if weather.Source == "" {
			weather.Source = "request"
		}
	}

	if len(series) == 0 || needWeather {
		in, err := a.inputs.FetchPlanInputs(ctx, datasource.PlanInputsRequest{
			Commodity:   commodity,
			Latitude:    req.Latitude,
			Longitude:   req.Longitude,
			AsOf:        req.AsOf,
			HorizonDays: WeatherHorizonDays,
			NeedSeries:  len(series) == 0,
			NeedWeather: needWeather,
		})
		if err != nil {
			return nil, a.inputError(err)
		}
		if len(series) == 0 {
			series = in.Series
		}
		if needWeather {
			weather = in.Weather
		}
	}

	plan, err := profit.Plan(profit.Request{
		Commodity:    commodity,
		Unit:         unit,
		Quantity:     req.Quantity,
		CurrentPrice: req.CurrentPrice,
		Series:       series,
		Weather:      weather,
		AsOf:         req.AsOf,
	}, profit.Settings{StorageRatePerUnitPerWeek: a.settings.StorageRatePerUnitPerWeek})
	if err != nil {
		return nil, err
	}

	if a.recorder != nil {
		id, err := a.recorder.RecordPlan(ctx, plan)
		if err != nil {
			a.log.Warn("plan not recorded", "commodity", commodity, "error", err)
		}
		plan.ID = id
	}

	a.log.Info("plan built", "commodity", commodity, "quantity", req.Quantity,
		"action", plan.Recommendation.Action, "net_profit", plan.Recommendation.NetProfit,
		"weather", plan.Weather.Level, "weather_source", plan.Weather.Source)
	return plan, nil
}

// inputError maps a collaborator failure to the error taxonomy. A missing
// collaborator is the caller's problem; transport failures stay internal.
func (a *Advisor) inputError(err error) error {
	if errors.Is(err, datasource.ErrNotConfigured) {
		return fmt.Errorf("%w: %v; supply the data in the request", models.ErrInvalidInput, err)
	}
	a.log.Error("collaborator fetch failed", "error", err)
	return fmt.Errorf("fetch inputs: %w", err)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
