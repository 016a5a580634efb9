// Package profit builds sell-now and wait scenarios from index forecasts and
// picks the most profitable one the forecasts are confident enough to back.
package profit

import (
	"fmt"
	"strings"
	"time"

	"github.com/seenimoa/mandisense/internal/analysis/forecast"
	"github.com/seenimoa/mandisense/pkg/models"
	"github.com/seenimoa/mandisense/pkg/utils"
)

// Settings are the injected planner rates.
type Settings struct {
	StorageRatePerUnitPerWeek float64
}

// Request is one planning call. Series is the wholesale index history the
// forecasts are fitted to.
type Request struct {
	Commodity    string
	Unit         string
	Quantity     float64
	CurrentPrice float64
	Series       []models.IndexDataPoint
	Weather      models.WeatherRisk
	AsOf         time.Time
}

// Inputs is a planning call with the forecasts already computed.
type Inputs struct {
	Commodity    string
	Unit         string
	Quantity     float64
	CurrentPrice float64
	Forecast7    models.ForecastResult
	Forecast14   models.ForecastResult
	Weather      models.WeatherRisk
	AsOf         time.Time
}

// Plan forecasts the series 7 and 14 days ahead and assembles the scenarios.
func Plan(req Request, s Settings) (*models.PlanResult, error) {
	if err := validate(req.Quantity, req.CurrentPrice, req.Weather, s); err != nil {
		return nil, err
	}
	f7, err := forecast.Forecast(req.Series, 7)
	if err != nil {
		return nil, fmt.Errorf("7-day forecast: %w", err)
	}
	f14, err := forecast.Forecast(req.Series, 14)
	if err != nil {
		return nil, fmt.Errorf("14-day forecast: %w", err)
	}
	return Assemble(Inputs{
		Commodity:    req.Commodity,
		Unit:         req.Unit,
		Quantity:     req.Quantity,
		CurrentPrice: req.CurrentPrice,
		Forecast7:    *f7,
		Forecast14:   *f14,
		Weather:      req.Weather,
		AsOf:         req.AsOf,
	}, s)
}

// Assemble builds the three scenarios in fixed order (sell now, wait 7,
// wait 14) and selects the recommendation.
func Assemble(in Inputs, s Settings) (*models.PlanResult, error) {
	if err := validate(in.Quantity, in.CurrentPrice, in.Weather, s); err != nil {
		return nil, err
	}

	now := models.ScenarioResult{
		Action:       models.ActionSellNow,
		Label:        "Sell now",
		PricePerUnit: in.CurrentPrice,
		Revenue:      utils.MulRound(in.CurrentPrice, in.Quantity, 2),
		Risk:         "None",
		Confidence:   models.ConfidenceCertain,
	}
	now.NetProfit = now.Revenue

	scenarios := []models.ScenarioResult{
		now,
		wait(models.ActionWait7, "Wait 7 days", 7, in.Forecast7, in, s, now.NetProfit),
		wait(models.ActionWait14, "Wait 14 days", 14, in.Forecast14, in, s, now.NetProfit),
	}

	best, excluded := selectScenario(scenarios)

	return &models.PlanResult{
		Commodity:    in.Commodity,
		Unit:         in.Unit,
		Quantity:     in.Quantity,
		CurrentPrice: in.CurrentPrice,
		Scenarios:    scenarios,
		Recommendation: models.PlanRecommendation{
			Action:     best.Action,
			Label:      best.Label,
			NetProfit:  best.NetProfit,
			Confidence: best.Confidence,
			Reason:     reason(best, excluded, in.Unit),
		},
		Excluded:   excluded,
		Forecast7:  in.Forecast7,
		Forecast14: in.Forecast14,
		Weather:    in.Weather,
		AsOf:       in.AsOf,
	}, nil
}

func wait(action models.ScenarioAction, label string, days int, f models.ForecastResult, in Inputs, s Settings, nowNet float64) models.ScenarioResult {
	price := ProjectedPrice(in.CurrentPrice, f.PercentChange)
	revenue := utils.MulRound(price, in.Quantity, 2)
	cost := StorageCost(s.StorageRatePerUnitPerWeek, days, in.Quantity)
	net := utils.Round(revenue-cost, 2)

	risk := weatherRiskText(in.Weather)
	if days > 7 {
		risk += "; longer market uncertainty"
	}

	return models.ScenarioResult{
		Action:       action,
		Label:        label,
		HorizonDays:  days,
		PricePerUnit: price,
		Revenue:      revenue,
		StorageCost:  cost,
		NetProfit:    net,
		ProfitVsNow:  utils.Round(net-nowNet, 2),
		Risk:         risk,
		Confidence:   f.Confidence,
	}
}

// selectScenario drops LOW-confidence scenarios and returns the first one
// with the greatest net profit, plus the actions it dropped.
func selectScenario(scenarios []models.ScenarioResult) (models.ScenarioResult, []models.ScenarioAction) {
	var (
		best     models.ScenarioResult
		found    bool
		excluded []models.ScenarioAction
	)
	for _, sc := range scenarios {
		if sc.Confidence == models.ConfidenceLow {
			excluded = append(excluded, sc.Action)
			continue
		}
		if !found || sc.NetProfit > best.NetProfit {
			best, found = sc, true
		}
	}
	return best, excluded
}

func weatherRiskText(w models.WeatherRisk) string {
	var text string
	switch w.Level {
	case models.RiskHigh:
		text = "High weather risk during storage"
	case models.RiskMedium:
		text = "Moderate weather risk during storage"
	default:
		text = "Low weather risk during storage"
	}
	if w.RainProbability > 0 {
		text += fmt.Sprintf(" (%.0f%% chance of rain)", w.RainProbability)
	}
	return text
}

func reason(best models.ScenarioResult, excluded []models.ScenarioAction, unit string) string {
	if unit == "" {
		unit = "unit"
	}
	var b strings.Builder
	if best.Action == models.ActionSellNow {
		fmt.Fprintf(&b, "Sell now at %s/%s for %s with no storage cost or forecast risk.",
			utils.FormatINR(best.PricePerUnit), unit, utils.FormatINR(best.NetProfit))
	} else {
		fmt.Fprintf(&b, "%s: forecast price %s/%s nets %s after %s storage, %s more than selling now (%s confidence).",
			best.Label, utils.FormatINR(best.PricePerUnit), unit,
			utils.FormatINR(best.NetProfit), utils.FormatINR(best.StorageCost),
			utils.FormatINR(best.ProfitVsNow), best.Confidence)
	}
	if len(excluded) > 0 {
		names := make([]string, len(excluded))
		for i, a := range excluded {
			names[i] = string(a)
		}
		fmt.Fprintf(&b, " Not considered due to low forecast confidence: %s.", strings.Join(names, ", "))
	}
	return b.String()
}

func validate(quantity, price float64, w models.WeatherRisk, s Settings) error {
	switch {
	case !utils.IsFinite(quantity) || quantity <= 0:
		return fmt.Errorf("%w: quantity must be positive, got %v", models.ErrInvalidInput, quantity)
	case !utils.IsFinite(price) || price < 0:
		return fmt.Errorf("%w: current price must be non-negative, got %v", models.ErrInvalidInput, price)
	case !utils.IsFinite(s.StorageRatePerUnitPerWeek) || s.StorageRatePerUnitPerWeek < 0:
		return fmt.Errorf("%w: storage rate must be non-negative", models.ErrInvalidInput)
	case !w.Level.Valid():
		return fmt.Errorf("%w: unknown weather risk level %q", models.ErrInvalidInput, w.Level)
	}
	return nil
}
