// Package forecast projects a slow-moving wholesale index forward with a
// least-squares line and grades the projection by the series' variance.
package forecast

import (
	"fmt"
	"time"

	"github.com/seenimoa/mandisense/pkg/models"
	"github.com/seenimoa/mandisense/pkg/utils"
)

// MinPoints is the shortest series Forecast accepts.
const MinPoints = 7

// Variance thresholds for the confidence label. They assume index-like
// volatility and do not carry over to raw spot prices.
const (
	highConfidenceVariance   = 5.0
	mediumConfidenceVariance = 15.0
)

const directionBandPct = 1.0

// Forecast fits the series (ascending by date, treated as equally spaced)
// and projects daysAhead steps past the last point.
func Forecast(series []models.IndexDataPoint, daysAhead int) (*models.ForecastResult, error) {
	if len(series) < MinPoints {
		return nil, fmt.Errorf("%w: %d index points, need at least %d", models.ErrInsufficientData, len(series), MinPoints)
	}
	if daysAhead < 1 {
		return nil, fmt.Errorf("%w: days_ahead must be positive, got %d", models.ErrInvalidInput, daysAhead)
	}

	ys := make([]float64, len(series))
	for i, p := range series {
		if !utils.IsFinite(p.Value) {
			return nil, fmt.Errorf("%w: index value at position %d is not a number", models.ErrInvalidInput, i)
		}
		if i > 0 && !p.Date.IsZero() && !series[i-1].Date.IsZero() && p.Date.Before(series[i-1].Date) {
			return nil, fmt.Errorf("%w: index series not ascending at %s", models.ErrInvalidInput, utils.FormatDateIST(p.Date))
		}
		ys[i] = p.Value
	}

	current := ys[len(ys)-1]
	if current == 0 {
		return nil, fmt.Errorf("%w: current index value is zero", models.ErrInvalidInput)
	}

	slope, intercept := linearFit(ys)
	predicted := slope*float64(len(ys)-1+daysAhead) + intercept
	pct := utils.Round((predicted-current)/current*100, 2)
	variance := populationVariance(ys)

	var target time.Time
	if last := series[len(series)-1].Date; !last.IsZero() {
		target = last.AddDate(0, 0, daysAhead)
	}

	return &models.ForecastResult{
		CurrentValue:   current,
		PredictedValue: utils.Round(predicted, 1),
		PercentChange:  pct,
		Confidence:     confidence(variance),
		Direction:      direction(pct),
		Variance:       utils.Round(variance, 2),
		Slope:          utils.Round(slope, 4),
		Intercept:      utils.Round(intercept, 4),
		Points:         len(ys),
		DaysAhead:      daysAhead,
		TargetDate:     target,
	}, nil
}

func confidence(variance float64) models.Confidence {
	switch {
	case variance < highConfidenceVariance:
		return models.ConfidenceHigh
	case variance < mediumConfidenceVariance:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

func direction(pct float64) models.Direction {
	switch {
	case pct > directionBandPct:
		return models.DirectionRising
	case pct < -directionBandPct:
		return models.DirectionFalling
	default:
		return models.DirectionStable
	}
}
