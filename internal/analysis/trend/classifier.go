// Package trend labels a short price history as rising, falling or stable.
package trend

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/seenimoa/mandisense/pkg/models"
	"github.com/seenimoa/mandisense/pkg/utils"
)

// stableBandPct is the absolute percent change below which a series is STABLE.
const stableBandPct = 1.0

// Classify computes the percent change from the first to the last price and
// labels the direction. An empty history fails with models.ErrNotFound.
func Classify(marketName, commodity string, history []float64, asOf time.Time) (*models.TrendResult, error) {
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: no price history for %s at %s", models.ErrNotFound, commodity, marketName)
	}
	for i, p := range history {
		if p < 0 || !utils.IsFinite(p) {
			return nil, fmt.Errorf("%w: price %v at position %d", models.ErrInvalidInput, p, i)
		}
	}

	first, last := history[0], history[len(history)-1]
	if first == 0 {
		return nil, fmt.Errorf("%w: first price is zero", models.ErrInvalidInput)
	}

	pct := (last - first) / first * 100
	dir := direction(pct)

	high, low, sum := math.Inf(-1), math.Inf(1), 0.0
	for _, p := range history {
		high = math.Max(high, p)
		low = math.Min(low, p)
		sum += p
	}

	return &models.TrendResult{
		MarketName:     marketName,
		Commodity:      commodity,
		Direction:      dir,
		PercentChange:  utils.Round(pct, 2),
		FirstPrice:     first,
		LastPrice:      last,
		HighPrice:      high,
		LowPrice:       low,
		AveragePrice:   utils.Round(sum/float64(len(history)), 2),
		Points:         len(history),
		Recommendation: recommendation(dir, marketName, pct, len(history)),
		AsOf:           asOf,
	}, nil
}

func direction(pct float64) models.Direction {
	switch {
	case math.Abs(pct) < stableBandPct:
		return models.DirectionStable
	case pct > 0:
		return models.DirectionRising
	default:
		return models.DirectionFalling
	}
}

func recommendation(dir models.Direction, market string, pct float64, points int) string {
	where := market
	if where == "" {
		where = "this market"
	}
	switch dir {
	case models.DirectionRising:
		return fmt.Sprintf("Prices at %s are rising (%+.1f%% over %d days). Consider waiting 2-3 days for a better rate.", where, pct, points)
	case models.DirectionFalling:
		return fmt.Sprintf("Prices at %s are falling (%+.1f%% over %d days). Sell immediately to avoid further loss.", where, pct, points)
	default:
		return fmt.Sprintf("Prices at %s are stable (%+.1f%% over %d days). No urgency to sell.", where, pct, points)
	}
}

// Prices orders stored history points by day offset and returns their prices.
// Offsets must be distinct.
func Prices(points []models.PriceHistoryPoint) ([]float64, error) {
	sorted := make([]models.PriceHistoryPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DayOffset < sorted[j].DayOffset
	})

	out := make([]float64, len(sorted))
	for i, p := range sorted {
		if i > 0 && p.DayOffset == sorted[i-1].DayOffset {
			return nil, fmt.Errorf("%w: duplicate day offset %d", models.ErrInvalidInput, p.DayOffset)
		}
		out[i] = p.Price
	}
	return out, nil
}
