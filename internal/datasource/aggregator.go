package datasource

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/mandisense/pkg/models"
)

// SeriesSource is anything that can supply a wholesale index series.
type SeriesSource interface {
	Series(ctx context.Context, commodity string, to time.Time, days int) ([]models.IndexDataPoint, error)
}

// Aggregator fetches the inputs of a planning call concurrently.
type Aggregator struct {
	index        SeriesSource
	weather      RiskSource
	lookbackDays int
}

// NewAggregator wires the collaborators. Either source may be nil; asking
// for its data then fails with ErrNotConfigured.
func NewAggregator(index SeriesSource, weather RiskSource, lookbackDays int) *Aggregator {
	if lookbackDays <= 0 {
		lookbackDays = 90
	}
	return &Aggregator{index: index, weather: weather, lookbackDays: lookbackDays}
}

// PlanInputsRequest says which inputs are missing.
type PlanInputsRequest struct {
	Commodity   string
	Latitude    float64
	Longitude   float64
	AsOf        time.Time
	HorizonDays int
	NeedSeries  bool
	NeedWeather bool
}

// PlanInputs holds whatever was fetched.
type PlanInputs struct {
	Series  []models.IndexDataPoint
	Weather models.WeatherRisk
}

// LookbackDays is the series length requested from the index source.
func (a *Aggregator) LookbackDays() int { return a.lookbackDays }

// FetchPlanInputs runs the requested fetches concurrently and returns both
// results or the first error.
func (a *Aggregator) FetchPlanInputs(ctx context.Context, req PlanInputsRequest) (*PlanInputs, error) {
	out := &PlanInputs{}
	g, gctx := errgroup.WithContext(ctx)

	if req.NeedSeries {
		if a.index == nil {
			return nil, fmt.Errorf("index series: %w", ErrNotConfigured)
		}
		g.Go(func() error {
			series, err := a.index.Series(gctx, req.Commodity, req.AsOf, a.lookbackDays)
			if err != nil {
				return err
			}
			out.Series = series
			return nil
		})
	}

	if req.NeedWeather {
		if a.weather == nil {
			return nil, fmt.Errorf("weather risk: %w", ErrNotConfigured)
		}
		g.Go(func() error {
			risk, err := a.weather.Risk(gctx, req.Latitude, req.Longitude, req.HorizonDays)
			if err != nil {
				return err
			}
			out.Weather = risk
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
