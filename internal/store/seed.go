// Package store holds the reference catalog the advisor reads (commodities,
// markets, quotes, price history, index series) and records plan outcomes.
package store

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/seenimoa/mandisense/pkg/models"
	"github.com/seenimoa/mandisense/pkg/utils"
)

// Seed is the YAML document reference data is loaded from.
type Seed struct {
	Commodities  []models.Commodity      `yaml:"commodities"`
	Markets      []models.MarketLocation `yaml:"markets"`
	Quotes       []models.MarketQuote    `yaml:"quotes"`
	PriceHistory []HistorySeries         `yaml:"price_history"`
	IndexSeries  []IndexSeries           `yaml:"index_series"`
}

// HistorySeries is a market's short price window, oldest first.
type HistorySeries struct {
	MarketID  string    `yaml:"market_id"`
	Commodity string    `yaml:"commodity"`
	Prices    []float64 `yaml:"prices"`
}

// IndexSeries is a daily wholesale index starting at Start (YYYY-MM-DD).
type IndexSeries struct {
	Commodity string    `yaml:"commodity"`
	Start     string    `yaml:"start"`
	Values    []float64 `yaml:"values"`
}

// LoadSeed reads and validates a seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	seed, err := ParseSeed(data)
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", path, err)
	}
	return seed, nil
}

// ParseSeed decodes a seed document. Unknown keys are rejected.
func ParseSeed(data []byte) (*Seed, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var seed Seed
	if err := dec.Decode(&seed); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	seed.normalize()
	if err := seed.Validate(); err != nil {
		return nil, err
	}
	return &seed, nil
}

func (s *Seed) normalize() {
	for i := range s.Commodities {
		s.Commodities[i].Name = utils.NormalizeCommodity(s.Commodities[i].Name)
	}
	for i := range s.Quotes {
		s.Quotes[i].Commodity = utils.NormalizeCommodity(s.Quotes[i].Commodity)
	}
	for i := range s.PriceHistory {
		s.PriceHistory[i].Commodity = utils.NormalizeCommodity(s.PriceHistory[i].Commodity)
	}
	for i := range s.IndexSeries {
		s.IndexSeries[i].Commodity = utils.NormalizeCommodity(s.IndexSeries[i].Commodity)
	}
}

// Validate checks the reference-data invariants.
func (s *Seed) Validate() error {
	commodities := make(map[string]bool, len(s.Commodities))
	for _, c := range s.Commodities {
		if c.Name == "" {
			return fmt.Errorf("%w: commodity without a name", models.ErrInvalidInput)
		}
		if commodities[c.Name] {
			return fmt.Errorf("%w: duplicate commodity %q", models.ErrInvalidInput, c.Name)
		}
		if c.SupportPrice < 0 {
			return fmt.Errorf("%w: negative support price for %q", models.ErrInvalidInput, c.Name)
		}
		commodities[c.Name] = true
	}

	markets := make(map[string]bool, len(s.Markets))
	for _, m := range s.Markets {
		if m.ID == "" {
			return fmt.Errorf("%w: market %q without an id", models.ErrInvalidInput, m.Name)
		}
		if markets[m.ID] {
			return fmt.Errorf("%w: duplicate market id %q", models.ErrInvalidInput, m.ID)
		}
		if m.Latitude < -90 || m.Latitude > 90 || m.Longitude < -180 || m.Longitude > 180 {
			return fmt.Errorf("%w: market %q coordinates out of range", models.ErrInvalidInput, m.ID)
		}
		markets[m.ID] = true
	}

	quoted := make(map[string]bool, len(s.Quotes))
	for _, q := range s.Quotes {
		if !markets[q.MarketID] {
			return fmt.Errorf("%w: quote for unknown market %q", models.ErrInvalidInput, q.MarketID)
		}
		key := q.MarketID + "|" + q.Commodity
		if quoted[key] {
			return fmt.Errorf("%w: duplicate quote for %s at %s", models.ErrInvalidInput, q.Commodity, q.MarketID)
		}
		if q.CurrentPrice < 0 {
			return fmt.Errorf("%w: negative quote for %s at %s", models.ErrInvalidInput, q.Commodity, q.MarketID)
		}
		quoted[key] = true
	}

	for _, h := range s.PriceHistory {
		if !markets[h.MarketID] {
			return fmt.Errorf("%w: price history for unknown market %q", models.ErrInvalidInput, h.MarketID)
		}
		if len(h.Prices) != models.TrendWindow {
			return fmt.Errorf("%w: %s history at %s has %d points, want %d",
				models.ErrInvalidInput, h.Commodity, h.MarketID, len(h.Prices), models.TrendWindow)
		}
		for _, p := range h.Prices {
			if p < 0 {
				return fmt.Errorf("%w: negative historical price for %s at %s", models.ErrInvalidInput, h.Commodity, h.MarketID)
			}
		}
	}

	for _, ix := range s.IndexSeries {
		if _, err := utils.ParseDateIST(ix.Start); err != nil {
			return fmt.Errorf("%w: index series %q start %q", models.ErrInvalidInput, ix.Commodity, ix.Start)
		}
	}
	return nil
}

// HistoryPoints expands the price windows into day-offset points.
func (s *Seed) HistoryPoints() []models.PriceHistoryPoint {
	var out []models.PriceHistoryPoint
	for _, h := range s.PriceHistory {
		for i, p := range h.Prices {
			out = append(out, models.PriceHistoryPoint{
				MarketID:  h.MarketID,
				Commodity: h.Commodity,
				DayOffset: i,
				Price:     p,
			})
		}
	}
	return out
}

// IndexPoints returns the dated points of every index series by commodity.
func (s *Seed) IndexPoints() map[string][]models.IndexDataPoint {
	out := make(map[string][]models.IndexDataPoint, len(s.IndexSeries))
	for _, ix := range s.IndexSeries {
		start, err := utils.ParseDateIST(ix.Start)
		if err != nil {
			continue
		}
		for i, v := range ix.Values {
			out[ix.Commodity] = append(out[ix.Commodity], models.IndexDataPoint{
				Date:  start.AddDate(0, 0, i),
				Value: v,
			})
		}
	}
	for k := range out {
		sortPoints(out[k])
	}
	return out
}

func sortPoints(points []models.IndexDataPoint) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
}

// latest returns up to days ascending points dated on or before to.
// A zero to keeps every point.
func latest(points []models.IndexDataPoint, to time.Time, days int) []models.IndexDataPoint {
	end := len(points)
	if !to.IsZero() {
		cutoff := utils.StartOfDayIST(to).AddDate(0, 0, 1)
		end = sort.Search(len(points), func(i int) bool {
			return !points[i].Date.Before(cutoff)
		})
	}
	start := 0
	if days > 0 && end-days > 0 {
		start = end - days
	}
	out := make([]models.IndexDataPoint, end-start)
	copy(out, points[start:end])
	return out
}
