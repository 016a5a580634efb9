package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/seenimoa/mandisense/pkg/models"
	"github.com/seenimoa/mandisense/pkg/utils"
)

// Memory is an in-memory catalog that preserves seed order.
type Memory struct {
	mu          sync.RWMutex
	commodities []models.Commodity
	markets     []models.MarketLocation
	quotes      []models.MarketQuote
	history     []models.PriceHistoryPoint
	index       map[string][]models.IndexDataPoint
}

// NewMemory builds a catalog from a validated seed. A nil seed gives an
// empty catalog.
func NewMemory(seed *Seed) (*Memory, error) {
	m := &Memory{index: make(map[string][]models.IndexDataPoint)}
	if seed == nil {
		return m, nil
	}
	if err := seed.Validate(); err != nil {
		return nil, err
	}
	m.commodities = append(m.commodities, seed.Commodities...)
	m.markets = append(m.markets, seed.Markets...)
	m.quotes = append(m.quotes, seed.Quotes...)
	m.history = seed.HistoryPoints()
	m.index = seed.IndexPoints()
	return m, nil
}

// SetQuote inserts or replaces a live quote. New pairs go to the end.
func (m *Memory) SetQuote(q models.MarketQuote) {
	q.Commodity = utils.NormalizeCommodity(q.Commodity)
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.quotes {
		if m.quotes[i].MarketID == q.MarketID && m.quotes[i].Commodity == q.Commodity {
			m.quotes[i].CurrentPrice = q.CurrentPrice
			return
		}
	}
	m.quotes = append(m.quotes, q)
}

func (m *Memory) Commodities(_ context.Context) ([]models.Commodity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Commodity(nil), m.commodities...), nil
}

func (m *Memory) Commodity(_ context.Context, name string) (models.Commodity, error) {
	key := utils.NormalizeCommodity(name)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.commodities {
		if c.Name == key {
			return c, nil
		}
	}
	return models.Commodity{}, fmt.Errorf("%w: commodity %q", models.ErrNotFound, name)
}

func (m *Memory) Markets(_ context.Context) ([]models.MarketLocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.MarketLocation(nil), m.markets...), nil
}

func (m *Memory) Quotes(_ context.Context, commodity string) ([]models.MarketQuote, error) {
	key := utils.NormalizeCommodity(commodity)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.MarketQuote
	for _, q := range m.quotes {
		if q.Commodity == key {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *Memory) PriceHistory(_ context.Context, marketID, commodity string) ([]models.PriceHistoryPoint, error) {
	key := utils.NormalizeCommodity(commodity)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.PriceHistoryPoint
	for _, p := range m.history {
		if p.MarketID == marketID && p.Commodity == key {
			out = append(out, p)
		}
	}
	return out, nil
}

// Series returns up to days index points on or before to.
func (m *Memory) Series(_ context.Context, commodity string, to time.Time, days int) ([]models.IndexDataPoint, error) {
	key := utils.NormalizeCommodity(commodity)
	m.mu.RLock()
	defer m.mu.RUnlock()
	return latest(m.index[key], to, days), nil
}
