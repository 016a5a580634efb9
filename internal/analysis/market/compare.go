// Package market ranks delivery markets for a commodity by the price a
// seller actually keeps once transport is paid.
package market

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/seenimoa/mandisense/internal/analysis/geo"
	"github.com/seenimoa/mandisense/pkg/models"
	"github.com/seenimoa/mandisense/pkg/utils"
)

// Book is the already-fetched reference data a comparison reads.
// Quote order is the tie-break order for equal net prices.
type Book struct {
	Commodities []models.Commodity
	Markets     []models.MarketLocation
	Quotes      []models.MarketQuote
}

// Options carries the injected comparison settings.
type Options struct {
	RatePerKm     float64
	Distance      geo.DistanceFunc // nil selects geo.Planar
	DistanceModel string           // reported on the result
}

// Request identifies the commodity and the seller's position.
type Request struct {
	Commodity string
	Seller    models.GeoPoint
	RadiusKm  float64 // 0 means unbounded
	AsOf      time.Time
}

// Compare ranks every market quoting the commodity by net price.
//
// It fails with models.ErrNotFound when the commodity has no support price,
// when no market quotes it, or when the radius filter leaves no candidate.
func Compare(book *Book, req Request, opts Options) (*models.MarketComparison, error) {
	if err := validate(req, opts); err != nil {
		return nil, err
	}
	if book == nil {
		book = &Book{}
	}

	commodity, ok := findCommodity(book.Commodities, req.Commodity)
	if !ok {
		return nil, fmt.Errorf("%w: no support price for commodity %q", models.ErrNotFound, req.Commodity)
	}

	distance := opts.Distance
	if distance == nil {
		distance = geo.Planar
	}
	modelName := opts.DistanceModel
	if modelName == "" {
		modelName = geo.ModelPlanar
	}

	candidates, err := quotedMarkets(book, commodity.Name)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no market quotes for %s", models.ErrNotFound, commodity.Name)
	}

	spread, spreadPct := priceSpread(candidates)

	ranked := make([]models.RankedMarket, 0, len(candidates))
	for _, c := range candidates {
		dist := utils.Round(distance(req.Seller.Latitude, req.Seller.Longitude, c.market.Latitude, c.market.Longitude), 2)
		if req.RadiusKm > 0 && dist > req.RadiusKm {
			continue
		}
		cost := utils.Round(geo.TransportCost(dist, opts.RatePerKm), 2)
		net := utils.Round(c.price-cost, 2)

		ranked = append(ranked, models.RankedMarket{
			MarketID:      c.market.ID,
			Name:          c.market.Name,
			District:      c.market.District,
			State:         c.market.State,
			Latitude:      c.market.Latitude,
			Longitude:     c.market.Longitude,
			Price:         c.price,
			DistanceKm:    dist,
			TransportCost: cost,
			NetPrice:      net,
			AboveSupport:  net >= commodity.SupportPrice,
		})
	}
	if len(ranked) == 0 {
		return nil, fmt.Errorf("%w: no %s market within %.1f km", models.ErrNotFound, commodity.Name, req.RadiusKm)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].NetPrice > ranked[j].NetPrice
	})

	best := ranked[0]
	return &models.MarketComparison{
		Commodity:      commodity.Name,
		Unit:           commodity.Unit,
		SupportPrice:   commodity.SupportPrice,
		Markets:        ranked,
		BestMarket:     best,
		BelowSupport:   !best.AboveSupport,
		Recommendation: recommend(commodity, best),
		PriceSpread:    spread,
		SpreadPercent:  spreadPct,
		QuoteCount:     len(candidates),
		RadiusKm:       req.RadiusKm,
		DistanceModel:  modelName,
		AsOf:           req.AsOf,
	}, nil
}

func validate(req Request, opts Options) error {
	switch {
	case req.RadiusKm < 0 || !utils.IsFinite(req.RadiusKm):
		return fmt.Errorf("%w: radius_km must be a non-negative number", models.ErrInvalidInput)
	case opts.RatePerKm < 0 || !utils.IsFinite(opts.RatePerKm):
		return fmt.Errorf("%w: transport rate must be non-negative", models.ErrInvalidInput)
	case !utils.IsFinite(req.Seller.Latitude) || math.Abs(req.Seller.Latitude) > 90:
		return fmt.Errorf("%w: latitude %v out of range", models.ErrInvalidInput, req.Seller.Latitude)
	case !utils.IsFinite(req.Seller.Longitude) || math.Abs(req.Seller.Longitude) > 180:
		return fmt.Errorf("%w: longitude %v out of range", models.ErrInvalidInput, req.Seller.Longitude)
	}
	return nil
}

func findCommodity(list []models.Commodity, name string) (models.Commodity, bool) {
	key := utils.NormalizeCommodity(name)
	for _, c := range list {
		if utils.NormalizeCommodity(c.Name) == key {
			return c, true
		}
	}
	return models.Commodity{}, false
}

type candidate struct {
	market models.MarketLocation
	price  float64
}

// quotedMarkets joins quotes with their market locations in quote order.
// Quotes for unknown markets are skipped; a repeated (market, commodity)
// quote keeps the first occurrence.
func quotedMarkets(book *Book, commodity string) ([]candidate, error) {
	key := utils.NormalizeCommodity(commodity)

	locations := make(map[string]models.MarketLocation, len(book.Markets))
	for _, m := range book.Markets {
		locations[m.ID] = m
	}

	seen := make(map[string]bool)
	var out []candidate
	for _, q := range book.Quotes {
		if utils.NormalizeCommodity(q.Commodity) != key || seen[q.MarketID] {
			continue
		}
		if q.CurrentPrice < 0 || !utils.IsFinite(q.CurrentPrice) {
			return nil, fmt.Errorf("%w: quote %v at market %s", models.ErrInvalidInput, q.CurrentPrice, q.MarketID)
		}
		loc, ok := locations[q.MarketID]
		if !ok {
			continue
		}
		seen[q.MarketID] = true
		out = append(out, candidate{market: loc, price: q.CurrentPrice})
	}
	return out, nil
}

// priceSpread returns max−min quote and the spread as a percent of the
// minimum, both rounded to 2 decimals. A zero minimum yields 0 percent.
func priceSpread(cs []candidate) (spread, pct float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, c := range cs {
		lo = math.Min(lo, c.price)
		hi = math.Max(hi, c.price)
	}
	spread = hi - lo
	if lo > 0 {
		pct = spread / lo * 100
	}
	return utils.Round(spread, 2), utils.Round(pct, 2)
}
