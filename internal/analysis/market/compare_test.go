package market

import (
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/seenimoa/mandisense/internal/analysis/geo"
	"github.com/seenimoa/mandisense/pkg/models"
)

var seller = models.GeoPoint{Latitude: 28.0, Longitude: 77.0}

// kmNorth returns a market location d km due north of the seller.
func kmNorth(id string, d float64) models.MarketLocation {
	return models.MarketLocation{
		ID:        id,
		Name:      "Mandi " + id,
		District:  "District " + id,
		State:     "Haryana",
		Latitude:  seller.Latitude + d/geo.KmPerDegree,
		Longitude: seller.Longitude,
	}
}

func exampleBook() *Book {
	return &Book{
		Commodities: []models.Commodity{{Name: "wheat", SupportPrice: 2200, Unit: "quintal"}},
		Markets:     []models.MarketLocation{kmNorth("A", 0), kmNorth("B", 50)},
		Quotes: []models.MarketQuote{
			{MarketID: "A", Commodity: "wheat", CurrentPrice: 2420},
			{MarketID: "B", Commodity: "wheat", CurrentPrice: 2500},
		},
	}
}

func TestCompareRoundTrip(t *testing.T) {
	res, err := Compare(exampleBook(), Request{Commodity: "wheat", Seller: seller}, Options{RatePerKm: 12})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	if len(res.Markets) != 2 {
		t.Fatalf("expected 2 markets, got %d", len(res.Markets))
	}
	if res.Markets[0].MarketID != "A" || res.Markets[0].NetPrice != 2420 {
		t.Errorf("first = %+v, want A at 2420", res.Markets[0])
	}
	if res.Markets[1].MarketID != "B" || res.Markets[1].NetPrice != 1900 {
		t.Errorf("second = %+v, want B at 1900", res.Markets[1])
	}
	if res.Markets[1].DistanceKm != 50 || res.Markets[1].TransportCost != 600 {
		t.Errorf("B distance/cost = %v/%v, want 50/600", res.Markets[1].DistanceKm, res.Markets[1].TransportCost)
	}
	if res.BestMarket.MarketID != "A" {
		t.Errorf("best market = %s, want A", res.BestMarket.MarketID)
	}
	if res.BelowSupport {
		t.Error("2420 >= 2200, should not be below support")
	}
	if !strings.Contains(res.Recommendation, "Mandi A") || !strings.Contains(res.Recommendation, "₹2,420.00") {
		t.Errorf("recommendation should cite Mandi A at ₹2,420.00: %q", res.Recommendation)
	}
	if res.PriceSpread != 80 || res.SpreadPercent != 3.31 {
		t.Errorf("spread = %v (%v%%), want 80 (3.31%%)", res.PriceSpread, res.SpreadPercent)
	}
	if res.DistanceModel != geo.ModelPlanar {
		t.Errorf("distance model = %q, want planar", res.DistanceModel)
	}
}

func TestCompareBelowSupport(t *testing.T) {
	book := exampleBook()
	book.Commodities[0].SupportPrice = 2600

	res, err := Compare(book, Request{Commodity: "wheat", Seller: seller}, Options{RatePerKm: 12})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if !res.BelowSupport {
		t.Error("expected below-support flag")
	}
	for _, m := range res.Markets {
		if m.AboveSupport {
			t.Errorf("market %s flagged above support at %v", m.MarketID, m.NetPrice)
		}
	}
	if !strings.Contains(res.Recommendation, "government procurement") {
		t.Errorf("recommendation should suggest procurement: %q", res.Recommendation)
	}
}

func TestCompareNotFound(t *testing.T) {
	tests := []struct {
		name string
		book *Book
		req  Request
	}{
		{
			name: "unknown commodity",
			book: exampleBook(),
			req:  Request{Commodity: "saffron", Seller: seller},
		},
		{
			name: "no quotes",
			book: &Book{
				Commodities: []models.Commodity{{Name: "gram", SupportPrice: 5440}},
				Markets:     []models.MarketLocation{kmNorth("A", 0)},
			},
			req: Request{Commodity: "gram", Seller: seller},
		},
		{
			name: "radius eliminates all",
			book: &Book{
				Commodities: []models.Commodity{{Name: "wheat", SupportPrice: 2200}},
				Markets:     []models.MarketLocation{kmNorth("far", 80)},
				Quotes:      []models.MarketQuote{{MarketID: "far", Commodity: "wheat", CurrentPrice: 2400}},
			},
			req: Request{Commodity: "wheat", Seller: seller, RadiusKm: 30},
		},
		{
			name: "nil book",
			req:  Request{Commodity: "wheat", Seller: seller},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compare(tt.book, tt.req, Options{RatePerKm: 12})
			if !errors.Is(err, models.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestCompareInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		opts Options
	}{
		{"negative radius", Request{Commodity: "wheat", Seller: seller, RadiusKm: -1}, Options{RatePerKm: 12}},
		{"negative rate", Request{Commodity: "wheat", Seller: seller}, Options{RatePerKm: -2}},
		{"latitude out of range", Request{Commodity: "wheat", Seller: models.GeoPoint{Latitude: 95, Longitude: 77}}, Options{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compare(exampleBook(), tt.req, tt.opts)
			if !errors.Is(err, models.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestCompareRadiusFilterKeepsSpreadUnfiltered(t *testing.T) {
	res, err := Compare(exampleBook(), Request{Commodity: "wheat", Seller: seller, RadiusKm: 10}, Options{RatePerKm: 12})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if len(res.Markets) != 1 || res.Markets[0].MarketID != "A" {
		t.Fatalf("radius 10 km should keep only A, got %+v", res.Markets)
	}
	if res.PriceSpread != 80 || res.QuoteCount != 2 {
		t.Errorf("spread should cover all quotes: spread=%v count=%d", res.PriceSpread, res.QuoteCount)
	}
}

func TestCompareStableTies(t *testing.T) {
	book := &Book{
		Commodities: []models.Commodity{{Name: "maize", SupportPrice: 2090}},
		Markets:     []models.MarketLocation{kmNorth("X", 0), kmNorth("Y", 0), kmNorth("Z", 0)},
		Quotes: []models.MarketQuote{
			{MarketID: "Y", Commodity: "maize", CurrentPrice: 2100},
			{MarketID: "X", Commodity: "maize", CurrentPrice: 2100},
			{MarketID: "Z", Commodity: "maize", CurrentPrice: 2100},
		},
	}

	res, err := Compare(book, Request{Commodity: "maize", Seller: seller}, Options{RatePerKm: 10})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	var order []string
	for _, m := range res.Markets {
		order = append(order, m.MarketID)
	}
	if got := strings.Join(order, ","); got != "Y,X,Z" {
		t.Errorf("tie order = %s, want quote order Y,X,Z", got)
	}
}

func TestCompareDuplicateAndUnknownQuotes(t *testing.T) {
	book := exampleBook()
	book.Quotes = append(book.Quotes,
		models.MarketQuote{MarketID: "A", Commodity: "wheat", CurrentPrice: 9999},
		models.MarketQuote{MarketID: "ghost", Commodity: "wheat", CurrentPrice: 9999},
	)

	res, err := Compare(book, Request{Commodity: "wheat", Seller: seller}, Options{RatePerKm: 12})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if len(res.Markets) != 2 || res.BestMarket.Price != 2420 {
		t.Errorf("duplicate/unknown quotes should be ignored, got %+v", res.Markets)
	}
}

func TestCompareCommodityAlias(t *testing.T) {
	res, err := Compare(exampleBook(), Request{Commodity: "Gehun", Seller: seller}, Options{RatePerKm: 12})
	if err != nil {
		t.Fatalf("Compare(Gehun): %v", err)
	}
	if res.Commodity != "wheat" {
		t.Errorf("commodity = %q, want wheat", res.Commodity)
	}
}

func TestCompareHaversineModel(t *testing.T) {
	res, err := Compare(exampleBook(), Request{Commodity: "wheat", Seller: seller},
		Options{RatePerKm: 12, Distance: geo.Haversine, DistanceModel: geo.ModelHaversine})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if res.BestMarket.MarketID != "A" || res.DistanceModel != geo.ModelHaversine {
		t.Errorf("unexpected result %+v", res.BestMarket)
	}
}

func randomBook(r *rand.Rand, n int) *Book {
	book := &Book{Commodities: []models.Commodity{{Name: "paddy", SupportPrice: 2300, Unit: "quintal"}}}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("M%02d", i)
		book.Markets = append(book.Markets, models.MarketLocation{
			ID:        id,
			Name:      id,
			Latitude:  seller.Latitude + (r.Float64()-0.5),
			Longitude: seller.Longitude + (r.Float64()-0.5),
		})
		book.Quotes = append(book.Quotes, models.MarketQuote{
			MarketID:     id,
			Commodity:    "paddy",
			CurrentPrice: float64(2000 + r.Intn(800)),
		})
	}
	return book
}

func TestCompareSortedByNetPriceProperty(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for trial := 0; trial < 200; trial++ {
		book := randomBook(r, 1+r.Intn(25))
		res, err := Compare(book, Request{Commodity: "paddy", Seller: seller}, Options{RatePerKm: 8 + r.Float64()*10})
		if err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}
		for i := 1; i < len(res.Markets); i++ {
			if res.Markets[i-1].NetPrice < res.Markets[i].NetPrice {
				t.Fatalf("trial %d: not sorted at %d: %v < %v", trial, i, res.Markets[i-1].NetPrice, res.Markets[i].NetPrice)
			}
		}
		if res.BestMarket != res.Markets[0] {
			t.Fatalf("trial %d: best market is not the first ranked market", trial)
		}
	}
}

func TestCompareDeterministic(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	book := randomBook(r, 15)
	req := Request{Commodity: "paddy", Seller: seller, RadiusKm: 60, AsOf: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)}

	first, err := Compare(book, req, Options{RatePerKm: 11})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Compare(book, req, Options{RatePerKm: 11})
		if err != nil {
			t.Fatalf("Compare: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatal("identical inputs produced different comparisons")
		}
	}
}
