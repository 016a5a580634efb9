package models

import "time"

// Commodity is reference data for a tradable crop.
type Commodity struct {
	Name         string  `json:"name"          yaml:"name"`          // canonical key, e.g. "wheat"
	SupportPrice float64 `json:"support_price" yaml:"support_price"` // government minimum support price per unit
	Unit         string  `json:"unit"          yaml:"unit"`          // e.g. "quintal"
}

// MarketLocation is a physical market (mandi) a seller can deliver to.
type MarketLocation struct {
	ID        string  `json:"id"        yaml:"id"`
	Name      string  `json:"name"      yaml:"name"`
	District  string  `json:"district"  yaml:"district"`
	State     string  `json:"state"     yaml:"state"`
	Latitude  float64 `json:"latitude"  yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// MarketQuote is the live price a market currently pays for a commodity.
type MarketQuote struct {
	MarketID     string  `json:"market_id"     yaml:"market_id"`
	Commodity    string  `json:"commodity"     yaml:"commodity"`
	CurrentPrice float64 `json:"current_price" yaml:"current_price"`
}

// PriceHistoryPoint is one day of a market's short price history.
// DayOffset 0 is the oldest point of the window.
type PriceHistoryPoint struct {
	MarketID  string  `json:"market_id"  yaml:"market_id"`
	Commodity string  `json:"commodity"  yaml:"commodity"`
	DayOffset int     `json:"day_offset" yaml:"day_offset"`
	Price     float64 `json:"price"      yaml:"price"`
}

// IndexDataPoint is one daily observation of a wholesale price index.
type IndexDataPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// GeoPoint is a coordinate pair in decimal degrees.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// TrendWindow is the number of points a short price history holds.
const TrendWindow = 7
