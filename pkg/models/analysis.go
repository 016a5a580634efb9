package models

import "time"

// Direction is a three-way price movement label.
type Direction string

const (
	DirectionRising  Direction = "RISING"
	DirectionFalling Direction = "FALLING"
	DirectionStable  Direction = "STABLE"
)

// Confidence labels how far a number can be trusted.
// CERTAIN is reserved for values that involve no forecast.
type Confidence string

const (
	ConfidenceCertain Confidence = "CERTAIN"
	ConfidenceHigh    Confidence = "HIGH"
	ConfidenceMedium  Confidence = "MEDIUM"
	ConfidenceLow     Confidence = "LOW"
)

// RankedMarket is one market row of a comparison, net of transport.
type RankedMarket struct {
	MarketID      string  `json:"market_id"`
	Name          string  `json:"name"`
	District      string  `json:"district"`
	State         string  `json:"state"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Price         float64 `json:"price"`
	DistanceKm    float64 `json:"distance_km"`
	TransportCost float64 `json:"transport_cost"`
	NetPrice      float64 `json:"net_price"`
	AboveSupport  bool    `json:"above_support"`
}

// MarketComparison ranks markets for one commodity by net price.
type MarketComparison struct {
	Commodity      string         `json:"commodity"`
	Unit           string         `json:"unit"`
	SupportPrice   float64        `json:"support_price"`
	Markets        []RankedMarket `json:"ranked_markets"`
	BestMarket     RankedMarket   `json:"best_market"`
	BelowSupport   bool           `json:"below_support"`
	Recommendation string         `json:"recommendation"`
	PriceSpread    float64        `json:"price_spread"`
	SpreadPercent  float64        `json:"spread_percent"`
	QuoteCount     int            `json:"quote_count"`
	RadiusKm       float64        `json:"radius_km,omitempty"`
	DistanceModel  string         `json:"distance_model"`
	AsOf           time.Time      `json:"as_of"`
}

// TrendResult classifies a short price history.
type TrendResult struct {
	MarketName     string    `json:"market_name"`
	Commodity      string    `json:"commodity"`
	Direction      Direction `json:"direction"`
	PercentChange  float64   `json:"percent_change"`
	FirstPrice     float64   `json:"first_price"`
	LastPrice      float64   `json:"last_price"`
	HighPrice      float64   `json:"high_price"`
	LowPrice       float64   `json:"low_price"`
	AveragePrice   float64   `json:"average_price"`
	Points         int       `json:"points"`
	Recommendation string    `json:"recommendation"`
	AsOf           time.Time `json:"as_of"`
}

// ForecastResult is a linear projection of a wholesale index.
type ForecastResult struct {
	CurrentValue   float64    `json:"current_value"`
	PredictedValue float64    `json:"predicted_value"`
	PercentChange  float64    `json:"percent_change"`
	Confidence     Confidence `json:"confidence"`
	Direction      Direction  `json:"direction"`
	Variance       float64    `json:"variance"`
	Slope          float64    `json:"slope"`
	Intercept      float64    `json:"intercept"`
	Points         int        `json:"points"`
	DaysAhead      int        `json:"days_ahead"`
	TargetDate     time.Time  `json:"target_date"`
}

// ScenarioAction identifies one sell-timing strategy.
type ScenarioAction string

const (
	ActionSellNow ScenarioAction = "SELL_NOW"
	ActionWait7   ScenarioAction = "WAIT_7_DAYS"
	ActionWait14  ScenarioAction = "WAIT_14_DAYS"
)

// ScenarioResult is the revenue and cost outcome of one strategy.
type ScenarioResult struct {
	Action       ScenarioAction `json:"action"`
	Label        string         `json:"label"`
	HorizonDays  int            `json:"horizon_days"`
	PricePerUnit float64        `json:"price_per_unit"`
	Revenue      float64        `json:"revenue"`
	StorageCost  float64        `json:"costs"`
	NetProfit    float64        `json:"net_profit"`
	ProfitVsNow  float64        `json:"profit_vs_now"`
	Risk         string         `json:"risk"`
	Confidence   Confidence     `json:"confidence"`
}

// PlanRecommendation is the scenario the planner selected.
type PlanRecommendation struct {
	Action     ScenarioAction `json:"action"`
	Label      string         `json:"label"`
	NetProfit  float64        `json:"net_profit"`
	Confidence Confidence     `json:"confidence"`
	Reason     string         `json:"reason"`
}

// PlanResult is the full output of a scenario planning call.
type PlanResult struct {
	ID             string             `json:"id,omitempty"`
	Commodity      string             `json:"commodity"`
	Unit           string             `json:"unit,omitempty"`
	Quantity       float64            `json:"quantity"`
	CurrentPrice   float64            `json:"current_price"`
	Scenarios      []ScenarioResult   `json:"scenarios"`
	Recommendation PlanRecommendation `json:"recommendation"`
	Excluded       []ScenarioAction   `json:"excluded,omitempty"`
	Forecast7      ForecastResult     `json:"forecast_7"`
	Forecast14     ForecastResult     `json:"forecast_14"`
	Weather        WeatherRisk        `json:"weather"`
	AsOf           time.Time          `json:"as_of"`
}
