package models

import "time"

// PlanRecord is the stored summary of one planning call.
type PlanRecord struct {
	ID           string         `json:"id"`
	Commodity    string         `json:"commodity"`
	Quantity     float64        `json:"quantity"`
	CurrentPrice float64        `json:"current_price"`
	Action       ScenarioAction `json:"action"`
	NetProfit    float64        `json:"net_profit"`
	Confidence   Confidence     `json:"confidence"`
	WeatherLevel RiskLevel      `json:"weather_level"`
	AsOf         time.Time      `json:"as_of"`
	CreatedAt    time.Time      `json:"created_at"`
}

// DigestEntry is one commodity line of the scheduled market digest.
type DigestEntry struct {
	ID           string    `json:"id"`
	Commodity    string    `json:"commodity"`
	BestMarketID string    `json:"best_market_id"`
	BestMarket   string    `json:"best_market"`
	NetPrice     float64   `json:"net_price"`
	BelowSupport bool      `json:"below_support"`
	MarketCount  int       `json:"market_count"`
	Error        string    `json:"error,omitempty"`
	AsOf         time.Time `json:"as_of"`
}
