package models

// RiskLevel classifies the weather risk for a future window.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Valid reports whether r is one of the known levels.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// WeatherRisk is the opaque risk signal supplied by the weather service.
type WeatherRisk struct {
	Level           RiskLevel `json:"level"`
	RainProbability float64   `json:"rain_probability"` // percent, 0..100
	Description     string    `json:"description,omitempty"`
	Source          string    `json:"source,omitempty"` // "weather-service", "request", "default"
}
