package types

import "time"

// WeatherObservation is a point-in-time weather reading for a city, either
// from a live API or generated.
type WeatherObservation struct {
	Timestamp     time.Time `json:"timestamp"`
	City          string    `json:"city"`
	TemperatureC  float64   `json:"temperature"`
	HumidityPct   float64   `json:"humidity"`
	WindSpeedMS   float64   `json:"wind_speed"`
	CloudCoverPct float64   `json:"cloud_cover"`
	Condition     string    `json:"weather_condition"`
	Description   string    `json:"description"`
	PressureHPA   float64   `json:"pressure"`
	VisibilityKM  float64   `json:"visibility"`
	RealData      bool      `json:"real_data"`
	Source        string    `json:"api_source"`
}

// RenewablePotential expresses solar and wind output as a percentage of
// nameplate capacity.
type RenewablePotential struct {
	SolarPotential float64 `json:"solar_potential"`
	WindPotential  float64 `json:"wind_potential"`
	RenewableScore float64 `json:"renewable_score"`
}

// WeatherRecord is a persisted observation with the potentials derived from it.
type WeatherRecord struct {
	Observation WeatherObservation `json:"observation"`
	Potential   RenewablePotential `json:"potential"`
}

// DemandPrediction is the instantaneous demand estimate.
type DemandPrediction struct {
	Timestamp         time.Time `json:"timestamp"`
	PredictedDemandMW float64   `json:"predicted_demand_mw"`
	Confidence        float64   `json:"confidence"`
	DailyFactor       float64   `json:"daily_factor"`
	SeasonalFactor    float64   `json:"seasonal_factor"`
	WeekendFactor     float64   `json:"weekend_factor"`
	IsPeakHour        bool      `json:"is_peak_hour"`
}

// HourlyDemand is one entry of a 24 hour demand forecast.
type HourlyDemand struct {
	Hour              int       `json:"hour"`
	Timestamp         time.Time `json:"timestamp"`
	PredictedDemandMW float64   `json:"predicted_demand_mw"`
}

// Cycle is a full weather -> demand -> balance pass for one grid.
type Cycle struct {
	GridID    string              `json:"grid_id"`
	City      string              `json:"city"`
	Weather   WeatherObservation  `json:"weather"`
	Potential RenewablePotential  `json:"potential"`
	Demand    DemandPrediction    `json:"demand"`
	Renewable RenewableGeneration `json:"renewable"`
	Balancing BalancingResult     `json:"balancing"`
	Persisted bool                `json:"persisted"`
}
