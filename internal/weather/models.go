package weather

import (
	"time"
)

// CurrentWeather is the current_weather block returned by Open-Meteo
type CurrentWeather struct {
	Temperature   float64 `json:"temperature"`   // °C
	WindSpeed     float64 `json:"windspeed"`     // km/h
	WindDirection float64 `json:"winddirection"` // degrees
	WeatherCode   int     `json:"weathercode"`   // WMO code
	IsDay         int     `json:"is_day"`
	Time          string  `json:"time"` // observation time, local ISO without zone
}

// forecastResponse mirrors the subset of /v1/forecast we read
type forecastResponse struct {
	Latitude       float64         `json:"latitude"`
	Longitude      float64         `json:"longitude"`
	CurrentWeather *CurrentWeather `json:"current_weather"`
}

// Severity is the demand-relevant weather tier
type Severity string

const (
	SeverityClear    Severity = "clear"
	SeverityLight    Severity = "light"
	SeverityModerate Severity = "moderate"
	SeverityHeavy    Severity = "heavy"
)

// Region is a named demand area with a surge offset relative to the airport
type Region struct {
	Name   string `json:"name"`
	Offset int    `json:"offset"`
}

// RegionSurge is the predicted demand increase for one region
type RegionSurge struct {
	Region    string `json:"region"`
	Surge     int    `json:"surge"`
	Condition string `json:"condition"`
}

// Impact is everything derived from a single weather reading
type Impact struct {
	Condition string        `json:"condition"`
	Severity  Severity      `json:"severity"`
	Wind      string        `json:"wind"`
	BaseSurge int           `json:"base_surge"`
	Alert     bool          `json:"alert"`
	Regions   []RegionSurge `json:"regions"`
}

// Report is what the weather poller holds: the reading plus its impact
type Report struct {
	Current   CurrentWeather `json:"current"`
	Impact    Impact         `json:"impact"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// Config represents the weather service configuration
type Config struct {
	APIBaseURL             string
	Latitude               float64
	Longitude              float64
	RefreshIntervalMinutes int
	RequestTimeoutSeconds  int
	MaxRetries             int
	Regions                []Region
}

// DefaultRegions are the Singapore demand regions, ordered by distance from Changi
func DefaultRegions() []Region {
	return []Region{
		{Name: "Changi / East", Offset: 0},
		{Name: "Central / CBD", Offset: 10},
		{Name: "North (Woodlands)", Offset: 15},
	}
}

// DefaultConfig returns the default weather configuration
func DefaultConfig() Config {
	return Config{
		APIBaseURL:             "https://api.open-meteo.com",
		Latitude:               1.3644,
		Longitude:              103.9915,
		RefreshIntervalMinutes: 30,
		RequestTimeoutSeconds:  10,
		MaxRetries:             0,
		Regions:                DefaultRegions(),
	}
}
