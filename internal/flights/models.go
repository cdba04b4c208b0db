package flights

import (
	"time"
)

// RawAircraftState is one decoded OpenSky state vector.
// Altitude and velocity keep their unit suffix ("900 m", "85 m/s") or "N/A".
type RawAircraftState struct {
	ICAO24        string  `json:"icao24"`
	Callsign      string  `json:"callsign"`
	OriginCountry string  `json:"origin_country"`
	Longitude     float64 `json:"longitude"`
	Latitude      float64 `json:"latitude"`
	Altitude      string  `json:"altitude"`
	Velocity      string  `json:"velocity"`
	OnGround      bool    `json:"on_ground"`
}

// NotAvailable marks a measurement the source did not report
const NotAvailable = "N/A"

// Status is the arrival phase shown to drivers
type Status string

const (
	StatusLanding     Status = "Landing"
	StatusApproaching Status = "Approaching"
	StatusInbound     Status = "Inbound"
	StatusLanded      Status = "Landed"
)

// Terminal is the Changi terminal a flight is expected to use
type Terminal string

const (
	TerminalT1 Terminal = "T1"
	TerminalT3 Terminal = "T3"
	TerminalT4 Terminal = "T4"
)

// DisplayFlight is a flight as presented on the dashboard
type DisplayFlight struct {
	FlightNo    string   `json:"flight_no"`
	ICAO24      string   `json:"icao24"`
	From        string   `json:"from"`
	Terminal    Terminal `json:"terminal"`
	Arrival     string   `json:"arrival"`
	Aircraft    string   `json:"aircraft"`
	Capacity    int      `json:"capacity"`
	LoadFactor  int      `json:"load_factor"`
	ExpectedPax int      `json:"expected_pax"`
	Status      Status   `json:"status"`
	Altitude    string   `json:"altitude"`
	Velocity    string   `json:"velocity"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
}

// Report is what the flight poller holds
type Report struct {
	Flights   []DisplayFlight `json:"flights"`
	Count     int             `json:"count"`
	Arrivals  int             `json:"arrivals"` // airborne flights, i.e. not Landed
	Total     int             `json:"total"`    // records returned before any cap
	FetchedAt time.Time       `json:"fetched_at"`
}

// BoundingBox is a rectangular lat/lon filter
type BoundingBox struct {
	LaMin float64 `json:"lamin"`
	LoMin float64 `json:"lomin"`
	LaMax float64 `json:"lamax"`
	LoMax float64 `json:"lomax"`
}

// Valid reports whether the box is non-empty and inside world bounds
func (b BoundingBox) Valid() bool {
	return b.LaMin < b.LaMax && b.LoMin < b.LoMax &&
		b.LaMin >= -90 && b.LaMax <= 90 &&
		b.LoMin >= -180 && b.LoMax <= 180
}

// Config represents the flight service configuration
type Config struct {
	APIBaseURL            string
	BBox                  BoundingBox
	CredentialsPath       string // optional OpenSky client credentials JSON
	TokenURL              string
	FetchIntervalSeconds  int
	RequestTimeoutSeconds int
	MaxFlights            int // 0 means no cap
	EstimatorSeed         uint64

	// MinRequestIntervalSeconds spaces out OpenSky calls, including manual
	// refreshes; 0 disables the limit
	MinRequestIntervalSeconds int
}

// DefaultBBox covers the approach paths around Changi Airport
func DefaultBBox() BoundingBox {
	return BoundingBox{LaMin: 1.2, LoMin: 103.8, LaMax: 1.5, LoMax: 104.1}
}

// DefaultConfig returns the default flight configuration
func DefaultConfig() Config {
	return Config{
		APIBaseURL:            "https://opensky-network.org/api",
		BBox:                  DefaultBBox(),
		TokenURL:              defaultTokenURL,
		FetchIntervalSeconds:  30,
		RequestTimeoutSeconds: 15,

		MinRequestIntervalSeconds: 5,
	}
}
