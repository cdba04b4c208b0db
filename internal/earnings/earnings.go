// Package earnings computes the driver's shift figures. The inputs are
// configured, not tracked.
package earnings

import (
	"fmt"
	"math"
)

// Config holds the raw shift figures
type Config struct {
	Gross       float64 `toml:"gross"`
	FuelCost    float64 `toml:"fuel_cost"`
	PlatformFee float64 `toml:"platform_fee"`
	ActiveHours float64 `toml:"active_hours"`
	ShiftHours  float64 `toml:"shift_hours"`
	Trips       int     `toml:"trips"`
	TripsThisHr int     `toml:"trips_this_hour"`
	Target      float64 `toml:"target"`
	GrossChange float64 `toml:"gross_change_percent"`
	FareChange  float64 `toml:"fare_change_percent"`
}

// DefaultConfig returns a sample shift
func DefaultConfig() Config {
	return Config{
		Gross:       187.50,
		FuelCost:    32.00,
		PlatformFee: 28.13,
		ActiveHours: 5.5,
		ShiftHours:  7.5,
		Trips:       18,
		TripsThisHr: 3,
		Target:      175,
		GrossChange: 12.5,
		FareChange:  8.2,
	}
}

// Summary is the computed view of a shift
type Summary struct {
	Gross          float64 `json:"gross"`
	FuelCost       float64 `json:"fuel_cost"`
	PlatformFee    float64 `json:"platform_fee"`
	Net            float64 `json:"net"`
	ActiveHours    float64 `json:"active_hours"`
	Trips          int     `json:"trips"`
	HourlyAverage  float64 `json:"hourly_average"`
	AverageFare    float64 `json:"average_fare"`
	TargetProgress int     `json:"target_progress"`
	Stats          []Stat  `json:"stats"`
}

// Stat is one headline figure with its change label
type Stat struct {
	Label  string `json:"label"`
	Value  string `json:"value"`
	Change string `json:"change"`
}

// round2 rounds to cents
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Compute derives the summary. Zero divisors yield zero rather than Inf.
func Compute(c Config) Summary {
	s := Summary{
		Gross:       round2(c.Gross),
		FuelCost:    round2(c.FuelCost),
		PlatformFee: round2(c.PlatformFee),
		Net:         round2(c.Gross - c.FuelCost - c.PlatformFee),
		ActiveHours: c.ActiveHours,
		Trips:       c.Trips,
	}
	if c.ActiveHours > 0 {
		s.HourlyAverage = round2(c.Gross / c.ActiveHours)
	}
	if c.Trips > 0 {
		s.AverageFare = round2(c.Gross / float64(c.Trips))
	}
	if c.Target > 0 {
		s.TargetProgress = int(math.Round(s.Net / c.Target * 100))
	}

	remaining := max(c.ShiftHours-c.ActiveHours, 0)
	s.Stats = []Stat{
		{Label: "Today's Earnings", Value: fmt.Sprintf("$%.2f", s.Gross), Change: signedPercent(c.GrossChange)},
		{Label: "Active Hours", Value: fmt.Sprintf("%gh", c.ActiveHours), Change: fmt.Sprintf("%gh remaining", remaining)},
		{Label: "Trips Completed", Value: fmt.Sprintf("%d", c.Trips), Change: fmt.Sprintf("+%d this hour", c.TripsThisHr)},
		{Label: "Avg. Fare", Value: fmt.Sprintf("$%.2f", s.AverageFare), Change: signedPercent(c.FareChange)},
	}
	return s
}

func signedPercent(v float64) string {
	return fmt.Sprintf("%+.1f%%", v)
}
