// Package recommend ranks pickup zones for the current hour.
package recommend

import (
	"fmt"
	"sort"
)

// Priority of a zone recommendation
type Priority string

const (
	High   Priority = "High"
	Medium Priority = "Medium"
	Low    Priority = "Low"
)

var priorityOrder = map[Priority]int{High: 0, Medium: 1, Low: 2}

// NoFlightData tells ForHour that live arrivals are unknown
const NoFlightData = -1

// TimeWindow is an hour range [Start, End)
type TimeWindow struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Zone is one recommended pickup area
type Zone struct {
	Name       string      `json:"name"`
	Priority   Priority    `json:"priority"`
	Reason     string      `json:"reason"`
	ETA        string      `json:"eta"`
	Multiplier string      `json:"multiplier"`
	Icon       string      `json:"icon,omitempty"`
	Window     *TimeWindow `json:"time_window,omitempty"`
	BestChoice bool        `json:"best_choice"`
}

// IsNight reports whether the Night Safari exit rush applies
func IsNight(hour int) bool {
	return hour >= 18 || hour < 6
}

// IsCommutePeak reports whether the Woodlands checkpoint rush applies
func IsCommutePeak(hour int) bool {
	return (hour >= 7 && hour <= 9) || (hour >= 17 && hour <= 20)
}

func changiReason(arrivals int) string {
	switch {
	case arrivals < 0:
		return "5 wide-body arrivals in 45min"
	case arrivals == 1:
		return "1 arrival in 45min"
	default:
		return fmt.Sprintf("%d arrivals in 45min", arrivals)
	}
}

// ForHour returns the recommendations for a local hour (0-23), highest
// priority first. arrivals is the live inbound count or NoFlightData.
func ForHour(hour, arrivals int) []Zone {
	zones := []Zone{
		{
			Name:       "Changi Airport",
			Priority:   High,
			Reason:     changiReason(arrivals),
			ETA:        "15 min",
			Multiplier: "1.8x",
		},
		{
			Name:       "Marina Bay / CBD",
			Priority:   Medium,
			Reason:     "Lunch hour demand peak",
			ETA:        "25 min",
			Multiplier: "1.3x",
		},
		{
			Name:       "Orchard Road",
			Priority:   Low,
			Reason:     "Moderate shopping traffic",
			ETA:        "20 min",
			Multiplier: "1.1x",
		},
	}

	if IsNight(hour) {
		zones = append(zones, Zone{
			Name:       "Mandai Zoo / Night Safari",
			Priority:   Medium,
			Reason:     "Night Safari closing time - High exit demand",
			ETA:        "30 min",
			Multiplier: "1.5x",
			Icon:       "moon",
			Window:     &TimeWindow{Start: 18, End: 24},
		})
	}

	if IsCommutePeak(hour) {
		zones = append(zones, Zone{
			Name:       "Woodlands Train Station",
			Priority:   High,
			Reason:     "Peak hour - Commuters from Malaysia",
			ETA:        "35 min",
			Multiplier: "1.6x",
			Icon:       "train",
			Window:     &TimeWindow{Start: 7, End: 20},
		})
	}

	sort.SliceStable(zones, func(i, j int) bool {
		return priorityOrder[zones[i].Priority] < priorityOrder[zones[j].Priority]
	})

	if len(zones) > 0 && zones[0].Priority == High {
		zones[0].BestChoice = true
	}
	return zones
}
