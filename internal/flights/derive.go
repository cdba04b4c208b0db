package flights

import (
	"sort"
	"strconv"
	"strings"
)

// Altitude thresholds in metres
const (
	landingBelow     = 1000
	approachingBelow = 3000
	nearBelow        = 5000
)

var statusPriority = map[Status]int{
	StatusLanding:     0,
	StatusApproaching: 1,
	StatusInbound:     2,
	StatusLanded:      3,
}

// StatusPriority returns the sort rank of a status; unknown statuses sort last
func StatusPriority(s Status) int {
	if p, ok := statusPriority[s]; ok {
		return p
	}
	return 99
}

// ParseMeasure reads the leading number of a value like "900 m".
// It returns false for "N/A" and anything else without a leading number.
func ParseMeasure(v string) (float64, bool) {
	fields := strings.Fields(v)
	if len(fields) == 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// DeriveStatus maps altitude and ground state to an arrival phase.
// An unknown altitude is treated as still far out.
func DeriveStatus(altitude string, onGround bool) Status {
	if onGround {
		return StatusLanded
	}
	alt, ok := ParseMeasure(altitude)
	switch {
	case !ok:
		return StatusInbound
	case alt < landingBelow:
		return StatusLanding
	case alt < approachingBelow:
		return StatusApproaching
	default:
		return StatusInbound
	}
}

// DeriveTerminal guesses the terminal from the airline prefix of a callsign
func DeriveTerminal(callsign string) Terminal {
	prefix := strings.ToUpper(strings.TrimSpace(callsign))
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}

	switch {
	case strings.HasPrefix(prefix, "SIA"), strings.HasPrefix(prefix, "SQ"):
		return TerminalT3
	case strings.HasPrefix(prefix, "TR"), strings.HasPrefix(prefix, "FY"):
		return TerminalT4
	default:
		return TerminalT1
	}
}

// DeriveArrival buckets the time to arrival from altitude
func DeriveArrival(altitude string) string {
	alt, ok := ParseMeasure(altitude)
	switch {
	case !ok:
		return "35 min"
	case alt < landingBelow:
		return "5 min"
	case alt < approachingBelow:
		return "15 min"
	case alt < nearBelow:
		return "25 min"
	default:
		return "35 min"
	}
}

// ExpectedPax is floor(capacity * loadFactor / 100)
func ExpectedPax(capacity, loadFactor int) int {
	return capacity * loadFactor / 100
}

// FlightNumber is the trimmed callsign, or "Unknown" when blank
func FlightNumber(callsign string) string {
	if cs := strings.TrimSpace(callsign); cs != "" {
		return cs
	}
	return "Unknown"
}

// Transform converts one raw state into a display record
func Transform(raw RawAircraftState, est Estimator) DisplayFlight {
	aircraft := est.Aircraft()
	load := est.LoadFactor()

	return DisplayFlight{
		FlightNo:    FlightNumber(raw.Callsign),
		ICAO24:      raw.ICAO24,
		From:        raw.OriginCountry,
		Terminal:    DeriveTerminal(raw.Callsign),
		Arrival:     DeriveArrival(raw.Altitude),
		Aircraft:    aircraft.Name,
		Capacity:    aircraft.Capacity,
		LoadFactor:  load,
		ExpectedPax: ExpectedPax(aircraft.Capacity, load),
		Status:      DeriveStatus(raw.Altitude, raw.OnGround),
		Altitude:    raw.Altitude,
		Velocity:    raw.Velocity,
		Latitude:    raw.Latitude,
		Longitude:   raw.Longitude,
	}
}

// SortByStatus orders flights by status priority, keeping fetch order for ties
func SortByStatus(flights []DisplayFlight) {
	sort.SliceStable(flights, func(i, j int) bool {
		return StatusPriority(flights[i].Status) < StatusPriority(flights[j].Status)
	})
}

// TransformAll converts and ranks a whole fetch
func TransformAll(raw []RawAircraftState, est Estimator) []DisplayFlight {
	out := make([]DisplayFlight, 0, len(raw))
	for _, r := range raw {
		out = append(out, Transform(r, est))
	}
	SortByStatus(out)
	return out
}
