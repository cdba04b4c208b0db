package weather

// minRegionSurge is the floor applied to every regional surge
const minRegionSurge = 5

// wmoBand maps an inclusive WMO code range to a label and severity
type wmoBand struct {
	lo, hi   int
	label    string
	severity Severity
}

// Bands are contiguous over 0..99
var wmoBands = []wmoBand{
	{0, 0, "Clear sky", SeverityClear},
	{1, 3, "Partly cloudy", SeverityClear},
	{4, 48, "Fog", SeverityLight},
	{49, 57, "Drizzle", SeverityLight},
	{58, 67, "Rain", SeverityModerate},
	{68, 77, "Snow", SeverityModerate},
	{78, 82, "Rain showers", SeverityHeavy},
	{83, 86, "Snow showers", SeverityHeavy},
	{87, 99, "Thunderstorm", SeverityHeavy},
}

// ClassifyWeather maps a WMO weather code to a condition label and severity.
// Codes outside 0..99 fall back to Unknown/light.
func ClassifyWeather(code int) (string, Severity) {
	for _, b := range wmoBands {
		if code >= b.lo && code <= b.hi {
			return b.label, b.severity
		}
	}
	return "Unknown", SeverityLight
}

// SurgeForSeverity returns the base demand surge percentage for a severity
func SurgeForSeverity(s Severity) int {
	switch s {
	case SeverityHeavy:
		return 40
	case SeverityModerate:
		return 20
	case SeverityLight:
		return 8
	default:
		return 5
	}
}

// WindDescription buckets a wind speed in km/h
func WindDescription(speedKmh float64) string {
	switch {
	case speedKmh < 5:
		return "Light"
	case speedKmh < 20:
		return "Moderate"
	case speedKmh < 40:
		return "Strong"
	default:
		return "Very Strong"
	}
}

// RegionalSurge applies each region's offset to the severity's base surge
func RegionalSurge(s Severity, condition string, regions []Region) []RegionSurge {
	base := SurgeForSeverity(s)
	out := make([]RegionSurge, 0, len(regions))
	for _, r := range regions {
		out = append(out, RegionSurge{
			Region:    r.Name,
			Surge:     max(base-r.Offset, minRegionSurge),
			Condition: condition,
		})
	}
	return out
}

// Assess derives the full impact of a reading
func Assess(cw CurrentWeather, regions []Region) Impact {
	label, severity := ClassifyWeather(cw.WeatherCode)
	return Impact{
		Condition: label,
		Severity:  severity,
		Wind:      WindDescription(cw.WindSpeed),
		BaseSurge: SurgeForSeverity(severity),
		Alert:     severity == SeverityModerate || severity == SeverityHeavy,
		Regions:   RegionalSurge(severity, label, regions),
	}
}
