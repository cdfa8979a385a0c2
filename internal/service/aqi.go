package service

// Air-quality bands shown next to each channel. Cut points follow the
// dashboard gauge bands of the deployed study.
const (
	BandGood               = "good"
	BandModerate           = "moderate"
	BandUnhealthySensitive = "unhealthy_sensitive"
	BandUnhealthy          = "unhealthy"
	BandVeryUnhealthy      = "very_unhealthy"
	BandHazardous          = "hazardous"
)

func pm25Band(v float64) string {
	switch {
	case v <= 25:
		return BandGood
	case v <= 50:
		return BandModerate
	case v <= 75:
		return BandUnhealthySensitive
	case v <= 100:
		return BandUnhealthy
	case v <= 125:
		return BandVeryUnhealthy
	default:
		return BandHazardous
	}
}
