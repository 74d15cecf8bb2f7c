package connection

import (
	"time"

	"github.com/BioHazard786/pastedrop/internal/status"
)

// Quality thresholds on the nominated pair's round-trip time.
const (
	excellentBelow = 20 * time.Millisecond
	goodBelow      = 100 * time.Millisecond
	fairBelow      = 250 * time.Millisecond
)

// Classify maps a round-trip time onto a quality bucket.
func Classify(rtt time.Duration) status.Quality {
	switch {
	case rtt < excellentBelow:
		return status.QualityExcellent
	case rtt < goodBelow:
		return status.QualityGood
	case rtt < fairBelow:
		return status.QualityFair
	default:
		return status.QualityPoor
	}
}
