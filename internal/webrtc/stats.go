package webrtc

import (
	"time"

	pion "github.com/pion/webrtc/v4"
)

// NominatedRTT returns the current round-trip time of the nominated candidate
// pair. A pair that has not yet received a connectivity-check response has no
// measurement and reports false.
func NominatedRTT(report pion.StatsReport) (time.Duration, bool) {
	for _, s := range report {
		var pair pion.ICECandidatePairStats
		switch v := s.(type) {
		case pion.ICECandidatePairStats:
			pair = v
		case *pion.ICECandidatePairStats:
			if v == nil {
				continue
			}
			pair = *v
		default:
			continue
		}

		if !pair.Nominated || pair.ResponsesReceived == 0 {
			continue
		}
		return time.Duration(pair.CurrentRoundTripTime * float64(time.Second)), true
	}
	return 0, false
}
