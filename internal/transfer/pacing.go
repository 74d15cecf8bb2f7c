package transfer

import "time"

// PacingMultiplier scales the base delay by how full the channel buffer is.
func PacingMultiplier(buffered uint64) int {
	ratio := float64(buffered) / float64(ChannelCapacity)
	switch {
	case ratio > 0.8:
		return 20
	case ratio > 0.7:
		return 10
	case ratio > 0.5:
		return 5
	default:
		return 1
	}
}

// PacingDelay is the wait before the next chunk given the current buffered amount.
func PacingDelay(buffered uint64, base time.Duration) time.Duration {
	return time.Duration(PacingMultiplier(buffered)) * base
}
