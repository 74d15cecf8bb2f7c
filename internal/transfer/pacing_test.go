package transfer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func buffered(ratio float64) uint64 {
	return uint64(ratio * ChannelCapacity)
}

func TestPacingMultiplier(t *testing.T) {
	cases := []struct {
		ratio float64
		want  int
	}{
		{0.9, 20},
		{0.75, 10},
		{0.6, 5},
		{0.3, 1},
		{0, 1},
		{0.5, 1},
		{0.8, 10},
		{1.5, 20},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, PacingMultiplier(buffered(tc.ratio)), "ratio %v", tc.ratio)
	}
}

func TestPacingMonotonic(t *testing.T) {
	ratios := []float64{0.9, 0.75, 0.6, 0.3}
	prev := time.Duration(1<<63 - 1)
	for _, r := range ratios {
		d := PacingDelay(buffered(r), BasePacingDelay)
		assert.LessOrEqual(t, d, prev, "ratio %v", r)
		prev = d
	}
	assert.Equal(t, 100*time.Millisecond, PacingDelay(buffered(0.9), BasePacingDelay))
	assert.Equal(t, 5*time.Millisecond, PacingDelay(0, BasePacingDelay))
}
