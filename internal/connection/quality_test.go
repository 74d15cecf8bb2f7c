package connection

import (
	"testing"
	"time"

	"github.com/BioHazard786/pastedrop/internal/status"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		rtt  time.Duration
		want status.Quality
	}{
		{15 * time.Millisecond, status.QualityExcellent},
		{0, status.QualityExcellent},
		{20 * time.Millisecond, status.QualityGood},
		{50 * time.Millisecond, status.QualityGood},
		{100 * time.Millisecond, status.QualityFair},
		{200 * time.Millisecond, status.QualityFair},
		{250 * time.Millisecond, status.QualityPoor},
		{300 * time.Millisecond, status.QualityPoor},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.rtt), "rtt %v", tc.rtt)
	}
}
