package detector

import (
	"math"

	"github.com/costwatch/costwatch/internal/domain/anomaly"
)

// ZScore flags points whose standardized distance from the series mean
// exceeds the cutoff. The default cutoff of 3.0 corresponds to roughly
// 0.3% of points under a normal distribution.
type ZScore struct {
	Cutoff  float64
	MinData int
}

// NewZScore creates a z-score detector with the given cutoff and
// minimum series length
func NewZScore(cutoff float64, minData int) *ZScore {
	return &ZScore{Cutoff: cutoff, MinData: minData}
}

func (z *ZScore) Name() string { return anomaly.MethodZScore }

func (z *ZScore) MinPoints() int { return z.MinData }

func (z *ZScore) Detect(series []Point) []Flag {
	if len(series) < z.MinPoints() {
		return nil
	}
	values := amounts(series)
	m := mean(values)
	sd := stdDev(values)
	if sd == 0 {
		return nil
	}

	var flags []Flag
	for i, v := range values {
		score := math.Abs(v-m) / sd
		if score < z.Cutoff {
			continue
		}
		flags = append(flags, Flag{
			Index:      i,
			Expected:   m,
			Deviation:  v - m,
			Confidence: math.Min(1, score/(2*z.Cutoff)),
		})
	}
	return flags
}
