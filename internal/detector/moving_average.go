package detector

import (
	"math"

	"github.com/costwatch/costwatch/internal/domain/anomaly"
)

// MovingAverage flags points that deviate from the trailing average of
// the preceding window by more than a percentage threshold. Catches
// sudden shifts that the whole-series methods dilute away.
type MovingAverage struct {
	Window     int
	PercentCut float64
	MinData    int
}

// NewMovingAverage creates a moving-average detector. percentCut is the
// deviation threshold as a percentage of the trailing average, e.g. 50
// flags points more than 50% above or below it.
func NewMovingAverage(window int, percentCut float64, minData int) *MovingAverage {
	if window <= 0 {
		window = 7
	}
	return &MovingAverage{Window: window, PercentCut: percentCut, MinData: minData}
}

func (d *MovingAverage) Name() string { return anomaly.MethodMovingAverage }

func (d *MovingAverage) MinPoints() int { return d.MinData }

func (d *MovingAverage) Detect(series []Point) []Flag {
	if len(series) < d.MinPoints() {
		return nil
	}

	var flags []Flag
	for i := d.Window; i < len(series); i++ {
		window := amounts(series[i-d.Window : i])
		avg := mean(window)
		if avg == 0 {
			continue
		}
		v := series[i].Amount
		pct := math.Abs(v-avg) / avg * 100
		if pct < d.PercentCut {
			continue
		}
		flags = append(flags, Flag{
			Index:      i,
			Expected:   avg,
			Deviation:  v - avg,
			Confidence: math.Min(1, pct/(2*d.PercentCut)),
		})
	}
	return flags
}
