package detector

import (
	"math"

	"github.com/costwatch/costwatch/internal/domain/anomaly"
)

// IQR flags points falling outside the Tukey fences placed at 1.5 times
// the interquartile range beyond the first and third quartiles. Robust to
// the outliers it is looking for, unlike the z-score method.
type IQR struct {
	Multiplier float64
	MinData    int
}

// NewIQR creates an IQR detector with the standard 1.5 fence multiplier
func NewIQR(minData int) *IQR {
	return &IQR{Multiplier: 1.5, MinData: minData}
}

func (d *IQR) Name() string { return anomaly.MethodIQR }

func (d *IQR) MinPoints() int { return d.MinData }

func (d *IQR) Detect(series []Point) []Flag {
	if len(series) < d.MinPoints() {
		return nil
	}
	values := amounts(series)
	q1 := percentile(values, 25)
	q3 := percentile(values, 75)
	iqr := q3 - q1
	if iqr == 0 {
		return nil
	}
	lower := q1 - d.Multiplier*iqr
	upper := q3 + d.Multiplier*iqr
	median := percentile(values, 50)

	var flags []Flag
	for i, v := range values {
		if v >= lower && v <= upper {
			continue
		}
		// distance beyond the nearest fence, in fence widths
		var beyond float64
		if v > upper {
			beyond = (v - upper) / (d.Multiplier * iqr)
		} else {
			beyond = (lower - v) / (d.Multiplier * iqr)
		}
		flags = append(flags, Flag{
			Index:      i,
			Expected:   median,
			Deviation:  v - median,
			Confidence: math.Min(1, 0.5+beyond/2),
		})
	}
	return flags
}
