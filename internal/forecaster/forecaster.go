// Package forecaster implements the spend projection models used to
// forecast daily cost from historical totals.
package forecaster

import (
	"math"
	"time"

	"github.com/costwatch/costwatch/internal/domain/forecast"
)

// Observation is one day of observed total spend, ordered by date
// ascending
type Observation struct {
	Date   time.Time
	Amount float64
}

// Prediction is one forecast day with its confidence interval
type Prediction struct {
	Date       time.Time
	Predicted  float64
	LowerBound float64
	UpperBound float64
}

// Model projects future daily spend from a history of observations.
// History shorter than MinHistory must be skipped by the caller.
type Model interface {
	Name() string
	MinHistory() int
	Forecast(history []Observation, horizon int) ([]Prediction, error)
}

// Models builds all forecast models with the given minimum history
func Models(minHistory int) []Model {
	return []Model{
		NewLinear(minHistory),
		NewSeasonal(minHistory),
	}
}

// ModelNames lists the supported model type names
func ModelNames() []string {
	return []string{forecast.ModelLinear, forecast.ModelSeasonal}
}

// interval width multiplier for a 95% confidence interval under
// normally distributed residuals
const ciMultiplier = 1.96

func bounds(predicted, residualSD float64) (lower, upper float64) {
	lower = predicted - ciMultiplier*residualSD
	if lower < 0 {
		lower = 0
	}
	upper = predicted + ciMultiplier*residualSD
	return lower, upper
}

func residualStdDev(residuals []float64) float64 {
	if len(residuals) < 2 {
		return 0
	}
	var sum float64
	for _, r := range residuals {
		sum += r
	}
	m := sum / float64(len(residuals))
	var ss float64
	for _, r := range residuals {
		d := r - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(residuals)-1))
}

func isWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
