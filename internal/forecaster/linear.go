package forecaster

import (
	apperrors "github.com/costwatch/costwatch/internal/pkg/errors"

	"github.com/costwatch/costwatch/internal/domain/forecast"
)

// Linear fits an ordinary least-squares trend line to the daily totals
// and extrapolates it over the horizon
type Linear struct {
	minHistory int
}

// NewLinear creates a linear trend model requiring at least minHistory
// days of observations
func NewLinear(minHistory int) *Linear {
	return &Linear{minHistory: minHistory}
}

func (m *Linear) Name() string { return forecast.ModelLinear }

func (m *Linear) MinHistory() int { return m.minHistory }

func (m *Linear) Forecast(history []Observation, horizon int) ([]Prediction, error) {
	if len(history) < m.minHistory {
		return nil, apperrors.InsufficientHistory(forecast.ModelLinear, len(history), m.minHistory)
	}

	slope, intercept := fitLine(history)

	residuals := make([]float64, len(history))
	for i, obs := range history {
		residuals[i] = obs.Amount - (intercept + slope*float64(i))
	}
	sd := residualStdDev(residuals)

	last := history[len(history)-1].Date
	out := make([]Prediction, horizon)
	for d := 0; d < horizon; d++ {
		x := float64(len(history) + d)
		predicted := intercept + slope*x
		if predicted < 0 {
			predicted = 0
		}
		lower, upper := bounds(predicted, sd)
		out[d] = Prediction{
			Date:       last.AddDate(0, 0, d+1),
			Predicted:  predicted,
			LowerBound: lower,
			UpperBound: upper,
		}
	}
	return out, nil
}

// fitLine returns the least-squares slope and intercept for amounts
// indexed by day offset
func fitLine(history []Observation) (slope, intercept float64) {
	n := float64(len(history))
	var sumX, sumY, sumXY, sumXX float64
	for i, obs := range history {
		x := float64(i)
		sumX += x
		sumY += obs.Amount
		sumXY += x * obs.Amount
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}
