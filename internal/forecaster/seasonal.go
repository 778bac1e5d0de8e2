package forecaster

import (
	apperrors "github.com/costwatch/costwatch/internal/pkg/errors"

	"github.com/costwatch/costwatch/internal/domain/forecast"
)

// Seasonal extends the linear trend with a weekday/weekend offset.
// Cloud spend commonly drops on weekends when dev environments idle,
// which a plain trend line smears across the whole week.
type Seasonal struct {
	minHistory int
}

// NewSeasonal creates a seasonal model requiring at least minHistory
// days of observations
func NewSeasonal(minHistory int) *Seasonal {
	return &Seasonal{minHistory: minHistory}
}

func (m *Seasonal) Name() string { return forecast.ModelSeasonal }

func (m *Seasonal) MinHistory() int { return m.minHistory }

func (m *Seasonal) Forecast(history []Observation, horizon int) ([]Prediction, error) {
	if len(history) < m.minHistory {
		return nil, apperrors.InsufficientHistory(forecast.ModelSeasonal, len(history), m.minHistory)
	}

	slope, intercept := fitLine(history)

	// average trend residual per day class
	var weekdaySum, weekendSum float64
	var weekdayN, weekendN int
	trendResiduals := make([]float64, len(history))
	for i, obs := range history {
		r := obs.Amount - (intercept + slope*float64(i))
		trendResiduals[i] = r
		if isWeekend(obs.Date) {
			weekendSum += r
			weekendN++
		} else {
			weekdaySum += r
			weekdayN++
		}
	}
	var weekdayOffset, weekendOffset float64
	if weekdayN > 0 {
		weekdayOffset = weekdaySum / float64(weekdayN)
	}
	if weekendN > 0 {
		weekendOffset = weekendSum / float64(weekendN)
	}

	// residuals after removing the seasonal offsets
	residuals := make([]float64, len(history))
	for i, obs := range history {
		offset := weekdayOffset
		if isWeekend(obs.Date) {
			offset = weekendOffset
		}
		residuals[i] = trendResiduals[i] - offset
	}
	sd := residualStdDev(residuals)

	last := history[len(history)-1].Date
	out := make([]Prediction, horizon)
	for d := 0; d < horizon; d++ {
		date := last.AddDate(0, 0, d+1)
		offset := weekdayOffset
		if isWeekend(date) {
			offset = weekendOffset
		}
		predicted := intercept + slope*float64(len(history)+d) + offset
		if predicted < 0 {
			predicted = 0
		}
		lower, upper := bounds(predicted, sd)
		out[d] = Prediction{
			Date:       date,
			Predicted:  predicted,
			LowerBound: lower,
			UpperBound: upper,
		}
	}
	return out, nil
}
