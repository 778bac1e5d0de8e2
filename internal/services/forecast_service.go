package services

import (
	"context"
	"math"
	"time"

	"github.com/costwatch/costwatch/internal/domain/cost"
	"github.com/costwatch/costwatch/internal/domain/forecast"
	"github.com/costwatch/costwatch/internal/domain/subscription"
	"github.com/costwatch/costwatch/internal/forecaster"
	"github.com/costwatch/costwatch/internal/pkg/errors"
	"github.com/costwatch/costwatch/internal/pkg/logger"
)

// ForecastService implements forecast.Service
type ForecastService struct {
	repo           forecast.Repository
	costRepo       cost.Repository
	subRepo        subscription.Repository
	models         map[string]forecaster.Model
	historyDays    int
	accuracyWindow int
	logger         *logger.Logger
	now            func() time.Time
}

// NewForecastService creates a new forecast service. historyDays bounds
// how far back daily totals are read when fitting; accuracyWindow is
// the number of scored forecasts the rolling accuracy averages over.
func NewForecastService(repo forecast.Repository, costRepo cost.Repository, subRepo subscription.Repository, models []forecaster.Model, historyDays, accuracyWindow int, log *logger.Logger) forecast.Service {
	byName := make(map[string]forecaster.Model, len(models))
	for _, m := range models {
		byName[m.Name()] = m
	}
	return &ForecastService{
		repo:           repo,
		costRepo:       costRepo,
		subRepo:        subRepo,
		models:         byName,
		historyDays:    historyDays,
		accuracyWindow: accuracyWindow,
		logger:         log,
		now:            time.Now,
	}
}

// Generate fits the model to the subscription's daily totals and writes
// one forecast row per horizon day. An empty model type generates with
// every model.
func (s *ForecastService) Generate(ctx context.Context, subscriptionID string, horizonDays int, modelType string) ([]*forecast.Forecast, error) {
	if _, err := s.subRepo.GetByID(ctx, subscriptionID); err != nil {
		return nil, err
	}
	if horizonDays < 1 {
		return nil, errors.BadRequest("Forecast horizon must be at least one day")
	}

	var models []forecaster.Model
	if modelType == "" {
		for _, name := range forecaster.ModelNames() {
			models = append(models, s.models[name])
		}
	} else {
		m, ok := s.models[modelType]
		if !ok {
			return nil, errors.BadRequest("Unknown forecast model: " + modelType)
		}
		models = []forecaster.Model{m}
	}

	now := s.now()
	totals, err := s.costRepo.DailyTotals(ctx, subscriptionID, now.AddDate(0, 0, -s.historyDays), now)
	if err != nil {
		return nil, err
	}

	history := make([]forecaster.Observation, len(totals))
	for i, t := range totals {
		history[i] = forecaster.Observation{Date: t.Date, Amount: t.Total}
	}

	var out []*forecast.Forecast
	for _, model := range models {
		predictions, err := model.Forecast(history, horizonDays)
		if err != nil {
			return nil, err
		}

		for _, p := range predictions {
			f := &forecast.Forecast{
				SubscriptionID: subscriptionID,
				ForecastDate:   p.Date,
				Predicted:      p.Predicted,
				LowerBound:     p.LowerBound,
				UpperBound:     p.UpperBound,
				ModelType:      model.Name(),
				GeneratedAt:    now,
			}
			if err := s.repo.Upsert(ctx, f); err != nil {
				return nil, err
			}
			out = append(out, f)
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"subscription_id": subscriptionID,
		"horizon_days":    horizonDays,
		"forecasts":       len(out),
	}).Info("Forecasts generated")

	return out, nil
}

// List retrieves forecasts with filters
func (s *ForecastService) List(ctx context.Context, filter forecast.Filter) ([]*forecast.Forecast, error) {
	return s.repo.List(ctx, filter)
}

// UpdateAccuracy scores every unscored forecast whose date has passed.
// Accuracy is max(0, 1 - |actual-predicted| / actual); a zero-spend
// actual scores 1 only when the prediction was also zero.
func (s *ForecastService) UpdateAccuracy(ctx context.Context, subscriptionID string, asOf time.Time) error {
	unscored, err := s.repo.ListUnscored(ctx, subscriptionID, asOf)
	if err != nil {
		return err
	}
	if len(unscored) == 0 {
		return nil
	}

	first, last := unscored[0].ForecastDate, unscored[0].ForecastDate
	for _, f := range unscored[1:] {
		if f.ForecastDate.Before(first) {
			first = f.ForecastDate
		}
		if f.ForecastDate.After(last) {
			last = f.ForecastDate
		}
	}

	totals, err := s.costRepo.DailyTotals(ctx, subscriptionID, first, last)
	if err != nil {
		return err
	}
	actuals := make(map[time.Time]float64, len(totals))
	for _, t := range totals {
		actuals[t.Date] = t.Total
	}

	scored := 0
	for _, f := range unscored {
		actual, ok := actuals[f.ForecastDate]
		if !ok {
			// no cost data for that day yet
			continue
		}

		accuracy := scoreAccuracy(f.Predicted, actual)
		if err := s.repo.SetAccuracy(ctx, f.ID, accuracy, asOf); err != nil {
			return err
		}
		scored++
	}

	if scored > 0 {
		s.logger.WithFields(map[string]interface{}{
			"subscription_id": subscriptionID,
			"scored":          scored,
		}).Info("Forecast accuracy updated")
	}

	return nil
}

// ModelAccuracy returns the rolling accuracy for a model
func (s *ForecastService) ModelAccuracy(ctx context.Context, subscriptionID, modelType string) (float64, int, error) {
	if _, ok := s.models[modelType]; !ok {
		return 0, 0, errors.BadRequest("Unknown forecast model: " + modelType)
	}
	return s.repo.RollingAccuracy(ctx, subscriptionID, modelType, s.accuracyWindow)
}

// BestModel returns the historically most accurate model type,
// defaulting to linear when nothing is scored yet
func (s *ForecastService) BestModel(ctx context.Context, subscriptionID string) (string, error) {
	best := forecast.ModelLinear
	bestAccuracy := -1.0

	for _, name := range forecaster.ModelNames() {
		acc, n, err := s.repo.RollingAccuracy(ctx, subscriptionID, name, s.accuracyWindow)
		if err != nil {
			return "", err
		}
		if n > 0 && acc > bestAccuracy {
			best = name
			bestAccuracy = acc
		}
	}

	return best, nil
}

func scoreAccuracy(predicted, actual float64) float64 {
	if actual == 0 {
		if predicted == 0 {
			return 1
		}
		return 0
	}
	return math.Max(0, 1-math.Abs(actual-predicted)/actual)
}
