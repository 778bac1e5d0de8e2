package forecast

import (
	"context"
	"time"
)

// Service defines the forecast engine business logic
type Service interface {
	// Generate fits the model to the subscription's daily totals history
	// and writes one forecast row per day of the horizon
	Generate(ctx context.Context, subscriptionID string, horizonDays int, modelType string) ([]*Forecast, error)

	// List retrieves forecasts with filters
	List(ctx context.Context, filter Filter) ([]*Forecast, error)

	// UpdateAccuracy scores past forecasts whose actual daily totals have
	// become available
	UpdateAccuracy(ctx context.Context, subscriptionID string, asOf time.Time) error

	// ModelAccuracy returns the rolling accuracy for a model, and the
	// number of scored forecasts backing it
	ModelAccuracy(ctx context.Context, subscriptionID, modelType string) (float64, int, error)

	// BestModel returns the historically most accurate model type for a
	// subscription, defaulting to linear when nothing is scored yet
	BestModel(ctx context.Context, subscriptionID string) (string, error)
}
