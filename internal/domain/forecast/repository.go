package forecast

import (
	"context"
	"time"
)

// Repository defines the interface for forecast data access
type Repository interface {
	// Upsert writes a forecast, replacing any existing row with the same
	// (subscription, forecast date, model type) key
	Upsert(ctx context.Context, f *Forecast) error

	// List retrieves forecasts with filters
	List(ctx context.Context, filter Filter) ([]*Forecast, error)

	// ListUnscored returns forecasts whose date has passed but whose
	// accuracy has not been computed yet
	ListUnscored(ctx context.Context, subscriptionID string, before time.Time) ([]*Forecast, error)

	// SetAccuracy records the retrospective accuracy for a forecast row
	SetAccuracy(ctx context.Context, id string, accuracy float64, scoredAt time.Time) error

	// RollingAccuracy returns the mean accuracy of the most recent scored
	// forecasts for a (subscription, model type) pair
	RollingAccuracy(ctx context.Context, subscriptionID, modelType string, window int) (float64, int, error)
}
