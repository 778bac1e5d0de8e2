package forecast

import "time"

// Forecast represents a model-based prediction of one day's total spend
// with a confidence interval. Accuracy is filled in retrospectively once
// the forecast date's actual total is known.
type Forecast struct {
	ID             string     `json:"id"`
	SubscriptionID string     `json:"subscription_id"`
	ForecastDate   time.Time  `json:"forecast_date"`
	Predicted      float64    `json:"predicted"`
	LowerBound     float64    `json:"lower_bound"`
	UpperBound     float64    `json:"upper_bound"`
	ModelType      string     `json:"model_type"`
	Accuracy       *float64   `json:"accuracy,omitempty"` // 0..1, set once actuals arrive
	GeneratedAt    time.Time  `json:"generated_at"`
	ScoredAt       *time.Time `json:"scored_at,omitempty"`
}

// Model types
const (
	ModelLinear   = "linear"
	ModelSeasonal = "seasonal"
)

// ModelTypes lists the supported model types
func ModelTypes() []string {
	return []string{ModelLinear, ModelSeasonal}
}

// Filter contains forecast filtering options
type Filter struct {
	SubscriptionID string
	ModelType      string
	From           *time.Time
	To             *time.Time
}
