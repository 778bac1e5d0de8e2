package budget

import "context"

// Service defines the budget tracker business logic
type Service interface {
	// Create validates and persists a budget definition
	Create(ctx context.Context, b *Budget) error

	// GetByID retrieves a budget by ID
	GetByID(ctx context.Context, id string) (*Budget, error)

	// Update validates and persists changes to a budget definition
	Update(ctx context.Context, b *Budget) error

	// Delete deletes a budget
	Delete(ctx context.Context, id string) error

	// List retrieves budgets with filters
	List(ctx context.Context, filter Filter) ([]*Budget, error)

	// ListByStatus retrieves budgets with the given derived status
	ListByStatus(ctx context.Context, status string) ([]*Budget, error)

	// Recompute derives current spend from cost records for the budget's
	// period-to-date and sets the status from its thresholds
	Recompute(ctx context.Context, id string) (status string, currentSpend float64, err error)

	// RecomputeForSubscription recomputes every budget of one subscription
	RecomputeForSubscription(ctx context.Context, subscriptionID string) error

	// ForecastPeriodEnd extrapolates the spend run rate over the remaining
	// days of the budget period
	ForecastPeriodEnd(ctx context.Context, id string) (*PeriodEndForecast, error)
}
