package budget

import "context"

// Repository defines the interface for budget data access
type Repository interface {
	// Create creates a new budget with its thresholds
	Create(ctx context.Context, b *Budget) error

	// GetByID retrieves a budget by ID
	GetByID(ctx context.Context, id string) (*Budget, error)

	// Update updates a budget definition and its thresholds
	Update(ctx context.Context, b *Budget) error

	// Delete deletes a budget
	Delete(ctx context.Context, id string) error

	// List retrieves budgets with filters
	List(ctx context.Context, filter Filter) ([]*Budget, error)

	// UpdateDerived writes the recomputed current spend and status.
	// BudgetTracker is the only caller.
	UpdateDerived(ctx context.Context, id string, currentSpend float64, status string) error
}
