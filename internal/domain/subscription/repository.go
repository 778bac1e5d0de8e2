package subscription

import (
	"context"
	"time"
)

// Repository defines the interface for subscription data access
type Repository interface {
	// Create registers a new subscription
	Create(ctx context.Context, sub *Subscription) error

	// GetByID retrieves a subscription by ID
	GetByID(ctx context.Context, id string) (*Subscription, error)

	// Update updates a subscription record
	Update(ctx context.Context, sub *Subscription) error

	// List retrieves subscriptions with filters
	List(ctx context.Context, filter Filter) ([]*Subscription, error)

	// MarkSyncResult records the outcome of a sync cycle
	MarkSyncResult(ctx context.Context, id string, at time.Time, status, errMsg string) error

	// HasReferences reports whether budgets or alert rules still reference
	// the subscription
	HasReferences(ctx context.Context, id string) (bool, error)
}
