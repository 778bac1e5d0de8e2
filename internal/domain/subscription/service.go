package subscription

import "context"

// Service defines subscription business logic
type Service interface {
	// Register creates a subscription on behalf of the ingestion adapter
	Register(ctx context.Context, displayName, credentialRef string) (*Subscription, error)

	// GetByID retrieves a subscription by ID
	GetByID(ctx context.Context, id string) (*Subscription, error)

	// List retrieves subscriptions with filters
	List(ctx context.Context, filter Filter) ([]*Subscription, error)

	// Deactivate soft-deactivates a subscription. Subscriptions referenced
	// by budgets or rules are never deleted.
	Deactivate(ctx context.Context, id string) error
}
