package alert

import "context"

// Service defines the alert rule engine business logic
type Service interface {
	// CreateRule validates and persists a rule
	CreateRule(ctx context.Context, r *Rule) error

	// GetRule retrieves a rule by ID
	GetRule(ctx context.Context, id string) (*Rule, error)

	// UpdateRule validates and persists rule changes
	UpdateRule(ctx context.Context, r *Rule) error

	// DeleteRule deletes a rule
	DeleteRule(ctx context.Context, id string) error

	// ListRules retrieves rules with filters
	ListRules(ctx context.Context, filter RuleFilter) ([]*Rule, error)

	// Evaluate runs every active rule that applies to the subscription
	// against the current budget/anomaly/forecast state, creating,
	// refreshing or auto-resolving alerts. Returns alerts that entered
	// the active state during this pass.
	Evaluate(ctx context.Context, subscriptionID string) ([]*Alert, error)

	// GetAlert retrieves an alert by ID
	GetAlert(ctx context.Context, id string) (*Alert, error)

	// ListAlerts retrieves alerts with filters and pagination
	ListAlerts(ctx context.Context, filter Filter, limit, offset int) ([]*Alert, int64, error)

	// Acknowledge moves an active alert to acknowledged, recording the actor
	Acknowledge(ctx context.Context, id, actor string) error

	// Resolve moves an alert to resolved, recording the actor
	Resolve(ctx context.Context, id, actor string) error

	// RaiseMeta creates a rule-less system alert (for example a dead
	// webhook endpoint)
	RaiseMeta(ctx context.Context, severity, message string, triggeredValue float64) (*Alert, error)

	// Summary counts alerts by status
	Summary(ctx context.Context) (map[string]int, error)
}
