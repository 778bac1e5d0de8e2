package alert

import "context"

// Repository defines the interface for alert and rule data access
type Repository interface {
	// CreateRule creates a new alert rule
	CreateRule(ctx context.Context, r *Rule) error

	// GetRule retrieves a rule by ID
	GetRule(ctx context.Context, id string) (*Rule, error)

	// UpdateRule updates a rule definition
	UpdateRule(ctx context.Context, r *Rule) error

	// DeleteRule deletes a rule
	DeleteRule(ctx context.Context, id string) error

	// ListRules retrieves rules with filters. Rules with an empty
	// subscription ID (wildcard) match every subscription filter.
	ListRules(ctx context.Context, filter RuleFilter) ([]*Rule, error)

	// CreateAlert creates a new alert
	CreateAlert(ctx context.Context, a *Alert) error

	// GetAlert retrieves an alert by ID
	GetAlert(ctx context.Context, id string) (*Alert, error)

	// UpdateAlert updates an alert row
	UpdateAlert(ctx context.Context, a *Alert) error

	// FindActiveAlert returns the active alert for a (rule, subscription)
	// pair, or nil when none exists
	FindActiveAlert(ctx context.Context, ruleID, subscriptionID string) (*Alert, error)

	// ListAlerts retrieves alerts with filters and pagination
	ListAlerts(ctx context.Context, filter Filter, limit, offset int) ([]*Alert, int64, error)

	// CountAlertsByStatus counts alerts by status
	CountAlertsByStatus(ctx context.Context) (map[string]int, error)
}
