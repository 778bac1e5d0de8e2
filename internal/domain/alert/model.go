package alert

import "time"

// Alert represents a materialized, lifecycle-tracked breach notification.
// Status only ever moves forward: active -> acknowledged -> resolved, or
// active -> resolved directly. A fresh breach after resolution creates a
// new Alert row.
type Alert struct {
	ID             string     `json:"id"`
	RuleID         string     `json:"rule_id,omitempty"` // empty for meta-alerts
	SubscriptionID string     `json:"subscription_id,omitempty"`
	Severity       string     `json:"severity"`
	AlertType      string     `json:"alert_type"`
	TriggeredValue float64    `json:"triggered_value"`
	Message        string     `json:"message"`
	Status         string     `json:"status"`
	Resolution     string     `json:"resolution,omitempty"` // user or auto
	TriggeredAt    time.Time  `json:"triggered_at"`
	LastEvaluated  time.Time  `json:"last_evaluated"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	AcknowledgedBy string     `json:"acknowledged_by,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy     string     `json:"resolved_by,omitempty"`
}

// Alert statuses
const (
	StatusActive       = "active"
	StatusAcknowledged = "acknowledged"
	StatusResolved     = "resolved"
)

// Alert types. The first three mirror the rule types; delivery_failure is
// the system meta-alert raised when a webhook endpoint is deactivated.
const (
	TypeBudgetThreshold = "budget_threshold"
	TypeAnomaly         = "anomaly"
	TypeForecastOverrun = "forecast_overrun"
	TypeDeliveryFailure = "delivery_failure"
)

// Severity levels, ordered low < medium < high < critical
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Resolution kinds
const (
	ResolutionUser = "user"
	ResolutionAuto = "auto"
)

// SystemActor is recorded when the engine resolves an alert itself
const SystemActor = "system"

// SeverityRank returns the ordering rank of a severity
func SeverityRank(severity string) int {
	switch severity {
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 0
	}
}

// CanTransition reports whether an alert status change is a legal forward
// move. Resolved and acknowledged alerts never revert to active.
func CanTransition(from, to string) bool {
	switch from {
	case StatusActive:
		return to == StatusAcknowledged || to == StatusResolved
	case StatusAcknowledged:
		return to == StatusResolved
	default:
		return false
	}
}

// Filter contains alert filtering options
type Filter struct {
	SubscriptionID string
	RuleID         string
	Status         string
	Severity       string
	AlertType      string
}
