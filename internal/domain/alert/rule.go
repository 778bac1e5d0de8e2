package alert

import (
	"encoding/json"
	"fmt"
	"time"
)

// Rule represents a configured alert rule. Condition parameters are a
// tagged variant: the rule type selects exactly one of the typed parameter
// structs, and invalid combinations are rejected at construction.
type Rule struct {
	ID             string        `json:"id"`
	SubscriptionID string        `json:"subscription_id"` // empty means all subscriptions
	Name           string        `json:"name"`
	RuleType       string        `json:"rule_type"`
	Severity       string        `json:"severity"`
	Params         RuleParams    `json:"params"`
	IsActive       bool          `json:"is_active"`
	Cadence        time.Duration `json:"cadence"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Rule types
const (
	RuleBudgetThreshold = "budget_threshold"
	RuleAnomaly         = "anomaly"
	RuleForecastOverrun = "forecast_overrun"
)

// RuleParams holds exactly one parameter struct, selected by the rule type
type RuleParams struct {
	BudgetThreshold *BudgetThresholdParams `json:"budget_threshold,omitempty"`
	Anomaly         *AnomalyParams         `json:"anomaly,omitempty"`
	ForecastOverrun *ForecastOverrunParams `json:"forecast_overrun,omitempty"`
}

// BudgetThresholdParams configures a budget_threshold rule. The rule is
// true when the referenced budget's status is at or above MinStatus.
// An empty BudgetID covers every budget of the rule's subscription.
type BudgetThresholdParams struct {
	BudgetID  string `json:"budget_id,omitempty"`
	MinStatus string `json:"min_status"` // warning or exceeded
}

// AnomalyParams configures an anomaly rule
type AnomalyParams struct {
	MinConfidence float64 `json:"min_confidence"`
	LookbackDays  int     `json:"lookback_days"`
}

// ForecastOverrunParams configures a forecast_overrun rule. An empty
// ModelType uses the budget's own run-rate projection; a set ModelType
// sums that model's stored forecasts over the period's remaining days.
type ForecastOverrunParams struct {
	BudgetID  string `json:"budget_id,omitempty"`
	ModelType string `json:"model_type,omitempty"`
}

// ValidateParams checks that the params variant matches the rule type and
// that its values are usable
func (r *Rule) ValidateParams() error {
	switch r.RuleType {
	case RuleBudgetThreshold:
		p := r.Params.BudgetThreshold
		if p == nil || r.Params.Anomaly != nil || r.Params.ForecastOverrun != nil {
			return fmt.Errorf("budget_threshold rule requires exactly the budget_threshold params")
		}
		if p.MinStatus != "warning" && p.MinStatus != "exceeded" {
			return fmt.Errorf("budget_threshold min_status must be warning or exceeded, got %q", p.MinStatus)
		}
	case RuleAnomaly:
		p := r.Params.Anomaly
		if p == nil || r.Params.BudgetThreshold != nil || r.Params.ForecastOverrun != nil {
			return fmt.Errorf("anomaly rule requires exactly the anomaly params")
		}
		if p.MinConfidence < 0 || p.MinConfidence > 1 {
			return fmt.Errorf("anomaly min_confidence must be within [0,1], got %v", p.MinConfidence)
		}
		if p.LookbackDays < 1 {
			return fmt.Errorf("anomaly lookback_days must be at least 1, got %d", p.LookbackDays)
		}
	case RuleForecastOverrun:
		p := r.Params.ForecastOverrun
		if p == nil || r.Params.BudgetThreshold != nil || r.Params.Anomaly != nil {
			return fmt.Errorf("forecast_overrun rule requires exactly the forecast_overrun params")
		}
		if p.ModelType != "" && p.ModelType != "linear" && p.ModelType != "seasonal" {
			return fmt.Errorf("forecast_overrun model_type must be linear or seasonal, got %q", p.ModelType)
		}
	default:
		return fmt.Errorf("unknown rule type %q", r.RuleType)
	}
	return nil
}

// MarshalParams serializes the params variant for storage
func (r *Rule) MarshalParams() (string, error) {
	b, err := json.Marshal(r.Params)
	if err != nil {
		return "", fmt.Errorf("marshal rule params: %w", err)
	}
	return string(b), nil
}

// UnmarshalParams restores the params variant from storage
func (r *Rule) UnmarshalParams(raw string) error {
	if raw == "" {
		return fmt.Errorf("rule %s has empty params", r.ID)
	}
	if err := json.Unmarshal([]byte(raw), &r.Params); err != nil {
		return fmt.Errorf("unmarshal rule params: %w", err)
	}
	return r.ValidateParams()
}

// RuleFilter contains rule filtering options
type RuleFilter struct {
	SubscriptionID string
	RuleType       string
	ActiveOnly     bool
}
