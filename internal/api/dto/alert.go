package dto

import (
	"time"

	"github.com/costwatch/costwatch/internal/domain/alert"
)

// RuleRequest represents a rule create or replace request. Cadence is a
// Go duration string such as "1h" or "30m"; empty means evaluate on
// every pass.
type RuleRequest struct {
	SubscriptionID string           `json:"subscription_id,omitempty"`
	Name           string           `json:"name" validate:"required,min=1,max=200"`
	RuleType       string           `json:"rule_type" validate:"required,oneof=budget_threshold anomaly forecast_overrun"`
	Severity       string           `json:"severity" validate:"required,oneof=low medium high critical"`
	Cadence        string           `json:"cadence,omitempty"`
	IsActive       *bool            `json:"is_active,omitempty"`
	Params         alert.RuleParams `json:"params"`
}

// RuleResponse represents a rule in API responses
type RuleResponse struct {
	ID             string           `json:"id"`
	SubscriptionID string           `json:"subscription_id,omitempty"`
	Name           string           `json:"name"`
	RuleType       string           `json:"rule_type"`
	Severity       string           `json:"severity"`
	Cadence        string           `json:"cadence,omitempty"`
	IsActive       bool             `json:"is_active"`
	Params         alert.RuleParams `json:"params"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// NewRuleResponse converts a rule for API output
func NewRuleResponse(r *alert.Rule) RuleResponse {
	resp := RuleResponse{
		ID:             r.ID,
		SubscriptionID: r.SubscriptionID,
		Name:           r.Name,
		RuleType:       r.RuleType,
		Severity:       r.Severity,
		IsActive:       r.IsActive,
		Params:         r.Params,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.Cadence > 0 {
		resp.Cadence = r.Cadence.String()
	}
	return resp
}

// EvaluateRulesRequest scopes an on-demand evaluation pass
type EvaluateRulesRequest struct {
	SubscriptionID string `json:"subscription_id" validate:"required"`
}
