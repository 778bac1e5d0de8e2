package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// AlertService handles alert rule and alert API calls
type AlertService struct {
	client *Client
}

// RuleRequest creates or replaces an alert rule
type RuleRequest struct {
	SubscriptionID string     `json:"subscription_id,omitempty"`
	Name           string     `json:"name"`
	RuleType       string     `json:"rule_type"`
	Severity       string     `json:"severity"`
	Cadence        string     `json:"cadence,omitempty"`
	IsActive       *bool      `json:"is_active,omitempty"`
	Params         RuleParams `json:"params"`
}

// AlertListOptions filters an alert listing
type AlertListOptions struct {
	ListOptions
	SubscriptionID string
	RuleID         string
	Status         string
	Severity       string
	AlertType      string
}

type alertPage struct {
	Data       []Alert `json:"data"`
	TotalItems int64   `json:"total_items"`
}

// ListRules retrieves alert rules
func (s *AlertService) ListRules(ctx context.Context, subscriptionID string, activeOnly bool) ([]Rule, error) {
	query := url.Values{}
	if subscriptionID != "" {
		query.Set("subscription_id", subscriptionID)
	}
	if activeOnly {
		query.Set("active", "true")
	}
	path := "/api/v1/rules"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var rules []Rule
	if err := s.client.doRequest(ctx, http.MethodGet, path, nil, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// GetRule retrieves a single rule by ID
func (s *AlertService) GetRule(ctx context.Context, id string) (*Rule, error) {
	var rule Rule
	if err := s.client.doRequest(ctx, http.MethodGet, "/api/v1/rules/"+id, nil, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

// CreateRule creates a new alert rule
func (s *AlertService) CreateRule(ctx context.Context, req RuleRequest) (*Rule, error) {
	var rule Rule
	if err := s.client.doRequest(ctx, http.MethodPost, "/api/v1/rules", req, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

// UpdateRule replaces a rule's definition
func (s *AlertService) UpdateRule(ctx context.Context, id string, req RuleRequest) (*Rule, error) {
	var rule Rule
	if err := s.client.doRequest(ctx, http.MethodPut, "/api/v1/rules/"+id, req, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

// DeleteRule removes a rule
func (s *AlertService) DeleteRule(ctx context.Context, id string) error {
	return s.client.doRequest(ctx, http.MethodDelete, "/api/v1/rules/"+id, nil, nil)
}

// Evaluate runs the rule engine on demand for one subscription
func (s *AlertService) Evaluate(ctx context.Context, subscriptionID string) ([]Alert, error) {
	req := map[string]string{"subscription_id": subscriptionID}

	var alerts []Alert
	if err := s.client.doRequest(ctx, http.MethodPost, "/api/v1/rules/evaluate", req, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// List retrieves alerts with pagination and filtering
func (s *AlertService) List(ctx context.Context, opts *AlertListOptions) ([]Alert, int64, error) {
	query := url.Values{}
	if opts != nil {
		if opts.Page > 0 {
			query.Set("page", strconv.Itoa(opts.Page))
		}
		if opts.PageSize > 0 {
			query.Set("page_size", strconv.Itoa(opts.PageSize))
		}
		if opts.SubscriptionID != "" {
			query.Set("subscription_id", opts.SubscriptionID)
		}
		if opts.RuleID != "" {
			query.Set("rule_id", opts.RuleID)
		}
		if opts.Status != "" {
			query.Set("status", opts.Status)
		}
		if opts.Severity != "" {
			query.Set("severity", opts.Severity)
		}
		if opts.AlertType != "" {
			query.Set("type", opts.AlertType)
		}
	}

	path := "/api/v1/alerts"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var page alertPage
	if err := s.client.doRequest(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, 0, err
	}
	return page.Data, page.TotalItems, nil
}

// Get retrieves a single alert by ID
func (s *AlertService) Get(ctx context.Context, id string) (*Alert, error) {
	var a Alert
	if err := s.client.doRequest(ctx, http.MethodGet, "/api/v1/alerts/"+id, nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Summary retrieves alert counts grouped by status
func (s *AlertService) Summary(ctx context.Context) (map[string]int, error) {
	var counts map[string]int
	if err := s.client.doRequest(ctx, http.MethodGet, "/api/v1/alerts/summary", nil, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

// Acknowledge moves an alert to acknowledged
func (s *AlertService) Acknowledge(ctx context.Context, id string) error {
	path := fmt.Sprintf("/api/v1/alerts/%s/acknowledge", id)
	return s.client.doRequest(ctx, http.MethodPost, path, nil, nil)
}

// Resolve moves an alert to resolved
func (s *AlertService) Resolve(ctx context.Context, id string) error {
	path := fmt.Sprintf("/api/v1/alerts/%s/resolve", id)
	return s.client.doRequest(ctx, http.MethodPost, path, nil, nil)
}
