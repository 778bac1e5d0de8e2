package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// BudgetService handles budget API calls
type BudgetService struct {
	client *Client
}

// BudgetRequest creates or replaces a budget definition
type BudgetRequest struct {
	SubscriptionID string      `json:"subscription_id"`
	Name           string      `json:"name"`
	Amount         float64     `json:"amount"`
	Currency       string      `json:"currency"`
	Period         string      `json:"period"`
	PeriodStart    string      `json:"period_start,omitempty"`
	PeriodEnd      string      `json:"period_end,omitempty"`
	Thresholds     []Threshold `json:"thresholds"`
}

// RecomputeResult is the outcome of a budget recompute
type RecomputeResult struct {
	ID           string  `json:"id"`
	Status       string  `json:"status"`
	CurrentSpend float64 `json:"current_spend"`
}

// List retrieves budgets with optional filters
func (s *BudgetService) List(ctx context.Context, subscriptionID, status string) ([]Budget, error) {
	query := url.Values{}
	if subscriptionID != "" {
		query.Set("subscription_id", subscriptionID)
	}
	if status != "" {
		query.Set("status", status)
	}
	path := "/api/v1/budgets"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var budgets []Budget
	if err := s.client.doRequest(ctx, http.MethodGet, path, nil, &budgets); err != nil {
		return nil, err
	}
	return budgets, nil
}

// Get retrieves a single budget by ID
func (s *BudgetService) Get(ctx context.Context, id string) (*Budget, error) {
	var b Budget
	if err := s.client.doRequest(ctx, http.MethodGet, "/api/v1/budgets/"+id, nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Create creates a new budget
func (s *BudgetService) Create(ctx context.Context, req BudgetRequest) (*Budget, error) {
	var b Budget
	if err := s.client.doRequest(ctx, http.MethodPost, "/api/v1/budgets", req, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Update replaces a budget's definition
func (s *BudgetService) Update(ctx context.Context, id string, req BudgetRequest) (*Budget, error) {
	var b Budget
	if err := s.client.doRequest(ctx, http.MethodPut, "/api/v1/budgets/"+id, req, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Delete removes a budget
func (s *BudgetService) Delete(ctx context.Context, id string) error {
	return s.client.doRequest(ctx, http.MethodDelete, "/api/v1/budgets/"+id, nil, nil)
}

// Recompute re-derives current spend and status from cost records
func (s *BudgetService) Recompute(ctx context.Context, id string) (*RecomputeResult, error) {
	path := fmt.Sprintf("/api/v1/budgets/%s/recompute", id)

	var result RecomputeResult
	if err := s.client.doRequest(ctx, http.MethodPost, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Forecast retrieves the budget's run-rate projection to period end
func (s *BudgetService) Forecast(ctx context.Context, id string) (*PeriodEndForecast, error) {
	path := fmt.Sprintf("/api/v1/budgets/%s/forecast", id)

	var fc PeriodEndForecast
	if err := s.client.doRequest(ctx, http.MethodGet, path, nil, &fc); err != nil {
		return nil, err
	}
	return &fc, nil
}
