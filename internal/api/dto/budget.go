package dto

// ThresholdInput represents one budget threshold
type ThresholdInput struct {
	Percentage float64 `json:"percentage" validate:"gt=0,lte=200"`
	Severity   string  `json:"severity" validate:"required,oneof=warning exceeded"`
}

// BudgetRequest represents a budget create or replace request.
// Period dates are required for custom periods and use YYYY-MM-DD.
type BudgetRequest struct {
	SubscriptionID string           `json:"subscription_id" validate:"required"`
	Name           string           `json:"name" validate:"required,min=1,max=200"`
	Amount         float64          `json:"amount" validate:"gt=0"`
	Currency       string           `json:"currency" validate:"required,len=3"`
	Period         string           `json:"period" validate:"required,oneof=monthly quarterly custom"`
	PeriodStart    string           `json:"period_start,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PeriodEnd      string           `json:"period_end,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Thresholds     []ThresholdInput `json:"thresholds" validate:"required,min=1,dive"`
}
