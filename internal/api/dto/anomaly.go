package dto

// DetectAnomaliesRequest represents an on-demand detection request.
// Omitted dates default to the configured detection window ending today;
// omitted methods run every registered detector.
type DetectAnomaliesRequest struct {
	SubscriptionID string   `json:"subscription_id" validate:"required"`
	From           string   `json:"from,omitempty" validate:"omitempty,datetime=2006-01-02"`
	To             string   `json:"to,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Methods        []string `json:"methods,omitempty" validate:"omitempty,dive,oneof=zscore iqr moving_average isolation_forest"`
}

// AcknowledgeAnomalyRequest carries the optional analyst note
type AcknowledgeAnomalyRequest struct {
	Note string `json:"note,omitempty" validate:"max=1000"`
}
