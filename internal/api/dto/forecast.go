package dto

// GenerateForecastRequest represents an on-demand forecast request.
// A zero horizon falls back to the configured default; an empty model
// type runs every model.
type GenerateForecastRequest struct {
	SubscriptionID string `json:"subscription_id" validate:"required"`
	HorizonDays    int    `json:"horizon_days,omitempty" validate:"omitempty,gt=0,lte=90"`
	ModelType      string `json:"model_type,omitempty" validate:"omitempty,oneof=linear seasonal"`
}
