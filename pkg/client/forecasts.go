package client

import (
	"context"
	"net/http"
	"net/url"
)

// ForecastService handles forecast API calls
type ForecastService struct {
	client *Client
}

// ForecastListOptions filters a forecast listing
type ForecastListOptions struct {
	SubscriptionID string
	ModelType      string
	From           string
	To             string
}

// GenerateForecastRequest produces fresh forecasts on demand
type GenerateForecastRequest struct {
	SubscriptionID string `json:"subscription_id"`
	HorizonDays    int    `json:"horizon_days,omitempty"`
	ModelType      string `json:"model_type,omitempty"`
}

// List retrieves stored forecasts
func (s *ForecastService) List(ctx context.Context, opts *ForecastListOptions) ([]Forecast, error) {
	query := url.Values{}
	if opts != nil {
		if opts.SubscriptionID != "" {
			query.Set("subscription_id", opts.SubscriptionID)
		}
		if opts.ModelType != "" {
			query.Set("model_type", opts.ModelType)
		}
		if opts.From != "" {
			query.Set("from", opts.From)
		}
		if opts.To != "" {
			query.Set("to", opts.To)
		}
	}

	path := "/api/v1/forecasts"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var forecasts []Forecast
	if err := s.client.doRequest(ctx, http.MethodGet, path, nil, &forecasts); err != nil {
		return nil, err
	}
	return forecasts, nil
}

// Generate produces fresh forecasts
func (s *ForecastService) Generate(ctx context.Context, req GenerateForecastRequest) ([]Forecast, error) {
	var forecasts []Forecast
	if err := s.client.doRequest(ctx, http.MethodPost, "/api/v1/forecasts/generate", req, &forecasts); err != nil {
		return nil, err
	}
	return forecasts, nil
}
