package client

import (
	"context"
	"net/http"
	"net/url"
)

// CostService handles cost record API calls
type CostService struct {
	client *Client
}

// CostQueryOptions filters a cost query. Dates use YYYY-MM-DD.
type CostQueryOptions struct {
	From          string
	To            string
	ServiceName   string
	ResourceGroup string
	AnomaliesOnly bool
	Currency      string
}

// CostRecordInput is one row of an ingestion batch
type CostRecordInput struct {
	Date          string  `json:"date"`
	ServiceName   string  `json:"service_name"`
	ResourceGroup string  `json:"resource_group"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
}

// IngestCostsRequest is a batch cost ingestion request
type IngestCostsRequest struct {
	SubscriptionID string            `json:"subscription_id"`
	Records        []CostRecordInput `json:"records"`
}

func (o *CostQueryOptions) values(subscriptionID string) url.Values {
	query := url.Values{"subscription_id": {subscriptionID}}
	if o == nil {
		return query
	}
	if o.From != "" {
		query.Set("from", o.From)
	}
	if o.To != "" {
		query.Set("to", o.To)
	}
	if o.ServiceName != "" {
		query.Set("service", o.ServiceName)
	}
	if o.ResourceGroup != "" {
		query.Set("resource_group", o.ResourceGroup)
	}
	if o.AnomaliesOnly {
		query.Set("anomalies_only", "true")
	}
	if o.Currency != "" {
		query.Set("currency", o.Currency)
	}
	return query
}

// Query retrieves cost records for a subscription
func (s *CostService) Query(ctx context.Context, subscriptionID string, opts *CostQueryOptions) ([]CostRecord, error) {
	path := "/api/v1/costs?" + opts.values(subscriptionID).Encode()

	var records []CostRecord
	if err := s.client.doRequest(ctx, http.MethodGet, path, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// DailyTotals retrieves summed spend per day
func (s *CostService) DailyTotals(ctx context.Context, subscriptionID string, opts *CostQueryOptions) ([]DailyTotal, error) {
	path := "/api/v1/costs/daily-totals?" + opts.values(subscriptionID).Encode()

	var totals []DailyTotal
	if err := s.client.doRequest(ctx, http.MethodGet, path, nil, &totals); err != nil {
		return nil, err
	}
	return totals, nil
}

// Ingest upserts a batch of cost records
func (s *CostService) Ingest(ctx context.Context, req IngestCostsRequest) error {
	return s.client.doRequest(ctx, http.MethodPost, "/api/v1/costs/ingest", req, nil)
}
