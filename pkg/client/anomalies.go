package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// AnomalyService handles anomaly API calls
type AnomalyService struct {
	client *Client
}

// AnomalyListOptions filters an anomaly listing
type AnomalyListOptions struct {
	ListOptions
	SubscriptionID string
	ServiceName    string
	Method         string
	Unacknowledged bool
	MinConfidence  float64
	From           string
	To             string
}

// DetectAnomaliesRequest runs detection on demand
type DetectAnomaliesRequest struct {
	SubscriptionID string   `json:"subscription_id"`
	From           string   `json:"from,omitempty"`
	To             string   `json:"to,omitempty"`
	Methods        []string `json:"methods,omitempty"`
}

// AcknowledgeAnomalyRequest carries the optional analyst note
type AcknowledgeAnomalyRequest struct {
	Note string `json:"note,omitempty"`
}

type anomalyPage struct {
	Data       []Anomaly `json:"data"`
	TotalItems int64     `json:"total_items"`
}

// List retrieves anomalies with pagination and filtering
func (s *AnomalyService) List(ctx context.Context, opts *AnomalyListOptions) ([]Anomaly, int64, error) {
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
		if opts.ServiceName != "" {
			query.Set("service", opts.ServiceName)
		}
		if opts.Method != "" {
			query.Set("method", opts.Method)
		}
		if opts.Unacknowledged {
			query.Set("unacknowledged", "true")
		}
		if opts.MinConfidence > 0 {
			query.Set("min_confidence", strconv.FormatFloat(opts.MinConfidence, 'f', -1, 64))
		}
		if opts.From != "" {
			query.Set("from", opts.From)
		}
		if opts.To != "" {
			query.Set("to", opts.To)
		}
	}

	path := "/api/v1/anomalies"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var page anomalyPage
	if err := s.client.doRequest(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, 0, err
	}
	return page.Data, page.TotalItems, nil
}

// Detect runs anomaly detection on demand
func (s *AnomalyService) Detect(ctx context.Context, req DetectAnomaliesRequest) ([]Anomaly, error) {
	var anomalies []Anomaly
	if err := s.client.doRequest(ctx, http.MethodPost, "/api/v1/anomalies/detect", req, &anomalies); err != nil {
		return nil, err
	}
	return anomalies, nil
}

// Acknowledge marks an anomaly as reviewed
func (s *AnomalyService) Acknowledge(ctx context.Context, id, note string) error {
	path := fmt.Sprintf("/api/v1/anomalies/%s/acknowledge", id)
	return s.client.doRequest(ctx, http.MethodPost, path, AcknowledgeAnomalyRequest{Note: note}, nil)
}
