package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// SubscriptionService handles subscription API calls
type SubscriptionService struct {
	client *Client
}

// RegisterSubscriptionRequest registers a subscription for monitoring
type RegisterSubscriptionRequest struct {
	DisplayName   string `json:"display_name"`
	CredentialRef string `json:"credential_ref"`
}

// List retrieves subscriptions, optionally only active ones
func (s *SubscriptionService) List(ctx context.Context, activeOnly bool) ([]Subscription, error) {
	path := "/api/v1/subscriptions"
	if activeOnly {
		path += "?" + url.Values{"active": {"true"}}.Encode()
	}

	var subs []Subscription
	if err := s.client.doRequest(ctx, http.MethodGet, path, nil, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// Get retrieves a single subscription by ID
func (s *SubscriptionService) Get(ctx context.Context, id string) (*Subscription, error) {
	var sub Subscription
	if err := s.client.doRequest(ctx, http.MethodGet, "/api/v1/subscriptions/"+id, nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// Register registers a new subscription
func (s *SubscriptionService) Register(ctx context.Context, req RegisterSubscriptionRequest) (*Subscription, error) {
	var sub Subscription
	if err := s.client.doRequest(ctx, http.MethodPost, "/api/v1/subscriptions", req, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// SyncNow starts an out-of-schedule sync cycle
func (s *SubscriptionService) SyncNow(ctx context.Context, id string) error {
	path := fmt.Sprintf("/api/v1/subscriptions/%s/sync", id)
	return s.client.doRequest(ctx, http.MethodPost, path, nil, nil)
}

// Deactivate stops monitoring a subscription
func (s *SubscriptionService) Deactivate(ctx context.Context, id string) error {
	path := fmt.Sprintf("/api/v1/subscriptions/%s/deactivate", id)
	return s.client.doRequest(ctx, http.MethodPost, path, nil, nil)
}
