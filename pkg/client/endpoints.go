package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// EndpointService handles webhook endpoint and delivery API calls
type EndpointService struct {
	client *Client
}

// CreateEndpointRequest registers a webhook endpoint
type CreateEndpointRequest struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Secret string `json:"secret"`
}

// UpdateEndpointRequest updates endpoint fields
type UpdateEndpointRequest struct {
	Name   *string `json:"name,omitempty"`
	URL    *string `json:"url,omitempty"`
	Secret *string `json:"secret,omitempty"`
}

// DeliveryListOptions filters a delivery listing
type DeliveryListOptions struct {
	ListOptions
	EndpointID string
	Status     string
}

type deliveryPage struct {
	Data       []Delivery `json:"data"`
	TotalItems int64      `json:"total_items"`
}

// List retrieves all webhook endpoints
func (s *EndpointService) List(ctx context.Context) ([]Endpoint, error) {
	var endpoints []Endpoint
	if err := s.client.doRequest(ctx, http.MethodGet, "/api/v1/endpoints", nil, &endpoints); err != nil {
		return nil, err
	}
	return endpoints, nil
}

// Create registers a new webhook endpoint
func (s *EndpointService) Create(ctx context.Context, req CreateEndpointRequest) (*Endpoint, error) {
	var endpoint Endpoint
	if err := s.client.doRequest(ctx, http.MethodPost, "/api/v1/endpoints", req, &endpoint); err != nil {
		return nil, err
	}
	return &endpoint, nil
}

// Update updates a webhook endpoint
func (s *EndpointService) Update(ctx context.Context, id string, req UpdateEndpointRequest) (*Endpoint, error) {
	var endpoint Endpoint
	if err := s.client.doRequest(ctx, http.MethodPut, "/api/v1/endpoints/"+id, req, &endpoint); err != nil {
		return nil, err
	}
	return &endpoint, nil
}

// Delete removes a webhook endpoint
func (s *EndpointService) Delete(ctx context.Context, id string) error {
	return s.client.doRequest(ctx, http.MethodDelete, "/api/v1/endpoints/"+id, nil, nil)
}

// Activate re-enables a deactivated endpoint
func (s *EndpointService) Activate(ctx context.Context, id string) (*Endpoint, error) {
	path := fmt.Sprintf("/api/v1/endpoints/%s/activate", id)

	var endpoint Endpoint
	if err := s.client.doRequest(ctx, http.MethodPost, path, nil, &endpoint); err != nil {
		return nil, err
	}
	return &endpoint, nil
}

// Test sends a signed test event to the endpoint
func (s *EndpointService) Test(ctx context.Context, id string) (*Delivery, error) {
	path := fmt.Sprintf("/api/v1/endpoints/%s/test", id)

	var delivery Delivery
	if err := s.client.doRequest(ctx, http.MethodPost, path, nil, &delivery); err != nil {
		return nil, err
	}
	return &delivery, nil
}

// Deliveries retrieves delivery attempts with pagination and filtering
func (s *EndpointService) Deliveries(ctx context.Context, opts *DeliveryListOptions) ([]Delivery, int64, error) {
	query := url.Values{}
	if opts != nil {
		if opts.Page > 0 {
			query.Set("page", strconv.Itoa(opts.Page))
		}
		if opts.PageSize > 0 {
			query.Set("page_size", strconv.Itoa(opts.PageSize))
		}
		if opts.EndpointID != "" {
			query.Set("endpoint_id", opts.EndpointID)
		}
		if opts.Status != "" {
			query.Set("status", opts.Status)
		}
	}

	path := "/api/v1/deliveries"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var page deliveryPage
	if err := s.client.doRequest(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, 0, err
	}
	return page.Data, page.TotalItems, nil
}
