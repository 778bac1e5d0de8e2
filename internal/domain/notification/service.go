package notification

import (
	"context"
)

// CreateEndpointRequest contains data for registering a webhook endpoint
type CreateEndpointRequest struct {
	Name   string `json:"name" validate:"required,min=1,max=100"`
	URL    string `json:"url" validate:"required,url"`
	Secret string `json:"secret" validate:"required,min=16"`
}

// UpdateEndpointRequest contains updatable endpoint fields
type UpdateEndpointRequest struct {
	Name   *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	URL    *string `json:"url,omitempty" validate:"omitempty,url"`
	Secret *string `json:"secret,omitempty" validate:"omitempty,min=16"`
}

// Service defines the interface for webhook dispatch operations
type Service interface {
	// CreateEndpoint registers a new webhook endpoint
	CreateEndpoint(ctx context.Context, req CreateEndpointRequest) (*Endpoint, error)

	// GetEndpoint retrieves an endpoint by ID
	GetEndpoint(ctx context.Context, id string) (*Endpoint, error)

	// UpdateEndpoint updates endpoint fields
	UpdateEndpoint(ctx context.Context, id string, req UpdateEndpointRequest) (*Endpoint, error)

	// DeleteEndpoint removes an endpoint
	DeleteEndpoint(ctx context.Context, id string) error

	// ListEndpoints retrieves all endpoints
	ListEndpoints(ctx context.Context) ([]*Endpoint, error)

	// Activate re-enables a deactivated endpoint and resets its failure count
	Activate(ctx context.Context, id string) (*Endpoint, error)

	// Test sends a synthetic test event to a single endpoint and reports
	// whether the delivery attempt succeeded
	Test(ctx context.Context, id string) (*Delivery, error)

	// Dispatch fans an event out to every active endpoint, creating one
	// pending delivery per endpoint
	Dispatch(ctx context.Context, event Event) error

	// ProcessPending attempts every due delivery and returns the number
	// attempted
	ProcessPending(ctx context.Context) (int, error)

	// ListDeliveries retrieves delivery history with pagination
	ListDeliveries(ctx context.Context, filter DeliveryFilter, page, pageSize int) ([]*Delivery, int64, error)
}
