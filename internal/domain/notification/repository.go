package notification

import (
	"context"
	"time"
)

// Repository defines the interface for endpoint and delivery data access
type Repository interface {
	// CreateEndpoint creates a new webhook endpoint
	CreateEndpoint(ctx context.Context, e *Endpoint) error

	// GetEndpoint retrieves an endpoint by ID
	GetEndpoint(ctx context.Context, id string) (*Endpoint, error)

	// UpdateEndpoint updates an endpoint row
	UpdateEndpoint(ctx context.Context, e *Endpoint) error

	// DeleteEndpoint deletes an endpoint
	DeleteEndpoint(ctx context.Context, id string) error

	// ListEndpoints retrieves endpoints, optionally only active ones
	ListEndpoints(ctx context.Context, activeOnly bool) ([]*Endpoint, error)

	// CreateDelivery creates a delivery record
	CreateDelivery(ctx context.Context, d *Delivery) error

	// UpdateDelivery updates a delivery record
	UpdateDelivery(ctx context.Context, d *Delivery) error

	// ListDueDeliveries returns non-terminal deliveries whose next attempt
	// time has passed
	ListDueDeliveries(ctx context.Context, now time.Time, limit int) ([]*Delivery, error)

	// ListDeliveries retrieves deliveries with filters and pagination
	ListDeliveries(ctx context.Context, filter DeliveryFilter, limit, offset int) ([]*Delivery, int64, error)
}
