package anomaly

import "context"

// Repository defines the interface for anomaly data access
type Repository interface {
	// Upsert writes an anomaly, replacing any existing row with the same
	// (subscription, date, service, method) key
	Upsert(ctx context.Context, a *Anomaly) error

	// GetByID retrieves an anomaly by ID
	GetByID(ctx context.Context, id string) (*Anomaly, error)

	// List retrieves anomalies with filters
	List(ctx context.Context, filter Filter) ([]*Anomaly, error)

	// ListWithPagination retrieves anomalies with filters and pagination
	ListWithPagination(ctx context.Context, filter Filter, limit, offset int) ([]*Anomaly, int64, error)

	// Acknowledge records the acknowledging actor and optional note
	Acknowledge(ctx context.Context, id, actor, note string) error

	// CountByMethod counts anomalies per detection method for a subscription
	CountByMethod(ctx context.Context, subscriptionID string) (map[string]int, error)
}
