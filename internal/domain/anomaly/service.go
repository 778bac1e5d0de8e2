package anomaly

import (
	"context"
	"time"
)

// Service defines the anomaly detector business logic
type Service interface {
	// Detect scores each per-service daily series of the subscription in
	// the date range with the given methods (all registered methods when
	// empty). Series with too little history are skipped, not failed.
	// Re-running is idempotent per (date, service, method).
	Detect(ctx context.Context, subscriptionID string, from, to time.Time, methods []string) ([]*Anomaly, error)

	// GetByID retrieves an anomaly by ID
	GetByID(ctx context.Context, id string) (*Anomaly, error)

	// List retrieves anomalies with filters and pagination
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Anomaly, int64, error)

	// Acknowledge marks an anomaly as reviewed by the given actor
	Acknowledge(ctx context.Context, id, actor, note string) error

	// Summary counts anomalies per detection method
	Summary(ctx context.Context, subscriptionID string) (map[string]int, error)
}
