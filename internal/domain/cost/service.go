package cost

import (
	"context"
	"time"
)

// Service defines the cost store business logic
type Service interface {
	// Ingest validates and upserts a batch of cost records for a
	// subscription, recording the sync outcome on the subscription
	Ingest(ctx context.Context, subscriptionID string, records []Record) error

	// Query retrieves cost records within a date range with filters
	Query(ctx context.Context, subscriptionID string, from, to time.Time, filter Filter) ([]Record, error)

	// DailyTotals returns summed spend per day
	DailyTotals(ctx context.Context, subscriptionID string, from, to time.Time) ([]DailyTotal, error)
}
