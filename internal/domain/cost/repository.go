package cost

import (
	"context"
	"time"
)

// Repository defines the interface for cost record data access
type Repository interface {
	// Upsert writes a batch of cost records in one transaction. Rows with
	// an existing (subscription, date, service, resource group) key are
	// overwritten; the operation is idempotent per key.
	Upsert(ctx context.Context, records []Record) error

	// Query retrieves cost records for a subscription within a date range
	Query(ctx context.Context, subscriptionID string, from, to time.Time, filter Filter) ([]Record, error)

	// DailyTotals returns summed spend per day for a subscription
	DailyTotals(ctx context.Context, subscriptionID string, from, to time.Time) ([]DailyTotal, error)

	// SumForPeriod returns total spend for a subscription within a period,
	// optionally restricted to one currency
	SumForPeriod(ctx context.Context, subscriptionID string, from, to time.Time, currency string) (float64, error)

	// MarkAnomalous sets the is_anomaly flag on a single record
	MarkAnomalous(ctx context.Context, subscriptionID string, date time.Time, serviceName string) error
}
