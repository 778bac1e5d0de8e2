package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/costwatch/costwatch/internal/domain/cost"
	"github.com/costwatch/costwatch/internal/pkg/errors"
)

type CostRepository struct {
	db *sql.DB
}

func NewCostRepository(db *sql.DB) cost.Repository {
	return &CostRepository{db: db}
}

func (r *CostRepository) Upsert(ctx context.Context, records []cost.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("Failed to begin transaction", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO cost_records (subscription_id, date, service_name, resource_group, amount, currency, is_anomaly, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT (subscription_id, date, service_name, resource_group)
		DO UPDATE SET amount = excluded.amount, currency = excluded.currency, updated_at = excluded.updated_at
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return errors.DatabaseError("Failed to prepare upsert", err)
	}
	defer stmt.Close()

	now := fmtTime(time.Now())
	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			rec.SubscriptionID, fmtDate(rec.Date), rec.ServiceName, rec.ResourceGroup,
			rec.Amount, rec.Currency, now, now,
		)
		if err != nil {
			return errors.DatabaseError("Failed to upsert cost record", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("Failed to commit cost records", err)
	}

	return nil
}

func (r *CostRepository) Query(ctx context.Context, subscriptionID string, from, to time.Time, filter cost.Filter) ([]cost.Record, error) {
	where := []string{"subscription_id = ?", "date >= ?", "date <= ?"}
	args := []interface{}{subscriptionID, fmtDate(from), fmtDate(to)}

	if filter.ServiceName != "" {
		where = append(where, "service_name = ?")
		args = append(args, filter.ServiceName)
	}
	if filter.ResourceGroup != "" {
		where = append(where, "resource_group = ?")
		args = append(args, filter.ResourceGroup)
	}
	if filter.Currency != "" {
		where = append(where, "currency = ?")
		args = append(args, filter.Currency)
	}
	if filter.AnomaliesOnly {
		where = append(where, "is_anomaly = ?")
		args = append(args, true)
	}

	query := fmt.Sprintf(`
		SELECT subscription_id, date, service_name, resource_group, amount, currency, is_anomaly, created_at, updated_at
		FROM cost_records WHERE %s ORDER BY date, service_name, resource_group
	`, strings.Join(where, " AND "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to query cost records", err)
	}
	defer rows.Close()

	var records []cost.Record
	for rows.Next() {
		var rec cost.Record
		var date, createdAt, updatedAt string
		err := rows.Scan(
			&rec.SubscriptionID, &date, &rec.ServiceName, &rec.ResourceGroup,
			&rec.Amount, &rec.Currency, &rec.IsAnomaly, &createdAt, &updatedAt,
		)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan cost record", err)
		}
		rec.Date = parseDate(date)
		rec.CreatedAt = parseTime(createdAt)
		rec.UpdatedAt = parseTime(updatedAt)
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (r *CostRepository) DailyTotals(ctx context.Context, subscriptionID string, from, to time.Time) ([]cost.DailyTotal, error) {
	query := `
		SELECT date, SUM(amount)
		FROM cost_records
		WHERE subscription_id = ? AND date >= ? AND date <= ?
		GROUP BY date ORDER BY date
	`

	rows, err := r.db.QueryContext(ctx, query, subscriptionID, fmtDate(from), fmtDate(to))
	if err != nil {
		return nil, errors.DatabaseError("Failed to query daily totals", err)
	}
	defer rows.Close()

	var totals []cost.DailyTotal
	for rows.Next() {
		var date string
		var t cost.DailyTotal
		if err := rows.Scan(&date, &t.Total); err != nil {
			return nil, errors.DatabaseError("Failed to scan daily total", err)
		}
		t.Date = parseDate(date)
		totals = append(totals, t)
	}

	return totals, rows.Err()
}

func (r *CostRepository) SumForPeriod(ctx context.Context, subscriptionID string, from, to time.Time, currency string) (float64, error) {
	where := []string{"subscription_id = ?", "date >= ?", "date <= ?"}
	args := []interface{}{subscriptionID, fmtDate(from), fmtDate(to)}

	if currency != "" {
		where = append(where, "currency = ?")
		args = append(args, currency)
	}

	query := fmt.Sprintf(
		"SELECT COALESCE(SUM(amount), 0) FROM cost_records WHERE %s",
		strings.Join(where, " AND "),
	)

	var sum float64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&sum); err != nil {
		return 0, errors.DatabaseError("Failed to sum cost records", err)
	}

	return sum, nil
}

func (r *CostRepository) MarkAnomalous(ctx context.Context, subscriptionID string, date time.Time, serviceName string) error {
	query := `
		UPDATE cost_records SET is_anomaly = 1, updated_at = ?
		WHERE subscription_id = ? AND date = ? AND service_name = ?
	`

	_, err := r.db.ExecContext(ctx, query, fmtTime(time.Now()), subscriptionID, fmtDate(date), serviceName)
	if err != nil {
		return errors.DatabaseError("Failed to mark cost record anomalous", err)
	}

	return nil
}
