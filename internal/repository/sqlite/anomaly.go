package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/costwatch/costwatch/internal/domain/anomaly"
	"github.com/costwatch/costwatch/internal/pkg/errors"
)

type AnomalyRepository struct {
	db *sql.DB
}

func NewAnomalyRepository(db *sql.DB) anomaly.Repository {
	return &AnomalyRepository{db: db}
}

func (r *AnomalyRepository) Upsert(ctx context.Context, a *anomaly.Anomaly) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.DetectedAt.IsZero() {
		a.DetectedAt = time.Now()
	}

	// acknowledgement fields survive a re-detect of the same key
	query := `
		INSERT INTO anomalies (id, subscription_id, date, service_name, observed_amount, expected_amount, deviation, deviation_pct, detection_method, confidence, detected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (subscription_id, date, service_name, detection_method)
		DO UPDATE SET observed_amount = excluded.observed_amount,
			expected_amount = excluded.expected_amount,
			deviation = excluded.deviation,
			deviation_pct = excluded.deviation_pct,
			confidence = excluded.confidence,
			detected_at = excluded.detected_at
	`

	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.SubscriptionID, fmtDate(a.Date), a.ServiceName,
		a.ObservedAmount, a.ExpectedAmount, a.Deviation, a.DeviationPct,
		a.DetectionMethod, a.Confidence, fmtTime(a.DetectedAt),
	)
	if err != nil {
		return errors.DatabaseError("Failed to upsert anomaly", err)
	}

	return nil
}

func (r *AnomalyRepository) GetByID(ctx context.Context, id string) (*anomaly.Anomaly, error) {
	query := selectAnomaly + " WHERE id = ?"

	a, err := scanAnomaly(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Anomaly")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get anomaly", err)
	}

	return a, nil
}

func (r *AnomalyRepository) List(ctx context.Context, filter anomaly.Filter) ([]*anomaly.Anomaly, error) {
	anomalies, _, err := r.list(ctx, filter, 0, 0)
	return anomalies, err
}

func (r *AnomalyRepository) ListWithPagination(ctx context.Context, filter anomaly.Filter, limit, offset int) ([]*anomaly.Anomaly, int64, error) {
	return r.list(ctx, filter, limit, offset)
}

func (r *AnomalyRepository) list(ctx context.Context, filter anomaly.Filter, limit, offset int) ([]*anomaly.Anomaly, int64, error) {
	where, args := anomalyWhere(filter)

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM anomalies WHERE %s", where)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.DatabaseError("Failed to count anomalies", err)
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY date DESC, service_name", selectAnomaly, where)
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.DatabaseError("Failed to list anomalies", err)
	}
	defer rows.Close()

	var anomalies []*anomaly.Anomaly
	for rows.Next() {
		a, err := scanAnomaly(rows)
		if err != nil {
			return nil, 0, errors.DatabaseError("Failed to scan anomaly", err)
		}
		anomalies = append(anomalies, a)
	}

	return anomalies, total, rows.Err()
}

func (r *AnomalyRepository) Acknowledge(ctx context.Context, id, actor, note string) error {
	query := `
		UPDATE anomalies SET acknowledged = 1, acknowledged_by = ?, acknowledged_at = ?, note = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, actor, fmtTime(time.Now()), note, id)
	if err != nil {
		return errors.DatabaseError("Failed to acknowledge anomaly", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get affected rows", err)
	}
	if rows == 0 {
		return errors.NotFound("Anomaly")
	}

	return nil
}

func (r *AnomalyRepository) CountByMethod(ctx context.Context, subscriptionID string) (map[string]int, error) {
	query := `
		SELECT detection_method, COUNT(*) FROM anomalies
		WHERE subscription_id = ? GROUP BY detection_method
	`

	rows, err := r.db.QueryContext(ctx, query, subscriptionID)
	if err != nil {
		return nil, errors.DatabaseError("Failed to count anomalies", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var method string
		var n int
		if err := rows.Scan(&method, &n); err != nil {
			return nil, errors.DatabaseError("Failed to scan anomaly count", err)
		}
		counts[method] = n
	}

	return counts, rows.Err()
}

const selectAnomaly = `
	SELECT id, subscription_id, date, service_name, observed_amount, expected_amount, deviation, deviation_pct, detection_method, confidence, acknowledged, acknowledged_by, acknowledged_at, note, detected_at
	FROM anomalies`

func anomalyWhere(filter anomaly.Filter) (string, []interface{}) {
	where := []string{"1 = 1"}
	args := []interface{}{}

	if filter.SubscriptionID != "" {
		where = append(where, "subscription_id = ?")
		args = append(args, filter.SubscriptionID)
	}
	if filter.ServiceName != "" {
		where = append(where, "service_name = ?")
		args = append(args, filter.ServiceName)
	}
	if filter.Method != "" {
		where = append(where, "detection_method = ?")
		args = append(args, filter.Method)
	}
	if filter.Unacknowledged {
		where = append(where, "acknowledged = 0")
	}
	if filter.MinConfidence > 0 {
		where = append(where, "confidence >= ?")
		args = append(args, filter.MinConfidence)
	}
	if filter.From != nil {
		where = append(where, "date >= ?")
		args = append(args, fmtDate(*filter.From))
	}
	if filter.To != nil {
		where = append(where, "date <= ?")
		args = append(args, fmtDate(*filter.To))
	}

	return strings.Join(where, " AND "), args
}

func scanAnomaly(row rowScanner) (*anomaly.Anomaly, error) {
	var a anomaly.Anomaly
	var date, detectedAt string
	var acknowledgedAt sql.NullString

	err := row.Scan(
		&a.ID, &a.SubscriptionID, &date, &a.ServiceName,
		&a.ObservedAmount, &a.ExpectedAmount, &a.Deviation, &a.DeviationPct,
		&a.DetectionMethod, &a.Confidence, &a.Acknowledged, &a.AcknowledgedBy,
		&acknowledgedAt, &a.Note, &detectedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Date = parseDate(date)
	a.AcknowledgedAt = parseTimePtr(acknowledgedAt)
	a.DetectedAt = parseTime(detectedAt)
	return &a, nil
}
