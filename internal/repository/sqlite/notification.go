package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/costwatch/costwatch/internal/domain/notification"
	"github.com/costwatch/costwatch/internal/pkg/errors"
)

type NotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) notification.Repository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) CreateEndpoint(ctx context.Context, e *notification.Endpoint) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now()
	e.CreatedAt = now
	e.UpdatedAt = now

	query := `
		INSERT INTO webhook_endpoints (id, name, url, secret, is_active, consecutive_failures, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.Name, e.URL, e.Secret, e.IsActive, e.ConsecutiveFailures,
		fmtTime(now), fmtTime(now),
	)
	if err != nil {
		return errors.DatabaseError("Failed to create webhook endpoint", err)
	}

	return nil
}

func (r *NotificationRepository) GetEndpoint(ctx context.Context, id string) (*notification.Endpoint, error) {
	query := selectEndpoint + " WHERE id = ?"

	e, err := scanEndpoint(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Webhook endpoint")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get webhook endpoint", err)
	}

	return e, nil
}

func (r *NotificationRepository) UpdateEndpoint(ctx context.Context, e *notification.Endpoint) error {
	e.UpdatedAt = time.Now()

	query := `
		UPDATE webhook_endpoints SET name = ?, url = ?, secret = ?, is_active = ?, consecutive_failures = ?, last_delivered_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		e.Name, e.URL, e.Secret, e.IsActive, e.ConsecutiveFailures,
		fmtTimePtr(e.LastDeliveredAt), fmtTime(e.UpdatedAt), e.ID,
	)
	if err != nil {
		return errors.DatabaseError("Failed to update webhook endpoint", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get affected rows", err)
	}
	if rows == 0 {
		return errors.NotFound("Webhook endpoint")
	}

	return nil
}

func (r *NotificationRepository) DeleteEndpoint(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM webhook_endpoints WHERE id = ?", id)
	if err != nil {
		return errors.DatabaseError("Failed to delete webhook endpoint", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get affected rows", err)
	}
	if rows == 0 {
		return errors.NotFound("Webhook endpoint")
	}

	return nil
}

func (r *NotificationRepository) ListEndpoints(ctx context.Context, activeOnly bool) ([]*notification.Endpoint, error) {
	query := selectEndpoint
	var args []interface{}

	if activeOnly {
		query += " WHERE is_active = ?"
		args = append(args, true)
	}
	query += " ORDER BY created_at"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list webhook endpoints", err)
	}
	defer rows.Close()

	var endpoints []*notification.Endpoint
	for rows.Next() {
		e, err := scanEndpoint(rows)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan webhook endpoint", err)
		}
		endpoints = append(endpoints, e)
	}

	return endpoints, rows.Err()
}

func (r *NotificationRepository) CreateDelivery(ctx context.Context, d *notification.Delivery) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now()
	d.CreatedAt = now
	d.UpdatedAt = now
	if d.Status == "" {
		d.Status = notification.DeliveryPending
	}

	query := `
		INSERT INTO webhook_deliveries (id, endpoint_id, event_type, payload, status, attempts, next_attempt_at, last_status_code, last_error, last_latency_ms, delivered_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.EndpointID, d.EventType, d.Payload, d.Status, d.Attempts,
		fmtTime(d.NextAttemptAt), d.LastStatus, d.LastError, d.LastLatencyMs,
		fmtTimePtr(d.DeliveredAt), fmtTime(now), fmtTime(now),
	)
	if err != nil {
		return errors.DatabaseError("Failed to create delivery", err)
	}

	return nil
}

func (r *NotificationRepository) UpdateDelivery(ctx context.Context, d *notification.Delivery) error {
	d.UpdatedAt = time.Now()

	query := `
		UPDATE webhook_deliveries SET status = ?, attempts = ?, next_attempt_at = ?, last_status_code = ?, last_error = ?, last_latency_ms = ?, delivered_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		d.Status, d.Attempts, fmtTime(d.NextAttemptAt),
		d.LastStatus, d.LastError, d.LastLatencyMs,
		fmtTimePtr(d.DeliveredAt), fmtTime(d.UpdatedAt), d.ID,
	)
	if err != nil {
		return errors.DatabaseError("Failed to update delivery", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get affected rows", err)
	}
	if rows == 0 {
		return errors.NotFound("Delivery")
	}

	return nil
}

func (r *NotificationRepository) ListDueDeliveries(ctx context.Context, now time.Time, limit int) ([]*notification.Delivery, error) {
	query := selectDelivery + `
		WHERE status IN (?, ?) AND next_attempt_at <= ?
		ORDER BY next_attempt_at LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query,
		notification.DeliveryPending, notification.DeliveryRetrying, fmtTime(now), limit,
	)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list due deliveries", err)
	}
	defer rows.Close()

	var deliveries []*notification.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan delivery", err)
		}
		deliveries = append(deliveries, d)
	}

	return deliveries, rows.Err()
}

func (r *NotificationRepository) ListDeliveries(ctx context.Context, filter notification.DeliveryFilter, limit, offset int) ([]*notification.Delivery, int64, error) {
	where := []string{"1 = 1"}
	args := []interface{}{}

	if filter.EndpointID != "" {
		where = append(where, "endpoint_id = ?")
		args = append(args, filter.EndpointID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}

	clause := strings.Join(where, " AND ")

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM webhook_deliveries WHERE %s", clause)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.DatabaseError("Failed to count deliveries", err)
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY created_at DESC", selectDelivery, clause)
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.DatabaseError("Failed to list deliveries", err)
	}
	defer rows.Close()

	var deliveries []*notification.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, 0, errors.DatabaseError("Failed to scan delivery", err)
		}
		deliveries = append(deliveries, d)
	}

	return deliveries, total, rows.Err()
}

const selectEndpoint = `
	SELECT id, name, url, secret, is_active, consecutive_failures, last_delivered_at, created_at, updated_at
	FROM webhook_endpoints`

const selectDelivery = `
	SELECT id, endpoint_id, event_type, payload, status, attempts, next_attempt_at, last_status_code, last_error, last_latency_ms, delivered_at, created_at, updated_at
	FROM webhook_deliveries`

func scanEndpoint(row rowScanner) (*notification.Endpoint, error) {
	var e notification.Endpoint
	var lastDeliveredAt sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&e.ID, &e.Name, &e.URL, &e.Secret, &e.IsActive, &e.ConsecutiveFailures,
		&lastDeliveredAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.LastDeliveredAt = parseTimePtr(lastDeliveredAt)
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return &e, nil
}

func scanDelivery(row rowScanner) (*notification.Delivery, error) {
	var d notification.Delivery
	var nextAttemptAt, createdAt, updatedAt string
	var deliveredAt sql.NullString

	err := row.Scan(
		&d.ID, &d.EndpointID, &d.EventType, &d.Payload, &d.Status, &d.Attempts,
		&nextAttemptAt, &d.LastStatus, &d.LastError, &d.LastLatencyMs,
		&deliveredAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.NextAttemptAt = parseTime(nextAttemptAt)
	d.DeliveredAt = parseTimePtr(deliveredAt)
	d.CreatedAt = parseTime(createdAt)
	d.UpdatedAt = parseTime(updatedAt)
	return &d, nil
}
