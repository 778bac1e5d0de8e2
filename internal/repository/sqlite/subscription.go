package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/costwatch/costwatch/internal/domain/subscription"
	"github.com/costwatch/costwatch/internal/pkg/errors"
)

type SubscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) subscription.Repository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	now := time.Now()
	sub.CreatedAt = now
	sub.UpdatedAt = now

	query := `
		INSERT INTO subscriptions (id, display_name, credential_ref, is_active, last_sync_status, last_sync_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		sub.ID, sub.DisplayName, sub.CredentialRef, sub.IsActive, sub.LastSyncStatus, sub.LastSyncError,
		fmtTime(now), fmtTime(now),
	)
	if err != nil {
		return errors.DatabaseError("Failed to create subscription", err)
	}

	return nil
}

func (r *SubscriptionRepository) GetByID(ctx context.Context, id string) (*subscription.Subscription, error) {
	query := `
		SELECT id, display_name, credential_ref, is_active, last_sync_at, last_sync_status, last_sync_error, created_at, updated_at
		FROM subscriptions WHERE id = ?
	`

	row := r.db.QueryRowContext(ctx, query, id)
	sub, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Subscription")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get subscription", err)
	}

	return sub, nil
}

func (r *SubscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription) error {
	sub.UpdatedAt = time.Now()

	query := `
		UPDATE subscriptions SET display_name = ?, credential_ref = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		sub.DisplayName, sub.CredentialRef, sub.IsActive, fmtTime(sub.UpdatedAt), sub.ID,
	)
	if err != nil {
		return errors.DatabaseError("Failed to update subscription", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get affected rows", err)
	}
	if rows == 0 {
		return errors.NotFound("Subscription")
	}

	return nil
}

func (r *SubscriptionRepository) List(ctx context.Context, filter subscription.Filter) ([]*subscription.Subscription, error) {
	where := []string{"1 = 1"}
	args := []interface{}{}

	if filter.ActiveOnly {
		where = append(where, "is_active = ?")
		args = append(args, true)
	}
	if filter.SyncStatus != "" {
		where = append(where, "last_sync_status = ?")
		args = append(args, filter.SyncStatus)
	}

	query := fmt.Sprintf(`
		SELECT id, display_name, credential_ref, is_active, last_sync_at, last_sync_status, last_sync_error, created_at, updated_at
		FROM subscriptions WHERE %s ORDER BY created_at
	`, strings.Join(where, " AND "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list subscriptions", err)
	}
	defer rows.Close()

	var subs []*subscription.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan subscription", err)
		}
		subs = append(subs, sub)
	}

	return subs, rows.Err()
}

func (r *SubscriptionRepository) MarkSyncResult(ctx context.Context, id string, at time.Time, status, errMsg string) error {
	query := `
		UPDATE subscriptions SET last_sync_at = ?, last_sync_status = ?, last_sync_error = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, fmtTime(at), status, errMsg, fmtTime(time.Now()), id)
	if err != nil {
		return errors.DatabaseError("Failed to record sync result", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get affected rows", err)
	}
	if rows == 0 {
		return errors.NotFound("Subscription")
	}

	return nil
}

func (r *SubscriptionRepository) HasReferences(ctx context.Context, id string) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM budgets WHERE subscription_id = ?)
			OR EXISTS (SELECT 1 FROM alert_rules WHERE subscription_id = ?)
	`

	var referenced bool
	if err := r.db.QueryRowContext(ctx, query, id, id).Scan(&referenced); err != nil {
		return false, errors.DatabaseError("Failed to check subscription references", err)
	}

	return referenced, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubscription(row rowScanner) (*subscription.Subscription, error) {
	var sub subscription.Subscription
	var lastSyncAt sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&sub.ID, &sub.DisplayName, &sub.CredentialRef, &sub.IsActive,
		&lastSyncAt, &sub.LastSyncStatus, &sub.LastSyncError, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	sub.LastSyncAt = parseTimePtr(lastSyncAt)
	sub.CreatedAt = parseTime(createdAt)
	sub.UpdatedAt = parseTime(updatedAt)
	return &sub, nil
}
