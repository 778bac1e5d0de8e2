package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/costwatch/costwatch/internal/pkg/errors"
)

// LeaseRepository implements per-subscription sync leases on a single
// table row. Acquisition and expiry-steal happen in one transaction so
// two workers can never both hold the same subscription.
type LeaseRepository struct {
	db *sql.DB
}

func NewLeaseRepository(db *sql.DB) *LeaseRepository {
	return &LeaseRepository{db: db}
}

// TryAcquire attempts to take the lease for a subscription. It succeeds
// when no lease exists, when the existing lease has expired, or when the
// caller already holds it (renewal). Returns false without error when
// another holder has a live lease.
func (r *LeaseRepository) TryAcquire(ctx context.Context, subscriptionID, holder string, ttl time.Duration) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, errors.DatabaseError("Failed to begin lease transaction", err)
	}
	defer tx.Rollback()

	now := time.Now()

	var currentHolder, expiresAt string
	err = tx.QueryRowContext(ctx,
		"SELECT holder, expires_at FROM sync_leases WHERE subscription_id = ?",
		subscriptionID,
	).Scan(&currentHolder, &expiresAt)

	switch {
	case err == sql.ErrNoRows:
		_, err = tx.ExecContext(ctx,
			"INSERT INTO sync_leases (subscription_id, holder, acquired_at, expires_at) VALUES (?, ?, ?, ?)",
			subscriptionID, holder, fmtTime(now), fmtTime(now.Add(ttl)),
		)
		if err != nil {
			return false, errors.DatabaseError("Failed to insert lease", err)
		}
	case err != nil:
		return false, errors.DatabaseError("Failed to read lease", err)
	default:
		if currentHolder != holder && parseTime(expiresAt).After(now) {
			return false, nil
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE sync_leases SET holder = ?, acquired_at = ?, expires_at = ? WHERE subscription_id = ?",
			holder, fmtTime(now), fmtTime(now.Add(ttl)), subscriptionID,
		)
		if err != nil {
			return false, errors.DatabaseError("Failed to take over lease", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, errors.DatabaseError("Failed to commit lease", err)
	}

	return true, nil
}

// Release frees the lease if the caller still holds it. Releasing a
// lease stolen by another holder is a no-op.
func (r *LeaseRepository) Release(ctx context.Context, subscriptionID, holder string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM sync_leases WHERE subscription_id = ? AND holder = ?",
		subscriptionID, holder,
	)
	if err != nil {
		return errors.DatabaseError("Failed to release lease", err)
	}

	return nil
}
