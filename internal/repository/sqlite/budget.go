package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/costwatch/costwatch/internal/domain/budget"
	"github.com/costwatch/costwatch/internal/pkg/errors"
)

type BudgetRepository struct {
	db *sql.DB
}

func NewBudgetRepository(db *sql.DB) budget.Repository {
	return &BudgetRepository{db: db}
}

func (r *BudgetRepository) Create(ctx context.Context, b *budget.Budget) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now
	if b.Status == "" {
		b.Status = budget.StatusOK
	}

	thresholds, err := json.Marshal(b.Thresholds)
	if err != nil {
		return errors.Internal("Failed to encode budget thresholds", err)
	}

	query := `
		INSERT INTO budgets (id, subscription_id, name, amount, currency, period, period_start, period_end, thresholds, current_spend, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		b.ID, b.SubscriptionID, b.Name, b.Amount, b.Currency, b.Period,
		fmtTimePtr(b.PeriodStart), fmtTimePtr(b.PeriodEnd), string(thresholds),
		b.CurrentSpend, b.Status, fmtTime(now), fmtTime(now),
	)
	if err != nil {
		return errors.DatabaseError("Failed to create budget", err)
	}

	return nil
}

func (r *BudgetRepository) GetByID(ctx context.Context, id string) (*budget.Budget, error) {
	query := `
		SELECT id, subscription_id, name, amount, currency, period, period_start, period_end, thresholds, current_spend, status, created_at, updated_at
		FROM budgets WHERE id = ?
	`

	b, err := scanBudget(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Budget")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get budget", err)
	}

	return b, nil
}

func (r *BudgetRepository) Update(ctx context.Context, b *budget.Budget) error {
	b.UpdatedAt = time.Now()

	thresholds, err := json.Marshal(b.Thresholds)
	if err != nil {
		return errors.Internal("Failed to encode budget thresholds", err)
	}

	query := `
		UPDATE budgets SET name = ?, amount = ?, currency = ?, period = ?, period_start = ?, period_end = ?, thresholds = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		b.Name, b.Amount, b.Currency, b.Period,
		fmtTimePtr(b.PeriodStart), fmtTimePtr(b.PeriodEnd), string(thresholds),
		fmtTime(b.UpdatedAt), b.ID,
	)
	if err != nil {
		return errors.DatabaseError("Failed to update budget", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get affected rows", err)
	}
	if rows == 0 {
		return errors.NotFound("Budget")
	}

	return nil
}

func (r *BudgetRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM budgets WHERE id = ?", id)
	if err != nil {
		return errors.DatabaseError("Failed to delete budget", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get affected rows", err)
	}
	if rows == 0 {
		return errors.NotFound("Budget")
	}

	return nil
}

func (r *BudgetRepository) List(ctx context.Context, filter budget.Filter) ([]*budget.Budget, error) {
	where := []string{"1 = 1"}
	args := []interface{}{}

	if filter.SubscriptionID != "" {
		where = append(where, "subscription_id = ?")
		args = append(args, filter.SubscriptionID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}

	query := fmt.Sprintf(`
		SELECT id, subscription_id, name, amount, currency, period, period_start, period_end, thresholds, current_spend, status, created_at, updated_at
		FROM budgets WHERE %s ORDER BY created_at
	`, strings.Join(where, " AND "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list budgets", err)
	}
	defer rows.Close()

	var budgets []*budget.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan budget", err)
		}
		budgets = append(budgets, b)
	}

	return budgets, rows.Err()
}

func (r *BudgetRepository) UpdateDerived(ctx context.Context, id string, currentSpend float64, status string) error {
	query := `
		UPDATE budgets SET current_spend = ?, status = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, currentSpend, status, fmtTime(time.Now()), id)
	if err != nil {
		return errors.DatabaseError("Failed to update budget spend", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get affected rows", err)
	}
	if rows == 0 {
		return errors.NotFound("Budget")
	}

	return nil
}

func scanBudget(row rowScanner) (*budget.Budget, error) {
	var b budget.Budget
	var periodStart, periodEnd sql.NullString
	var thresholds, createdAt, updatedAt string

	err := row.Scan(
		&b.ID, &b.SubscriptionID, &b.Name, &b.Amount, &b.Currency, &b.Period,
		&periodStart, &periodEnd, &thresholds, &b.CurrentSpend, &b.Status,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(thresholds), &b.Thresholds); err != nil {
		return nil, fmt.Errorf("decode thresholds for budget %s: %w", b.ID, err)
	}
	b.PeriodStart = parseTimePtr(periodStart)
	b.PeriodEnd = parseTimePtr(periodEnd)
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)
	return &b, nil
}
