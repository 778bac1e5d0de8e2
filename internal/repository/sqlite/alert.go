package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/costwatch/costwatch/internal/domain/alert"
	"github.com/costwatch/costwatch/internal/pkg/errors"
)

type AlertRepository struct {
	db *sql.DB
}

func NewAlertRepository(db *sql.DB) alert.Repository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) CreateRule(ctx context.Context, rule *alert.Rule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	params, err := rule.MarshalParams()
	if err != nil {
		return errors.Internal("Failed to encode rule params", err)
	}

	query := `
		INSERT INTO alert_rules (id, subscription_id, name, rule_type, severity, params, is_active, cadence_seconds, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		rule.ID, rule.SubscriptionID, rule.Name, rule.RuleType, rule.Severity,
		params, rule.IsActive, int64(rule.Cadence.Seconds()), fmtTime(now), fmtTime(now),
	)
	if err != nil {
		return errors.DatabaseError("Failed to create alert rule", err)
	}

	return nil
}

func (r *AlertRepository) GetRule(ctx context.Context, id string) (*alert.Rule, error) {
	query := selectRule + " WHERE id = ?"

	rule, err := scanRule(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Alert rule")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get alert rule", err)
	}

	return rule, nil
}

func (r *AlertRepository) UpdateRule(ctx context.Context, rule *alert.Rule) error {
	rule.UpdatedAt = time.Now()

	params, err := rule.MarshalParams()
	if err != nil {
		return errors.Internal("Failed to encode rule params", err)
	}

	query := `
		UPDATE alert_rules SET name = ?, severity = ?, params = ?, is_active = ?, cadence_seconds = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		rule.Name, rule.Severity, params, rule.IsActive,
		int64(rule.Cadence.Seconds()), fmtTime(rule.UpdatedAt), rule.ID,
	)
	if err != nil {
		return errors.DatabaseError("Failed to update alert rule", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get affected rows", err)
	}
	if rows == 0 {
		return errors.NotFound("Alert rule")
	}

	return nil
}

func (r *AlertRepository) DeleteRule(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM alert_rules WHERE id = ?", id)
	if err != nil {
		return errors.DatabaseError("Failed to delete alert rule", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get affected rows", err)
	}
	if rows == 0 {
		return errors.NotFound("Alert rule")
	}

	return nil
}

func (r *AlertRepository) ListRules(ctx context.Context, filter alert.RuleFilter) ([]*alert.Rule, error) {
	where := []string{"1 = 1"}
	args := []interface{}{}

	if filter.SubscriptionID != "" {
		// wildcard rules apply to every subscription
		where = append(where, "(subscription_id = ? OR subscription_id = '')")
		args = append(args, filter.SubscriptionID)
	}
	if filter.RuleType != "" {
		where = append(where, "rule_type = ?")
		args = append(args, filter.RuleType)
	}
	if filter.ActiveOnly {
		where = append(where, "is_active = ?")
		args = append(args, true)
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY created_at", selectRule, strings.Join(where, " AND "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list alert rules", err)
	}
	defer rows.Close()

	var rules []*alert.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan alert rule", err)
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

func (r *AlertRepository) CreateAlert(ctx context.Context, a *alert.Alert) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now()
	if a.TriggeredAt.IsZero() {
		a.TriggeredAt = now
	}
	if a.LastEvaluated.IsZero() {
		a.LastEvaluated = now
	}
	if a.Status == "" {
		a.Status = alert.StatusActive
	}

	query := `
		INSERT INTO alerts (id, rule_id, subscription_id, severity, alert_type, triggered_value, message, status, resolution, triggered_at, last_evaluated, acknowledged_at, acknowledged_by, resolved_at, resolved_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.RuleID, a.SubscriptionID, a.Severity, a.AlertType,
		a.TriggeredValue, a.Message, a.Status, a.Resolution,
		fmtTime(a.TriggeredAt), fmtTime(a.LastEvaluated),
		fmtTimePtr(a.AcknowledgedAt), a.AcknowledgedBy,
		fmtTimePtr(a.ResolvedAt), a.ResolvedBy,
	)
	if err != nil {
		return errors.DatabaseError("Failed to create alert", err)
	}

	return nil
}

func (r *AlertRepository) GetAlert(ctx context.Context, id string) (*alert.Alert, error) {
	query := selectAlert + " WHERE id = ?"

	a, err := scanAlert(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Alert")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get alert", err)
	}

	return a, nil
}

func (r *AlertRepository) UpdateAlert(ctx context.Context, a *alert.Alert) error {
	query := `
		UPDATE alerts SET severity = ?, triggered_value = ?, message = ?, status = ?, resolution = ?, last_evaluated = ?, acknowledged_at = ?, acknowledged_by = ?, resolved_at = ?, resolved_by = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		a.Severity, a.TriggeredValue, a.Message, a.Status, a.Resolution,
		fmtTime(a.LastEvaluated),
		fmtTimePtr(a.AcknowledgedAt), a.AcknowledgedBy,
		fmtTimePtr(a.ResolvedAt), a.ResolvedBy,
		a.ID,
	)
	if err != nil {
		return errors.DatabaseError("Failed to update alert", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get affected rows", err)
	}
	if rows == 0 {
		return errors.NotFound("Alert")
	}

	return nil
}

func (r *AlertRepository) FindActiveAlert(ctx context.Context, ruleID, subscriptionID string) (*alert.Alert, error) {
	query := selectAlert + `
		WHERE rule_id = ? AND subscription_id = ? AND status != ?
		ORDER BY triggered_at DESC LIMIT 1
	`

	a, err := scanAlert(r.db.QueryRowContext(ctx, query, ruleID, subscriptionID, alert.StatusResolved))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to find active alert", err)
	}

	return a, nil
}

func (r *AlertRepository) ListAlerts(ctx context.Context, filter alert.Filter, limit, offset int) ([]*alert.Alert, int64, error) {
	where := []string{"1 = 1"}
	args := []interface{}{}

	if filter.SubscriptionID != "" {
		where = append(where, "subscription_id = ?")
		args = append(args, filter.SubscriptionID)
	}
	if filter.RuleID != "" {
		where = append(where, "rule_id = ?")
		args = append(args, filter.RuleID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Severity != "" {
		where = append(where, "severity = ?")
		args = append(args, filter.Severity)
	}
	if filter.AlertType != "" {
		where = append(where, "alert_type = ?")
		args = append(args, filter.AlertType)
	}

	clause := strings.Join(where, " AND ")

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM alerts WHERE %s", clause)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.DatabaseError("Failed to count alerts", err)
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY triggered_at DESC", selectAlert, clause)
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.DatabaseError("Failed to list alerts", err)
	}
	defer rows.Close()

	var alerts []*alert.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, 0, errors.DatabaseError("Failed to scan alert", err)
		}
		alerts = append(alerts, a)
	}

	return alerts, total, rows.Err()
}

func (r *AlertRepository) CountAlertsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM alerts GROUP BY status")
	if err != nil {
		return nil, errors.DatabaseError("Failed to count alerts", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, errors.DatabaseError("Failed to scan alert count", err)
		}
		counts[status] = n
	}

	return counts, rows.Err()
}

const selectRule = `
	SELECT id, subscription_id, name, rule_type, severity, params, is_active, cadence_seconds, created_at, updated_at
	FROM alert_rules`

const selectAlert = `
	SELECT id, rule_id, subscription_id, severity, alert_type, triggered_value, message, status, resolution, triggered_at, last_evaluated, acknowledged_at, acknowledged_by, resolved_at, resolved_by
	FROM alerts`

func scanRule(row rowScanner) (*alert.Rule, error) {
	var rule alert.Rule
	var params, createdAt, updatedAt string
	var cadenceSeconds int64

	err := row.Scan(
		&rule.ID, &rule.SubscriptionID, &rule.Name, &rule.RuleType, &rule.Severity,
		&params, &rule.IsActive, &cadenceSeconds, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := rule.UnmarshalParams(params); err != nil {
		return nil, err
	}
	rule.Cadence = time.Duration(cadenceSeconds) * time.Second
	rule.CreatedAt = parseTime(createdAt)
	rule.UpdatedAt = parseTime(updatedAt)
	return &rule, nil
}

func scanAlert(row rowScanner) (*alert.Alert, error) {
	var a alert.Alert
	var triggeredAt, lastEvaluated string
	var acknowledgedAt, resolvedAt sql.NullString

	err := row.Scan(
		&a.ID, &a.RuleID, &a.SubscriptionID, &a.Severity, &a.AlertType,
		&a.TriggeredValue, &a.Message, &a.Status, &a.Resolution,
		&triggeredAt, &lastEvaluated,
		&acknowledgedAt, &a.AcknowledgedBy, &resolvedAt, &a.ResolvedBy,
	)
	if err != nil {
		return nil, err
	}

	a.TriggeredAt = parseTime(triggeredAt)
	a.LastEvaluated = parseTime(lastEvaluated)
	a.AcknowledgedAt = parseTimePtr(acknowledgedAt)
	a.ResolvedAt = parseTimePtr(resolvedAt)
	return &a, nil
}
