package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/costwatch/costwatch/internal/domain/forecast"
	"github.com/costwatch/costwatch/internal/pkg/errors"
)

type ForecastRepository struct {
	db *sql.DB
}

func NewForecastRepository(db *sql.DB) forecast.Repository {
	return &ForecastRepository{db: db}
}

func (r *ForecastRepository) Upsert(ctx context.Context, f *forecast.Forecast) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.GeneratedAt.IsZero() {
		f.GeneratedAt = time.Now()
	}

	// regenerating clears any stale accuracy score for the key
	query := `
		INSERT INTO forecasts (id, subscription_id, forecast_date, predicted, lower_bound, upper_bound, model_type, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (subscription_id, forecast_date, model_type)
		DO UPDATE SET predicted = excluded.predicted,
			lower_bound = excluded.lower_bound,
			upper_bound = excluded.upper_bound,
			generated_at = excluded.generated_at,
			accuracy = NULL,
			scored_at = NULL
	`

	_, err := r.db.ExecContext(ctx, query,
		f.ID, f.SubscriptionID, fmtDate(f.ForecastDate),
		f.Predicted, f.LowerBound, f.UpperBound, f.ModelType, fmtTime(f.GeneratedAt),
	)
	if err != nil {
		return errors.DatabaseError("Failed to upsert forecast", err)
	}

	return nil
}

func (r *ForecastRepository) List(ctx context.Context, filter forecast.Filter) ([]*forecast.Forecast, error) {
	where := []string{"1 = 1"}
	args := []interface{}{}

	if filter.SubscriptionID != "" {
		where = append(where, "subscription_id = ?")
		args = append(args, filter.SubscriptionID)
	}
	if filter.ModelType != "" {
		where = append(where, "model_type = ?")
		args = append(args, filter.ModelType)
	}
	if filter.From != nil {
		where = append(where, "forecast_date >= ?")
		args = append(args, fmtDate(*filter.From))
	}
	if filter.To != nil {
		where = append(where, "forecast_date <= ?")
		args = append(args, fmtDate(*filter.To))
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY forecast_date, model_type", selectForecast, strings.Join(where, " AND "))

	return r.query(ctx, query, args...)
}

func (r *ForecastRepository) ListUnscored(ctx context.Context, subscriptionID string, before time.Time) ([]*forecast.Forecast, error) {
	query := selectForecast + `
		WHERE subscription_id = ? AND forecast_date < ? AND scored_at IS NULL
		ORDER BY forecast_date, model_type
	`

	return r.query(ctx, query, subscriptionID, fmtDate(before))
}

func (r *ForecastRepository) SetAccuracy(ctx context.Context, id string, accuracy float64, scoredAt time.Time) error {
	query := "UPDATE forecasts SET accuracy = ?, scored_at = ? WHERE id = ?"

	result, err := r.db.ExecContext(ctx, query, accuracy, fmtTime(scoredAt), id)
	if err != nil {
		return errors.DatabaseError("Failed to set forecast accuracy", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get affected rows", err)
	}
	if rows == 0 {
		return errors.NotFound("Forecast")
	}

	return nil
}

func (r *ForecastRepository) RollingAccuracy(ctx context.Context, subscriptionID, modelType string, window int) (float64, int, error) {
	query := `
		SELECT COALESCE(AVG(accuracy), 0), COUNT(*) FROM (
			SELECT accuracy FROM forecasts
			WHERE subscription_id = ? AND model_type = ? AND accuracy IS NOT NULL
			ORDER BY forecast_date DESC LIMIT ?
		)
	`

	var avg float64
	var n int
	if err := r.db.QueryRowContext(ctx, query, subscriptionID, modelType, window).Scan(&avg, &n); err != nil {
		return 0, 0, errors.DatabaseError("Failed to compute rolling accuracy", err)
	}

	return avg, n, nil
}

const selectForecast = `
	SELECT id, subscription_id, forecast_date, predicted, lower_bound, upper_bound, model_type, accuracy, generated_at, scored_at
	FROM forecasts`

func (r *ForecastRepository) query(ctx context.Context, query string, args ...interface{}) ([]*forecast.Forecast, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list forecasts", err)
	}
	defer rows.Close()

	var forecasts []*forecast.Forecast
	for rows.Next() {
		var f forecast.Forecast
		var date, generatedAt string
		var accuracy sql.NullFloat64
		var scoredAt sql.NullString

		err := rows.Scan(
			&f.ID, &f.SubscriptionID, &date, &f.Predicted, &f.LowerBound, &f.UpperBound,
			&f.ModelType, &accuracy, &generatedAt, &scoredAt,
		)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan forecast", err)
		}

		f.ForecastDate = parseDate(date)
		if accuracy.Valid {
			f.Accuracy = &accuracy.Float64
		}
		f.GeneratedAt = parseTime(generatedAt)
		f.ScoredAt = parseTimePtr(scoredAt)
		forecasts = append(forecasts, &f)
	}

	return forecasts, rows.Err()
}
