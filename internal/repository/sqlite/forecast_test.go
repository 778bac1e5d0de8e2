package sqlite_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/costwatch/costwatch/internal/domain/forecast"
	"github.com/costwatch/costwatch/internal/repository/sqlite"
	"github.com/costwatch/costwatch/internal/testutil"
)

func newForecast(d time.Time, model string, predicted float64) *forecast.Forecast {
	return &forecast.Forecast{
		SubscriptionID: "sub-1",
		ForecastDate:   d,
		Predicted:      predicted,
		LowerBound:     predicted * 0.8,
		UpperBound:     predicted * 1.2,
		ModelType:      model,
		GeneratedAt:    time.Date(2026, 8, 10, 6, 0, 0, 0, time.UTC),
	}
}

func TestForecastRepository_UpsertResetsScore(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := sqlite.NewForecastRepository(db)
	ctx := context.Background()

	f := newForecast(date(2026, 8, 11), forecast.ModelLinear, 100)
	if err := repo.Upsert(ctx, f); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := repo.SetAccuracy(ctx, f.ID, 0.9, time.Date(2026, 8, 12, 6, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("SetAccuracy() error = %v", err)
	}

	// regenerating the same day and model supersedes the old prediction
	// and its score
	again := newForecast(date(2026, 8, 11), forecast.ModelLinear, 110)
	if err := repo.Upsert(ctx, again); err != nil {
		t.Fatalf("Upsert() rerun error = %v", err)
	}

	got, err := repo.List(ctx, forecast.Filter{SubscriptionID: "sub-1"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("List() = %d forecasts, want 1", len(got))
	}
	if got[0].Predicted != 110 {
		t.Errorf("Predicted = %v, want 110", got[0].Predicted)
	}
	if got[0].Accuracy != nil || got[0].ScoredAt != nil {
		t.Errorf("score survived regeneration: accuracy %v scoredAt %v", got[0].Accuracy, got[0].ScoredAt)
	}
}

func TestForecastRepository_ListUnscored(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := sqlite.NewForecastRepository(db)
	ctx := context.Background()

	past := newForecast(date(2026, 8, 8), forecast.ModelLinear, 100)
	scored := newForecast(date(2026, 8, 9), forecast.ModelLinear, 100)
	future := newForecast(date(2026, 8, 20), forecast.ModelLinear, 100)
	for _, f := range []*forecast.Forecast{past, scored, future} {
		if err := repo.Upsert(ctx, f); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}
	if err := repo.SetAccuracy(ctx, scored.ID, 0.8, time.Date(2026, 8, 10, 6, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("SetAccuracy() error = %v", err)
	}

	unscored, err := repo.ListUnscored(ctx, "sub-1", date(2026, 8, 10))
	if err != nil {
		t.Fatalf("ListUnscored() error = %v", err)
	}
	if len(unscored) != 1 || unscored[0].ID != past.ID {
		t.Errorf("ListUnscored() = %d forecasts, want only the past unscored one", len(unscored))
	}
}

func TestForecastRepository_RollingAccuracy(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := sqlite.NewForecastRepository(db)
	ctx := context.Background()

	scoredAt := time.Date(2026, 8, 10, 6, 0, 0, 0, time.UTC)
	accuracies := []float64{0.5, 0.7, 0.9}
	for i, acc := range accuracies {
		f := newForecast(date(2026, 8, 1+i), forecast.ModelLinear, 100)
		if err := repo.Upsert(ctx, f); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		if err := repo.SetAccuracy(ctx, f.ID, acc, scoredAt); err != nil {
			t.Fatalf("SetAccuracy() error = %v", err)
		}
	}

	avg, n, err := repo.RollingAccuracy(ctx, "sub-1", forecast.ModelLinear, 10)
	if err != nil {
		t.Fatalf("RollingAccuracy() error = %v", err)
	}
	if n != 3 || math.Abs(avg-0.7) > 1e-9 {
		t.Errorf("RollingAccuracy(window 10) = (%v, %d), want (0.7, 3)", avg, n)
	}

	// a window of 2 keeps only the most recent scores
	avg, n, err = repo.RollingAccuracy(ctx, "sub-1", forecast.ModelLinear, 2)
	if err != nil {
		t.Fatalf("RollingAccuracy() error = %v", err)
	}
	if n != 2 || math.Abs(avg-0.8) > 1e-9 {
		t.Errorf("RollingAccuracy(window 2) = (%v, %d), want (0.8, 2)", avg, n)
	}

	avg, n, err = repo.RollingAccuracy(ctx, "sub-1", forecast.ModelSeasonal, 10)
	if err != nil {
		t.Fatalf("RollingAccuracy() error = %v", err)
	}
	if n != 0 || avg != 0 {
		t.Errorf("RollingAccuracy(unscored model) = (%v, %d), want (0, 0)", avg, n)
	}
}
