package services

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/costwatch/costwatch/internal/domain/cost"
	"github.com/costwatch/costwatch/internal/domain/forecast"
	"github.com/costwatch/costwatch/internal/forecaster"
	apperrors "github.com/costwatch/costwatch/internal/pkg/errors"
	"github.com/costwatch/costwatch/internal/testutil"
)

func newForecastFixture(t *testing.T) (forecast.Service, *testutil.MockForecastRepository, *testutil.MockCostRepository) {
	t.Helper()
	subRepo := testutil.NewMockSubscriptionRepository()
	seedSubscription(subRepo, "sub-1")
	repo := testutil.NewMockForecastRepository()
	costRepo := testutil.NewMockCostRepository()
	svc := NewForecastService(repo, costRepo, subRepo, forecaster.Models(7), 30, 14, testLogger())
	svc.(*ForecastService).now = func() time.Time { return day(2026, 8, 15) }
	return svc, repo, costRepo
}

// seedFlatHistory loads two weeks of constant 100/day spend ending
// the day before the pinned clock
func seedFlatHistory(costRepo *testutil.MockCostRepository) {
	for d := 1; d <= 14; d++ {
		costRepo.Records = append(costRepo.Records, cost.Record{
			SubscriptionID: "sub-1", Date: day(2026, 8, d), ServiceName: "compute",
			ResourceGroup: "rg-1", Amount: 100, Currency: "USD",
		})
	}
}

func TestForecastService_GenerateLinearFlat(t *testing.T) {
	svc, _, costRepo := newForecastFixture(t)
	seedFlatHistory(costRepo)

	out, err := svc.Generate(context.Background(), "sub-1", 3, forecast.ModelLinear)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if len(out) != 3 {
		t.Fatalf("Generate() produced %d forecasts, want 3", len(out))
	}
	for i, f := range out {
		want := day(2026, 8, 15+i)
		if !f.ForecastDate.Equal(want) {
			t.Errorf("forecast[%d].ForecastDate = %v, want %v", i, f.ForecastDate, want)
		}
		if math.Abs(f.Predicted-100) > 1e-9 {
			t.Errorf("forecast[%d].Predicted = %v, want 100", i, f.Predicted)
		}
		if f.ModelType != forecast.ModelLinear {
			t.Errorf("forecast[%d].ModelType = %q, want linear", i, f.ModelType)
		}
	}
}

func TestForecastService_GenerateAllModels(t *testing.T) {
	svc, repo, costRepo := newForecastFixture(t)
	seedFlatHistory(costRepo)

	out, err := svc.Generate(context.Background(), "sub-1", 3, "")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if want := 3 * len(forecaster.ModelNames()); len(out) != want {
		t.Errorf("Generate() produced %d forecasts, want %d", len(out), want)
	}
	if len(repo.Forecasts) != len(out) {
		t.Errorf("stored %d forecasts, want %d", len(repo.Forecasts), len(out))
	}
}

func TestForecastService_GenerateIdempotent(t *testing.T) {
	svc, repo, costRepo := newForecastFixture(t)
	seedFlatHistory(costRepo)
	ctx := context.Background()

	if _, err := svc.Generate(ctx, "sub-1", 3, forecast.ModelLinear); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	first := len(repo.Forecasts)

	if _, err := svc.Generate(ctx, "sub-1", 3, forecast.ModelLinear); err != nil {
		t.Fatalf("Generate() rerun error = %v", err)
	}
	if len(repo.Forecasts) != first {
		t.Errorf("rerun grew forecast rows from %d to %d, want unchanged", first, len(repo.Forecasts))
	}
}

func TestForecastService_GenerateValidation(t *testing.T) {
	svc, _, costRepo := newForecastFixture(t)
	seedFlatHistory(costRepo)
	ctx := context.Background()

	if _, err := svc.Generate(ctx, "sub-1", 0, forecast.ModelLinear); err == nil {
		t.Error("Generate() with zero horizon succeeded, want error")
	}
	if _, err := svc.Generate(ctx, "sub-1", 3, "prophet"); err == nil {
		t.Error("Generate() with unknown model succeeded, want error")
	}
	if _, err := svc.Generate(ctx, "missing", 3, forecast.ModelLinear); err == nil {
		t.Error("Generate() for unknown subscription succeeded, want error")
	}
}

func TestForecastService_GenerateInsufficientHistory(t *testing.T) {
	svc, _, costRepo := newForecastFixture(t)
	for d := 12; d <= 14; d++ {
		costRepo.Records = append(costRepo.Records, cost.Record{
			SubscriptionID: "sub-1", Date: day(2026, 8, d), ServiceName: "compute",
			ResourceGroup: "rg-1", Amount: 100, Currency: "USD",
		})
	}

	_, err := svc.Generate(context.Background(), "sub-1", 3, forecast.ModelLinear)
	if !apperrors.IsInsufficientHistory(err) {
		t.Errorf("Generate() error = %v, want insufficient history", err)
	}
}

func TestForecastService_UpdateAccuracy(t *testing.T) {
	svc, repo, costRepo := newForecastFixture(t)
	ctx := context.Background()

	// three past predictions with known errors, one with no actuals yet
	seed := []struct {
		id        string
		date      time.Time
		predicted float64
	}{
		{"f-exact", day(2026, 8, 10), 100},
		{"f-half", day(2026, 8, 11), 150},
		{"f-wild", day(2026, 8, 12), 300},
		{"f-nodata", day(2026, 8, 13), 100},
	}
	for _, s := range seed {
		repo.Forecasts[s.id] = &forecast.Forecast{
			ID: s.id, SubscriptionID: "sub-1", ForecastDate: s.date,
			Predicted: s.predicted, ModelType: forecast.ModelLinear,
		}
	}
	for d := 10; d <= 12; d++ {
		costRepo.Records = append(costRepo.Records, cost.Record{
			SubscriptionID: "sub-1", Date: day(2026, 8, d), ServiceName: "compute",
			ResourceGroup: "rg-1", Amount: 100, Currency: "USD",
		})
	}

	if err := svc.UpdateAccuracy(ctx, "sub-1", day(2026, 8, 15)); err != nil {
		t.Fatalf("UpdateAccuracy() error = %v", err)
	}

	wantAccuracy := map[string]float64{"f-exact": 1, "f-half": 0.5, "f-wild": 0}
	for id, want := range wantAccuracy {
		f := repo.Forecasts[id]
		if f.Accuracy == nil {
			t.Errorf("%s not scored", id)
			continue
		}
		if math.Abs(*f.Accuracy-want) > 1e-9 {
			t.Errorf("%s accuracy = %v, want %v", id, *f.Accuracy, want)
		}
		if f.ScoredAt == nil {
			t.Errorf("%s scored without ScoredAt", id)
		}
	}
	if repo.Forecasts["f-nodata"].Accuracy != nil {
		t.Error("forecast without actuals was scored, want left for next cycle")
	}
}

func TestForecastService_BestModel(t *testing.T) {
	svc, repo, _ := newForecastFixture(t)
	ctx := context.Background()

	best, err := svc.BestModel(ctx, "sub-1")
	if err != nil {
		t.Fatalf("BestModel() error = %v", err)
	}
	if best != forecast.ModelLinear {
		t.Errorf("BestModel() with no scores = %q, want linear default", best)
	}

	score := func(id, model string, d int, accuracy float64) {
		scoredAt := day(2026, 8, 15)
		repo.Forecasts[id] = &forecast.Forecast{
			ID: id, SubscriptionID: "sub-1", ForecastDate: day(2026, 8, d),
			Predicted: 100, ModelType: model,
			Accuracy: &accuracy, ScoredAt: &scoredAt,
		}
	}
	score("l-1", forecast.ModelLinear, 10, 0.6)
	score("l-2", forecast.ModelLinear, 11, 0.7)
	score("s-1", forecast.ModelSeasonal, 10, 0.9)
	score("s-2", forecast.ModelSeasonal, 11, 0.95)

	best, err = svc.BestModel(ctx, "sub-1")
	if err != nil {
		t.Fatalf("BestModel() error = %v", err)
	}
	if best != forecast.ModelSeasonal {
		t.Errorf("BestModel() = %q, want seasonal", best)
	}

	acc, n, err := svc.ModelAccuracy(ctx, "sub-1", forecast.ModelSeasonal)
	if err != nil {
		t.Fatalf("ModelAccuracy() error = %v", err)
	}
	if n != 2 || math.Abs(acc-0.925) > 1e-9 {
		t.Errorf("ModelAccuracy() = (%v, %d), want (0.925, 2)", acc, n)
	}
}
