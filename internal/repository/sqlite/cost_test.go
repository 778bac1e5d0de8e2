package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/costwatch/costwatch/internal/domain/cost"
	"github.com/costwatch/costwatch/internal/repository/sqlite"
	"github.com/costwatch/costwatch/internal/testutil"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedCosts(t *testing.T, repo cost.Repository, records []cost.Record) {
	t.Helper()
	if err := repo.Upsert(context.Background(), records); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
}

func TestCostRepository_UpsertAndQuery(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := sqlite.NewCostRepository(db)
	ctx := context.Background()

	seedCosts(t, repo, []cost.Record{
		{SubscriptionID: "sub-1", Date: date(2026, 8, 1), ServiceName: "compute", ResourceGroup: "rg-1", Amount: 100, Currency: "USD"},
		{SubscriptionID: "sub-1", Date: date(2026, 8, 1), ServiceName: "storage", ResourceGroup: "rg-1", Amount: 40, Currency: "USD"},
		{SubscriptionID: "sub-2", Date: date(2026, 8, 1), ServiceName: "compute", ResourceGroup: "rg-9", Amount: 75, Currency: "USD"},
	})

	got, err := repo.Query(ctx, "sub-1", date(2026, 8, 1), date(2026, 8, 31), cost.Filter{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Query() returned %d records, want 2", len(got))
	}

	got, err = repo.Query(ctx, "sub-1", date(2026, 8, 1), date(2026, 8, 31), cost.Filter{ServiceName: "compute"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 1 || got[0].Amount != 100 {
		t.Errorf("Query(compute) = %d records, want the single 100 USD record", len(got))
	}

	// re-ingesting the same key overwrites the amount, not duplicates
	seedCosts(t, repo, []cost.Record{
		{SubscriptionID: "sub-1", Date: date(2026, 8, 1), ServiceName: "compute", ResourceGroup: "rg-1", Amount: 130, Currency: "USD"},
	})
	got, err = repo.Query(ctx, "sub-1", date(2026, 8, 1), date(2026, 8, 31), cost.Filter{ServiceName: "compute"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 1 || got[0].Amount != 130 {
		t.Errorf("Query() after re-upsert = %d records amount %v, want one record at 130", len(got), got[0].Amount)
	}
}

func TestCostRepository_DailyTotals(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := sqlite.NewCostRepository(db)
	ctx := context.Background()

	seedCosts(t, repo, []cost.Record{
		{SubscriptionID: "sub-1", Date: date(2026, 8, 1), ServiceName: "compute", ResourceGroup: "rg-1", Amount: 100, Currency: "USD"},
		{SubscriptionID: "sub-1", Date: date(2026, 8, 1), ServiceName: "storage", ResourceGroup: "rg-2", Amount: 50, Currency: "USD"},
		{SubscriptionID: "sub-1", Date: date(2026, 8, 2), ServiceName: "compute", ResourceGroup: "rg-1", Amount: 80, Currency: "USD"},
	})

	totals, err := repo.DailyTotals(ctx, "sub-1", date(2026, 8, 1), date(2026, 8, 31))
	if err != nil {
		t.Fatalf("DailyTotals() error = %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("DailyTotals() returned %d days, want 2", len(totals))
	}
	if !totals[0].Date.Equal(date(2026, 8, 1)) || totals[0].Total != 150 {
		t.Errorf("day 1 = %v %v, want 2026-08-01 at 150", totals[0].Date, totals[0].Total)
	}
	if totals[1].Total != 80 {
		t.Errorf("day 2 total = %v, want 80", totals[1].Total)
	}
}

func TestCostRepository_SumForPeriod(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := sqlite.NewCostRepository(db)
	ctx := context.Background()

	seedCosts(t, repo, []cost.Record{
		{SubscriptionID: "sub-1", Date: date(2026, 8, 1), ServiceName: "compute", ResourceGroup: "rg-1", Amount: 100, Currency: "USD"},
		{SubscriptionID: "sub-1", Date: date(2026, 8, 2), ServiceName: "compute", ResourceGroup: "rg-1", Amount: 60, Currency: "EUR"},
		{SubscriptionID: "sub-1", Date: date(2026, 9, 1), ServiceName: "compute", ResourceGroup: "rg-1", Amount: 999, Currency: "USD"},
	})

	sum, err := repo.SumForPeriod(ctx, "sub-1", date(2026, 8, 1), date(2026, 8, 31), "USD")
	if err != nil {
		t.Fatalf("SumForPeriod() error = %v", err)
	}
	if sum != 100 {
		t.Errorf("SumForPeriod(USD) = %v, want 100", sum)
	}

	sum, err = repo.SumForPeriod(ctx, "sub-1", date(2026, 8, 1), date(2026, 8, 31), "")
	if err != nil {
		t.Fatalf("SumForPeriod() error = %v", err)
	}
	if sum != 160 {
		t.Errorf("SumForPeriod(all currencies) = %v, want 160", sum)
	}

	sum, err = repo.SumForPeriod(ctx, "sub-1", date(2026, 1, 1), date(2026, 1, 31), "USD")
	if err != nil {
		t.Fatalf("SumForPeriod() error = %v", err)
	}
	if sum != 0 {
		t.Errorf("SumForPeriod(empty period) = %v, want 0", sum)
	}
}

func TestCostRepository_MarkAnomalous(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := sqlite.NewCostRepository(db)
	ctx := context.Background()

	seedCosts(t, repo, []cost.Record{
		{SubscriptionID: "sub-1", Date: date(2026, 8, 1), ServiceName: "compute", ResourceGroup: "rg-1", Amount: 900, Currency: "USD"},
		{SubscriptionID: "sub-1", Date: date(2026, 8, 1), ServiceName: "storage", ResourceGroup: "rg-1", Amount: 40, Currency: "USD"},
	})

	if err := repo.MarkAnomalous(ctx, "sub-1", date(2026, 8, 1), "compute"); err != nil {
		t.Fatalf("MarkAnomalous() error = %v", err)
	}

	flagged, err := repo.Query(ctx, "sub-1", date(2026, 8, 1), date(2026, 8, 31), cost.Filter{AnomaliesOnly: true})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(flagged) != 1 || flagged[0].ServiceName != "compute" {
		t.Errorf("Query(AnomaliesOnly) = %d records, want only the marked compute record", len(flagged))
	}

	// the flag survives a cost re-ingest of the same key
	seedCosts(t, repo, []cost.Record{
		{SubscriptionID: "sub-1", Date: date(2026, 8, 1), ServiceName: "compute", ResourceGroup: "rg-1", Amount: 910, Currency: "USD"},
	})
	flagged, err = repo.Query(ctx, "sub-1", date(2026, 8, 1), date(2026, 8, 31), cost.Filter{AnomaliesOnly: true})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(flagged) != 1 {
		t.Errorf("anomaly flag lost on re-upsert: %d flagged records, want 1", len(flagged))
	}
}
