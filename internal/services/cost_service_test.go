package services

import (
	"context"
	"testing"
	"time"

	"github.com/costwatch/costwatch/internal/domain/cost"
	"github.com/costwatch/costwatch/internal/domain/subscription"
	"github.com/costwatch/costwatch/internal/pkg/logger"
	"github.com/costwatch/costwatch/internal/testutil"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}

func seedSubscription(repo *testutil.MockSubscriptionRepository, id string) {
	repo.Subscriptions[id] = &subscription.Subscription{
		ID:             id,
		DisplayName:    "test subscription",
		CredentialRef:  "cred-1",
		IsActive:       true,
		LastSyncStatus: subscription.SyncStatusNever,
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCostService_Ingest(t *testing.T) {
	subRepo := testutil.NewMockSubscriptionRepository()
	seedSubscription(subRepo, "sub-1")
	costRepo := testutil.NewMockCostRepository()
	service := NewCostService(costRepo, subRepo, testLogger())

	tests := []struct {
		name    string
		subID   string
		records []cost.Record
		wantErr bool
	}{
		{
			name:  "valid batch",
			subID: "sub-1",
			records: []cost.Record{
				{Date: day(2026, 8, 1), ServiceName: "compute", ResourceGroup: "rg-1", Amount: 100, Currency: "USD"},
				{Date: day(2026, 8, 1), ServiceName: "storage", ResourceGroup: "rg-1", Amount: 20, Currency: "USD"},
			},
			wantErr: false,
		},
		{
			name:  "negative amount rejected",
			subID: "sub-1",
			records: []cost.Record{
				{Date: day(2026, 8, 1), ServiceName: "compute", ResourceGroup: "rg-1", Amount: -5, Currency: "USD"},
			},
			wantErr: true,
		},
		{
			name:  "missing service name rejected",
			subID: "sub-1",
			records: []cost.Record{
				{Date: day(2026, 8, 1), ResourceGroup: "rg-1", Amount: 5, Currency: "USD"},
			},
			wantErr: true,
		},
		{
			name:  "missing currency rejected",
			subID: "sub-1",
			records: []cost.Record{
				{Date: day(2026, 8, 1), ServiceName: "compute", ResourceGroup: "rg-1", Amount: 5},
			},
			wantErr: true,
		},
		{
			name:  "unknown subscription rejected",
			subID: "missing",
			records: []cost.Record{
				{Date: day(2026, 8, 1), ServiceName: "compute", ResourceGroup: "rg-1", Amount: 5, Currency: "USD"},
			},
			wantErr: true,
		},
		{
			name:  "mismatched record subscription rejected",
			subID: "sub-1",
			records: []cost.Record{
				{SubscriptionID: "sub-2", Date: day(2026, 8, 1), ServiceName: "compute", ResourceGroup: "rg-1", Amount: 5, Currency: "USD"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.Ingest(context.Background(), tt.subID, tt.records)
			if (err != nil) != tt.wantErr {
				t.Errorf("Ingest() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCostService_IngestIdempotent(t *testing.T) {
	subRepo := testutil.NewMockSubscriptionRepository()
	seedSubscription(subRepo, "sub-1")
	costRepo := testutil.NewMockCostRepository()
	service := NewCostService(costRepo, subRepo, testLogger())
	ctx := context.Background()

	rec := cost.Record{Date: day(2026, 8, 1), ServiceName: "compute", ResourceGroup: "rg-1", Amount: 100, Currency: "USD"}
	if err := service.Ingest(ctx, "sub-1", []cost.Record{rec}); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	rec.Amount = 150
	if err := service.Ingest(ctx, "sub-1", []cost.Record{rec}); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	records, err := service.Query(ctx, "sub-1", day(2026, 8, 1), day(2026, 8, 1), cost.Filter{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Query() returned %d records after re-ingest, want 1", len(records))
	}
	if records[0].Amount != 150 {
		t.Errorf("re-ingested amount = %v, want 150", records[0].Amount)
	}
}

func TestCostService_IngestMarksSyncResult(t *testing.T) {
	subRepo := testutil.NewMockSubscriptionRepository()
	seedSubscription(subRepo, "sub-1")
	costRepo := testutil.NewMockCostRepository()
	service := NewCostService(costRepo, subRepo, testLogger())
	ctx := context.Background()

	rec := cost.Record{Date: day(2026, 8, 1), ServiceName: "compute", ResourceGroup: "rg-1", Amount: 100, Currency: "USD"}
	if err := service.Ingest(ctx, "sub-1", []cost.Record{rec}); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	sub := subRepo.Subscriptions["sub-1"]
	if sub.LastSyncStatus != subscription.SyncStatusSuccess {
		t.Errorf("LastSyncStatus = %q, want %q", sub.LastSyncStatus, subscription.SyncStatusSuccess)
	}
	if sub.LastSyncAt == nil {
		t.Error("LastSyncAt not set after ingest")
	}
}

func TestCostService_QueryRangeValidation(t *testing.T) {
	subRepo := testutil.NewMockSubscriptionRepository()
	seedSubscription(subRepo, "sub-1")
	service := NewCostService(testutil.NewMockCostRepository(), subRepo, testLogger())

	_, err := service.Query(context.Background(), "sub-1", day(2026, 8, 10), day(2026, 8, 1), cost.Filter{})
	if err == nil {
		t.Error("Query() with inverted range succeeded, want error")
	}

	_, err = service.DailyTotals(context.Background(), "sub-1", day(2026, 8, 10), day(2026, 8, 1))
	if err == nil {
		t.Error("DailyTotals() with inverted range succeeded, want error")
	}
}
