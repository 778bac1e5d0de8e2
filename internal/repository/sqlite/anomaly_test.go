package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/costwatch/costwatch/internal/domain/anomaly"
	"github.com/costwatch/costwatch/internal/repository/sqlite"
	"github.com/costwatch/costwatch/internal/testutil"
)

func newSpikeAnomaly() *anomaly.Anomaly {
	return &anomaly.Anomaly{
		SubscriptionID:  "sub-1",
		Date:            date(2026, 8, 5),
		ServiceName:     "compute",
		ObservedAmount:  900,
		ExpectedAmount:  100,
		Deviation:       800,
		DeviationPct:    800,
		DetectionMethod: anomaly.MethodZScore,
		Confidence:      0.95,
		DetectedAt:      time.Date(2026, 8, 6, 6, 0, 0, 0, time.UTC),
	}
}

func TestAnomalyRepository_UpsertPreservesAcknowledgement(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := sqlite.NewAnomalyRepository(db)
	ctx := context.Background()

	a := newSpikeAnomaly()
	if err := repo.Upsert(ctx, a); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if a.ID == "" {
		t.Fatal("Upsert() did not assign an ID")
	}

	if err := repo.Acknowledge(ctx, a.ID, "ops@example.com", "known migration"); err != nil {
		t.Fatalf("Acknowledge() error = %v", err)
	}

	// a re-detect of the same (subscription, date, service, method) key
	// refreshes the measurements, never the acknowledgement
	again := newSpikeAnomaly()
	again.ObservedAmount = 920
	again.Confidence = 0.97
	if err := repo.Upsert(ctx, again); err != nil {
		t.Fatalf("Upsert() rerun error = %v", err)
	}

	got, err := repo.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.ObservedAmount != 920 || got.Confidence != 0.97 {
		t.Errorf("measurements not refreshed: observed %v confidence %v", got.ObservedAmount, got.Confidence)
	}
	if !got.Acknowledged || got.AcknowledgedBy != "ops@example.com" || got.Note != "known migration" {
		t.Errorf("acknowledgement lost on re-upsert: %+v", got)
	}

	// still a single row for the key
	_, total, err := repo.ListWithPagination(ctx, anomaly.Filter{SubscriptionID: "sub-1"}, 10, 0)
	if err != nil {
		t.Fatalf("ListWithPagination() error = %v", err)
	}
	if total != 1 {
		t.Errorf("anomaly rows = %d, want 1", total)
	}
}

func TestAnomalyRepository_ListFilters(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := sqlite.NewAnomalyRepository(db)
	ctx := context.Background()

	confident := newSpikeAnomaly()
	weak := newSpikeAnomaly()
	weak.ServiceName = "storage"
	weak.Confidence = 0.4
	acked := newSpikeAnomaly()
	acked.ServiceName = "network"
	for _, a := range []*anomaly.Anomaly{confident, weak, acked} {
		if err := repo.Upsert(ctx, a); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}
	if err := repo.Acknowledge(ctx, acked.ID, "ops@example.com", ""); err != nil {
		t.Fatalf("Acknowledge() error = %v", err)
	}

	got, err := repo.List(ctx, anomaly.Filter{SubscriptionID: "sub-1", Unacknowledged: true, MinConfidence: 0.8})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != confident.ID {
		t.Errorf("List(unacked, confident) = %d anomalies, want only the confident unacknowledged one", len(got))
	}

	counts, err := repo.CountByMethod(ctx, "sub-1")
	if err != nil {
		t.Fatalf("CountByMethod() error = %v", err)
	}
	if counts[anomaly.MethodZScore] != 3 {
		t.Errorf("CountByMethod() = %v, want 3 zscore anomalies", counts)
	}
}
