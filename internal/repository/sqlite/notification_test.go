package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/costwatch/costwatch/internal/domain/notification"
	"github.com/costwatch/costwatch/internal/repository/sqlite"
	"github.com/costwatch/costwatch/internal/testutil"
)

func seedEndpoint(t *testing.T, repo notification.Repository, id string) *notification.Endpoint {
	t.Helper()
	e := &notification.Endpoint{
		ID:       id,
		Name:     "ops hook " + id,
		URL:      "https://hooks.example.com/" + id,
		Secret:   "0123456789abcdef",
		IsActive: true,
	}
	if err := repo.CreateEndpoint(context.Background(), e); err != nil {
		t.Fatalf("CreateEndpoint() error = %v", err)
	}
	return e
}

func TestNotificationRepository_EndpointRoundtrip(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := sqlite.NewNotificationRepository(db)
	ctx := context.Background()

	e := seedEndpoint(t, repo, "ep-1")

	got, err := repo.GetEndpoint(ctx, "ep-1")
	if err != nil {
		t.Fatalf("GetEndpoint() error = %v", err)
	}
	if got.Name != e.Name || got.URL != e.URL || got.Secret != e.Secret {
		t.Errorf("GetEndpoint() = %+v, want the created endpoint", got)
	}

	got.ConsecutiveFailures = 3
	got.IsActive = false
	if err := repo.UpdateEndpoint(ctx, got); err != nil {
		t.Fatalf("UpdateEndpoint() error = %v", err)
	}

	active, err := repo.ListEndpoints(ctx, true)
	if err != nil {
		t.Fatalf("ListEndpoints() error = %v", err)
	}
	if len(active) != 0 {
		t.Errorf("ListEndpoints(activeOnly) = %d endpoints, want deactivated one excluded", len(active))
	}

	all, err := repo.ListEndpoints(ctx, false)
	if err != nil {
		t.Fatalf("ListEndpoints() error = %v", err)
	}
	if len(all) != 1 || all[0].ConsecutiveFailures != 3 {
		t.Errorf("ListEndpoints(all) = %+v, want one endpoint with 3 failures", all)
	}
}

func TestNotificationRepository_ListDueDeliveries(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := sqlite.NewNotificationRepository(db)
	ctx := context.Background()
	seedEndpoint(t, repo, "ep-1")

	now := time.Date(2026, 8, 10, 6, 0, 0, 0, time.UTC)
	deliveries := []*notification.Delivery{
		{ID: "d-due", EndpointID: "ep-1", EventType: notification.EventAlertActive, Payload: "{}",
			Status: notification.DeliveryPending, NextAttemptAt: now.Add(-time.Minute)},
		{ID: "d-retry", EndpointID: "ep-1", EventType: notification.EventAlertActive, Payload: "{}",
			Status: notification.DeliveryRetrying, NextAttemptAt: now.Add(-time.Hour)},
		{ID: "d-future", EndpointID: "ep-1", EventType: notification.EventAlertActive, Payload: "{}",
			Status: notification.DeliveryRetrying, NextAttemptAt: now.Add(time.Hour)},
		{ID: "d-done", EndpointID: "ep-1", EventType: notification.EventAlertActive, Payload: "{}",
			Status: notification.DeliveryDelivered, NextAttemptAt: now.Add(-time.Hour)},
		{ID: "d-dead", EndpointID: "ep-1", EventType: notification.EventAlertActive, Payload: "{}",
			Status: notification.DeliveryFailed, NextAttemptAt: now.Add(-time.Hour)},
	}
	for _, d := range deliveries {
		if err := repo.CreateDelivery(ctx, d); err != nil {
			t.Fatalf("CreateDelivery(%s) error = %v", d.ID, err)
		}
	}

	due, err := repo.ListDueDeliveries(ctx, now, 100)
	if err != nil {
		t.Fatalf("ListDueDeliveries() error = %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("ListDueDeliveries() = %d deliveries, want the pending and retrying ones", len(due))
	}
	// oldest next-attempt first
	if due[0].ID != "d-retry" || due[1].ID != "d-due" {
		t.Errorf("due order = [%s %s], want [d-retry d-due]", due[0].ID, due[1].ID)
	}

	limited, err := repo.ListDueDeliveries(ctx, now, 1)
	if err != nil {
		t.Fatalf("ListDueDeliveries() error = %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("ListDueDeliveries(limit 1) = %d deliveries, want 1", len(limited))
	}
}

func TestNotificationRepository_DeliveryStateRoundtrip(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := sqlite.NewNotificationRepository(db)
	ctx := context.Background()
	seedEndpoint(t, repo, "ep-1")

	now := time.Date(2026, 8, 10, 6, 0, 0, 0, time.UTC)
	d := &notification.Delivery{
		EndpointID: "ep-1", EventType: notification.EventAlertActive, Payload: `{"severity":"high"}`,
		Status: notification.DeliveryPending, NextAttemptAt: now,
	}
	if err := repo.CreateDelivery(ctx, d); err != nil {
		t.Fatalf("CreateDelivery() error = %v", err)
	}

	d.Status = notification.DeliveryRetrying
	d.Attempts = 2
	d.LastStatus = 503
	d.LastError = "endpoint returned status 503"
	d.NextAttemptAt = now.Add(5 * time.Minute)
	if err := repo.UpdateDelivery(ctx, d); err != nil {
		t.Fatalf("UpdateDelivery() error = %v", err)
	}

	got, total, err := repo.ListDeliveries(ctx, notification.DeliveryFilter{EndpointID: "ep-1"}, 10, 0)
	if err != nil {
		t.Fatalf("ListDeliveries() error = %v", err)
	}
	if total != 1 || len(got) != 1 {
		t.Fatalf("ListDeliveries() = %d of %d, want 1", len(got), total)
	}
	if got[0].Attempts != 2 || got[0].LastStatus != 503 || got[0].Status != notification.DeliveryRetrying {
		t.Errorf("persisted delivery = %+v, want the updated retry state", got[0])
	}
	if !got[0].NextAttemptAt.Equal(now.Add(5 * time.Minute)) {
		t.Errorf("NextAttemptAt = %v, want %v", got[0].NextAttemptAt, now.Add(5*time.Minute))
	}
}
