package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/costwatch/costwatch/internal/domain/budget"
	"github.com/costwatch/costwatch/internal/domain/subscription"
	apperrors "github.com/costwatch/costwatch/internal/pkg/errors"
	"github.com/costwatch/costwatch/internal/repository/sqlite"
	"github.com/costwatch/costwatch/internal/testutil"
)

func TestSubscriptionRepository_CreateAndGet(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := sqlite.NewSubscriptionRepository(db)
	ctx := context.Background()

	sub := &subscription.Subscription{
		ID:             "sub-1",
		DisplayName:    "prod account",
		CredentialRef:  "vault://azure/prod",
		IsActive:       true,
		LastSyncStatus: subscription.SyncStatusNever,
	}
	if err := repo.Create(ctx, sub); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "sub-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.DisplayName != sub.DisplayName || got.CredentialRef != sub.CredentialRef {
		t.Errorf("GetByID() = %+v, want the created subscription", got)
	}
	if !got.IsActive || got.LastSyncStatus != subscription.SyncStatusNever {
		t.Errorf("GetByID() active %v status %q, want active with never status", got.IsActive, got.LastSyncStatus)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	_, err = repo.GetByID(ctx, "missing")
	if !apperrors.IsNotFound(err) {
		t.Errorf("GetByID(missing) error = %v, want not found", err)
	}
}

func TestSubscriptionRepository_MarkSyncResult(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := sqlite.NewSubscriptionRepository(db)
	ctx := context.Background()

	sub := &subscription.Subscription{
		ID: "sub-1", DisplayName: "prod", CredentialRef: "vault://p",
		IsActive: true, LastSyncStatus: subscription.SyncStatusNever,
	}
	if err := repo.Create(ctx, sub); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	at := time.Date(2026, 8, 10, 6, 0, 0, 0, time.UTC)
	if err := repo.MarkSyncResult(ctx, "sub-1", at, subscription.SyncStatusFailed, "adapter timeout"); err != nil {
		t.Fatalf("MarkSyncResult() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "sub-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.LastSyncStatus != subscription.SyncStatusFailed {
		t.Errorf("LastSyncStatus = %q, want failed", got.LastSyncStatus)
	}
	if got.LastSyncError != "adapter timeout" {
		t.Errorf("LastSyncError = %q, want adapter timeout", got.LastSyncError)
	}
	if got.LastSyncAt == nil || !got.LastSyncAt.Equal(at) {
		t.Errorf("LastSyncAt = %v, want %v", got.LastSyncAt, at)
	}

	if err := repo.MarkSyncResult(ctx, "missing", at, subscription.SyncStatusSuccess, ""); !apperrors.IsNotFound(err) {
		t.Errorf("MarkSyncResult(missing) error = %v, want not found", err)
	}
}

func TestSubscriptionRepository_ListActiveOnly(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := sqlite.NewSubscriptionRepository(db)
	ctx := context.Background()

	for _, s := range []*subscription.Subscription{
		{ID: "sub-1", DisplayName: "prod", CredentialRef: "vault://p", IsActive: true, LastSyncStatus: subscription.SyncStatusNever},
		{ID: "sub-2", DisplayName: "old", CredentialRef: "vault://o", IsActive: false, LastSyncStatus: subscription.SyncStatusNever},
	} {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("Create(%s) error = %v", s.ID, err)
		}
	}

	subs, err := repo.List(ctx, subscription.Filter{ActiveOnly: true})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(subs) != 1 || subs[0].ID != "sub-1" {
		t.Errorf("List(ActiveOnly) = %d subscriptions, want only sub-1", len(subs))
	}
}

func TestSubscriptionRepository_HasReferences(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := sqlite.NewSubscriptionRepository(db)
	budgetRepo := sqlite.NewBudgetRepository(db)
	ctx := context.Background()

	sub := &subscription.Subscription{
		ID: "sub-1", DisplayName: "prod", CredentialRef: "vault://p",
		IsActive: true, LastSyncStatus: subscription.SyncStatusNever,
	}
	if err := repo.Create(ctx, sub); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	has, err := repo.HasReferences(ctx, "sub-1")
	if err != nil {
		t.Fatalf("HasReferences() error = %v", err)
	}
	if has {
		t.Error("HasReferences() = true for an unreferenced subscription")
	}

	b := &budget.Budget{
		SubscriptionID: "sub-1", Name: "monthly", Amount: 1000, Currency: "USD",
		Period: budget.PeriodMonthly, Status: budget.StatusOK,
		Thresholds: []budget.Threshold{{Percentage: 80, Severity: budget.StatusWarning}},
	}
	if err := budgetRepo.Create(ctx, b); err != nil {
		t.Fatalf("budget Create() error = %v", err)
	}

	has, err = repo.HasReferences(ctx, "sub-1")
	if err != nil {
		t.Fatalf("HasReferences() error = %v", err)
	}
	if !has {
		t.Error("HasReferences() = false for a subscription with a budget")
	}
}
