package services

import (
	"context"
	"testing"

	"github.com/costwatch/costwatch/internal/domain/subscription"
	apperrors "github.com/costwatch/costwatch/internal/pkg/errors"
	"github.com/costwatch/costwatch/internal/testutil"
)

func TestSubscriptionService_Register(t *testing.T) {
	tests := []struct {
		name          string
		displayName   string
		credentialRef string
		wantErr       bool
	}{
		{name: "valid", displayName: "prod account", credentialRef: "vault://azure/prod"},
		{name: "missing display name", credentialRef: "vault://azure/prod", wantErr: true},
		{name: "missing credential ref", displayName: "prod account", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := testutil.NewMockSubscriptionRepository()
			svc := NewSubscriptionService(repo, testLogger())

			sub, err := svc.Register(context.Background(), tt.displayName, tt.credentialRef)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Register() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if sub.ID == "" {
				t.Error("Register() did not assign an ID")
			}
			if !sub.IsActive {
				t.Error("Register() created an inactive subscription")
			}
			if sub.LastSyncStatus != subscription.SyncStatusNever {
				t.Errorf("LastSyncStatus = %q, want never", sub.LastSyncStatus)
			}
		})
	}
}

func TestSubscriptionService_GetByIDNotFound(t *testing.T) {
	svc := NewSubscriptionService(testutil.NewMockSubscriptionRepository(), testLogger())

	_, err := svc.GetByID(context.Background(), "missing")
	if !apperrors.IsNotFound(err) {
		t.Errorf("GetByID() error = %v, want not found", err)
	}
}

func TestSubscriptionService_ListActiveOnly(t *testing.T) {
	repo := testutil.NewMockSubscriptionRepository()
	svc := NewSubscriptionService(repo, testLogger())
	ctx := context.Background()

	active, err := svc.Register(ctx, "active account", "vault://a")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	dormant, err := svc.Register(ctx, "dormant account", "vault://b")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := svc.Deactivate(ctx, dormant.ID); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}

	subs, err := svc.List(ctx, subscription.Filter{ActiveOnly: true})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(subs) != 1 || subs[0].ID != active.ID {
		t.Errorf("List(ActiveOnly) returned %d subscriptions, want only the active one", len(subs))
	}
}

func TestSubscriptionService_DeactivateIdempotent(t *testing.T) {
	repo := testutil.NewMockSubscriptionRepository()
	svc := NewSubscriptionService(repo, testLogger())
	ctx := context.Background()

	sub, err := svc.Register(ctx, "prod account", "vault://azure/prod")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := svc.Deactivate(ctx, sub.ID); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	if err := svc.Deactivate(ctx, sub.ID); err != nil {
		t.Errorf("Deactivate() second call error = %v, want idempotent success", err)
	}
	if got := repo.Subscriptions[sub.ID]; got.IsActive {
		t.Error("subscription still active after Deactivate()")
	}
}

func TestSubscriptionService_DeactivateChecksReferences(t *testing.T) {
	repo := testutil.NewMockSubscriptionRepository()
	svc := NewSubscriptionService(repo, testLogger())
	ctx := context.Background()

	sub, err := svc.Register(ctx, "prod account", "vault://azure/prod")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	repo.Referenced[sub.ID] = true

	if err := svc.Deactivate(ctx, sub.ID); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	if repo.ReferenceChecks != 1 {
		t.Errorf("reference checks = %d, want 1", repo.ReferenceChecks)
	}
	if repo.Subscriptions[sub.ID].IsActive {
		t.Error("attached budgets must not block deactivation")
	}

	// idempotent second call short-circuits before the reference check
	if err := svc.Deactivate(ctx, sub.ID); err != nil {
		t.Fatalf("Deactivate() second call error = %v", err)
	}
	if repo.ReferenceChecks != 1 {
		t.Errorf("reference checks after repeat = %d, want 1", repo.ReferenceChecks)
	}
}
