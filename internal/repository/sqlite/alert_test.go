package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/costwatch/costwatch/internal/domain/alert"
	"github.com/costwatch/costwatch/internal/repository/sqlite"
	"github.com/costwatch/costwatch/internal/testutil"
)

func newBudgetRule(subscriptionID string) *alert.Rule {
	return &alert.Rule{
		SubscriptionID: subscriptionID,
		Name:           "budget breach",
		RuleType:       alert.RuleBudgetThreshold,
		Severity:       alert.SeverityHigh,
		Params:         alert.RuleParams{BudgetThreshold: &alert.BudgetThresholdParams{MinStatus: "warning"}},
		IsActive:       true,
		Cadence:        time.Hour,
	}
}

func TestAlertRepository_RuleRoundtrip(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := sqlite.NewAlertRepository(db)
	ctx := context.Background()

	rule := newBudgetRule("sub-1")
	if err := repo.CreateRule(ctx, rule); err != nil {
		t.Fatalf("CreateRule() error = %v", err)
	}
	if rule.ID == "" {
		t.Fatal("CreateRule() did not assign an ID")
	}

	got, err := repo.GetRule(ctx, rule.ID)
	if err != nil {
		t.Fatalf("GetRule() error = %v", err)
	}
	if got.Name != rule.Name || got.RuleType != rule.RuleType || got.Severity != rule.Severity {
		t.Errorf("GetRule() = %+v, want the created rule", got)
	}
	if got.Cadence != time.Hour {
		t.Errorf("Cadence = %v, want 1h", got.Cadence)
	}
	if got.Params.BudgetThreshold == nil || got.Params.BudgetThreshold.MinStatus != "warning" {
		t.Errorf("Params = %+v, want budget_threshold with min_status warning", got.Params)
	}
}

func TestAlertRepository_ListRulesWildcard(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := sqlite.NewAlertRepository(db)
	ctx := context.Background()

	scoped := newBudgetRule("sub-1")
	other := newBudgetRule("sub-2")
	global := newBudgetRule("")
	inactive := newBudgetRule("sub-1")
	inactive.IsActive = false
	for _, r := range []*alert.Rule{scoped, other, global, inactive} {
		if err := repo.CreateRule(ctx, r); err != nil {
			t.Fatalf("CreateRule() error = %v", err)
		}
	}

	rules, err := repo.ListRules(ctx, alert.RuleFilter{SubscriptionID: "sub-1", ActiveOnly: true})
	if err != nil {
		t.Fatalf("ListRules() error = %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("ListRules(sub-1, active) = %d rules, want the scoped and the global rule", len(rules))
	}
	for _, r := range rules {
		if r.ID == other.ID || r.ID == inactive.ID {
			t.Errorf("ListRules() included rule %s, want it filtered out", r.ID)
		}
	}
}

func TestAlertRepository_FindActiveAlert(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := sqlite.NewAlertRepository(db)
	ctx := context.Background()

	rule := newBudgetRule("sub-1")
	if err := repo.CreateRule(ctx, rule); err != nil {
		t.Fatalf("CreateRule() error = %v", err)
	}

	got, err := repo.FindActiveAlert(ctx, rule.ID, "sub-1")
	if err != nil {
		t.Fatalf("FindActiveAlert() error = %v", err)
	}
	if got != nil {
		t.Fatalf("FindActiveAlert() with no alerts = %+v, want nil", got)
	}

	now := time.Date(2026, 8, 10, 6, 0, 0, 0, time.UTC)
	resolved := &alert.Alert{
		RuleID: rule.ID, SubscriptionID: "sub-1", Severity: alert.SeverityHigh,
		AlertType: alert.TypeBudgetThreshold, TriggeredValue: 120, Message: "old breach",
		Status: alert.StatusResolved, TriggeredAt: now.Add(-48 * time.Hour), LastEvaluated: now.Add(-48 * time.Hour),
	}
	live := &alert.Alert{
		RuleID: rule.ID, SubscriptionID: "sub-1", Severity: alert.SeverityHigh,
		AlertType: alert.TypeBudgetThreshold, TriggeredValue: 130, Message: "current breach",
		Status: alert.StatusAcknowledged, TriggeredAt: now, LastEvaluated: now,
	}
	for _, a := range []*alert.Alert{resolved, live} {
		if err := repo.CreateAlert(ctx, a); err != nil {
			t.Fatalf("CreateAlert() error = %v", err)
		}
	}

	got, err = repo.FindActiveAlert(ctx, rule.ID, "sub-1")
	if err != nil {
		t.Fatalf("FindActiveAlert() error = %v", err)
	}
	if got == nil || got.ID != live.ID {
		t.Fatalf("FindActiveAlert() = %+v, want the unresolved alert", got)
	}
	if got.Status != alert.StatusAcknowledged {
		t.Errorf("status = %q, want acknowledged alerts still counted as live", got.Status)
	}
}

func TestAlertRepository_CountAlertsByStatus(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := sqlite.NewAlertRepository(db)
	ctx := context.Background()

	rule := newBudgetRule("sub-1")
	if err := repo.CreateRule(ctx, rule); err != nil {
		t.Fatalf("CreateRule() error = %v", err)
	}

	now := time.Date(2026, 8, 10, 6, 0, 0, 0, time.UTC)
	for _, status := range []string{alert.StatusActive, alert.StatusActive, alert.StatusResolved} {
		a := &alert.Alert{
			RuleID: rule.ID, SubscriptionID: "sub-1", Severity: alert.SeverityLow,
			AlertType: alert.TypeBudgetThreshold, Status: status,
			TriggeredAt: now, LastEvaluated: now,
		}
		if err := repo.CreateAlert(ctx, a); err != nil {
			t.Fatalf("CreateAlert() error = %v", err)
		}
	}

	counts, err := repo.CountAlertsByStatus(ctx)
	if err != nil {
		t.Fatalf("CountAlertsByStatus() error = %v", err)
	}
	if counts[alert.StatusActive] != 2 || counts[alert.StatusResolved] != 1 {
		t.Errorf("CountAlertsByStatus() = %v, want 2 active and 1 resolved", counts)
	}
}
