package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/costwatch/costwatch/internal/config"
	"github.com/costwatch/costwatch/internal/detector"
	"github.com/costwatch/costwatch/internal/domain/alert"
	"github.com/costwatch/costwatch/internal/domain/budget"
	"github.com/costwatch/costwatch/internal/domain/cost"
	"github.com/costwatch/costwatch/internal/domain/notification"
	"github.com/costwatch/costwatch/internal/domain/subscription"
	"github.com/costwatch/costwatch/internal/forecaster"
	"github.com/costwatch/costwatch/internal/ingest"
	"github.com/costwatch/costwatch/internal/pkg/logger"
	"github.com/costwatch/costwatch/internal/services"
	"github.com/costwatch/costwatch/internal/testutil"
)

// adapterFunc lets a test swap in per-subscription fetch behavior
type adapterFunc func(ctx context.Context, sub *subscription.Subscription, from, to time.Time) ([]cost.Record, error)

func (f adapterFunc) FetchCosts(ctx context.Context, sub *subscription.Subscription, from, to time.Time) ([]cost.Record, error) {
	return f(ctx, sub, from, to)
}

// memLease is an in-process lease for tests
type memLease struct {
	mu      sync.Mutex
	holders map[string]string
	denied  bool
}

func newMemLease() *memLease {
	return &memLease{holders: make(map[string]string)}
}

func (l *memLease) TryAcquire(ctx context.Context, subscriptionID, holder string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.denied {
		return false, nil
	}
	if current, ok := l.holders[subscriptionID]; ok && current != holder {
		return false, nil
	}
	l.holders[subscriptionID] = holder
	return true, nil
}

func (l *memLease) Release(ctx context.Context, subscriptionID, holder string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.holders[subscriptionID] == holder {
		delete(l.holders, subscriptionID)
	}
	return nil
}

type runnerFixture struct {
	runner    *SyncRunner
	subRepo   *testutil.MockSubscriptionRepository
	costRepo  *testutil.MockCostRepository
	alertRepo *testutil.MockAlertRepository
	notifRepo *testutil.MockNotificationRepository
	budgets   *testutil.MockBudgetRepository
	lease     *memLease
	notifSvc  notification.Service
}

func testLog() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "console"})
}

func today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func newRunnerFixture(t *testing.T, adapter ingest.Adapter) *runnerFixture {
	t.Helper()
	log := testLog()

	f := &runnerFixture{
		subRepo:   testutil.NewMockSubscriptionRepository(),
		costRepo:  testutil.NewMockCostRepository(),
		alertRepo: testutil.NewMockAlertRepository(),
		notifRepo: testutil.NewMockNotificationRepository(),
		budgets:   testutil.NewMockBudgetRepository(),
		lease:     newMemLease(),
	}
	anomalyRepo := testutil.NewMockAnomalyRepository()
	forecastRepo := testutil.NewMockForecastRepository()

	costSvc := services.NewCostService(f.costRepo, f.subRepo, log)
	budgetSvc := services.NewBudgetService(f.budgets, f.costRepo, f.subRepo, log)
	anomalySvc := services.NewAnomalyService(anomalyRepo, f.costRepo, f.subRepo, detector.DefaultRegistry(3.0, 50, 7), log)
	forecastSvc := services.NewForecastService(forecastRepo, f.costRepo, f.subRepo, forecaster.Models(7), 30, 14, log)
	alertSvc := services.NewAlertService(f.alertRepo, f.budgets, anomalyRepo, forecastRepo, budgetSvc, log)
	f.notifSvc = services.NewDispatcherService(f.notifRepo, alertSvc, config.DispatcherConfig{
		Timeout:        2 * time.Second,
		MaxAttempts:    3,
		InitialBackoff: time.Minute,
		MaxBackoff:     10 * time.Minute,
		FailureCeiling: 5,
	}, log)

	f.runner = NewSyncRunner(
		f.subRepo, adapter, costSvc, budgetSvc, anomalySvc, forecastSvc, alertSvc, f.notifSvc,
		f.lease,
		config.SchedulerConfig{Enabled: true, CronSpec: "@every 1h", CycleDeadline: time.Minute, LeaseTTL: time.Minute},
		config.DetectionConfig{WindowDays: 30, ZScoreCutoff: 3.0, MovingAvgPercent: 50, MinDataPoints: 7},
		config.ForecastConfig{HorizonDays: 7, MinHistoryDays: 7, AccuracyWindow: 14},
		log,
	)
	return f
}

func seedActiveSubscription(f *runnerFixture, id string) {
	f.subRepo.Subscriptions[id] = &subscription.Subscription{
		ID: id, DisplayName: "account " + id, CredentialRef: "vault://" + id,
		IsActive: true, LastSyncStatus: subscription.SyncStatusNever,
	}
}

// staticRecords serves a steady daily series ending today for any
// subscription
func staticRecords(sub *subscription.Subscription, days int) []cost.Record {
	out := make([]cost.Record, days)
	for d := 0; d < days; d++ {
		out[d] = cost.Record{
			SubscriptionID: sub.ID,
			Date:           today().AddDate(0, 0, d-days+1),
			ServiceName:    "compute",
			ResourceGroup:  "rg-1",
			Amount:         100,
			Currency:       "USD",
		}
	}
	return out
}

func TestSyncRunner_RunCycle(t *testing.T) {
	adapter := adapterFunc(func(ctx context.Context, sub *subscription.Subscription, from, to time.Time) ([]cost.Record, error) {
		return staticRecords(sub, 14), nil
	})
	f := newRunnerFixture(t, adapter)
	seedActiveSubscription(f, "sub-1")

	f.runner.RunCycle(context.Background(), "sub-1")

	if len(f.costRepo.Records) != 14 {
		t.Errorf("ingested %d cost records, want 14", len(f.costRepo.Records))
	}
	sub := f.subRepo.Subscriptions["sub-1"]
	if sub.LastSyncStatus != subscription.SyncStatusSuccess {
		t.Errorf("LastSyncStatus = %q (%s), want success", sub.LastSyncStatus, sub.LastSyncError)
	}
	if sub.LastSyncAt == nil {
		t.Error("LastSyncAt not recorded")
	}
	if len(f.lease.holders) != 0 {
		t.Errorf("lease still held after cycle: %v", f.lease.holders)
	}
}

func TestSyncRunner_EmptyFetchMarksSuccess(t *testing.T) {
	adapter := adapterFunc(func(ctx context.Context, sub *subscription.Subscription, from, to time.Time) ([]cost.Record, error) {
		return nil, nil
	})
	f := newRunnerFixture(t, adapter)
	seedActiveSubscription(f, "sub-1")

	f.runner.RunCycle(context.Background(), "sub-1")

	sub := f.subRepo.Subscriptions["sub-1"]
	if sub.LastSyncStatus != subscription.SyncStatusSuccess {
		t.Errorf("LastSyncStatus = %q, want success on a quiet window", sub.LastSyncStatus)
	}
	if sub.LastSyncAt == nil {
		t.Error("LastSyncAt not recorded for an empty fetch")
	}
	if sub.LastSyncError != "" {
		t.Errorf("LastSyncError = %q, want empty", sub.LastSyncError)
	}
}

func TestSyncRunner_LeaseHeldSkipsCycle(t *testing.T) {
	adapter := adapterFunc(func(ctx context.Context, sub *subscription.Subscription, from, to time.Time) ([]cost.Record, error) {
		return staticRecords(sub, 14), nil
	})
	f := newRunnerFixture(t, adapter)
	seedActiveSubscription(f, "sub-1")
	f.lease.denied = true

	f.runner.RunCycle(context.Background(), "sub-1")

	if len(f.costRepo.Records) != 0 {
		t.Errorf("cycle ran %d ingests while the lease was held, want 0", len(f.costRepo.Records))
	}
	if got := f.subRepo.Subscriptions["sub-1"].LastSyncStatus; got != subscription.SyncStatusNever {
		t.Errorf("LastSyncStatus = %q, want untouched (a skipped cycle is not a failure)", got)
	}
}

func TestSyncRunner_AdapterFailureMarksSubscription(t *testing.T) {
	adapter := adapterFunc(func(ctx context.Context, sub *subscription.Subscription, from, to time.Time) ([]cost.Record, error) {
		return nil, errors.New("billing export unavailable")
	})
	f := newRunnerFixture(t, adapter)
	seedActiveSubscription(f, "sub-1")

	f.runner.RunCycle(context.Background(), "sub-1")

	sub := f.subRepo.Subscriptions["sub-1"]
	if sub.LastSyncStatus != subscription.SyncStatusFailed {
		t.Fatalf("LastSyncStatus = %q, want failed", sub.LastSyncStatus)
	}
	if sub.LastSyncError == "" {
		t.Error("LastSyncError not recorded")
	}
}

func TestSyncRunner_FailureIsolation(t *testing.T) {
	adapter := adapterFunc(func(ctx context.Context, sub *subscription.Subscription, from, to time.Time) ([]cost.Record, error) {
		if sub.ID == "sub-bad" {
			return nil, fmt.Errorf("expired credential %s", sub.CredentialRef)
		}
		return staticRecords(sub, 14), nil
	})
	f := newRunnerFixture(t, adapter)
	seedActiveSubscription(f, "sub-good")
	seedActiveSubscription(f, "sub-bad")

	f.runner.RunAll(context.Background())

	if got := f.subRepo.Subscriptions["sub-good"].LastSyncStatus; got != subscription.SyncStatusSuccess {
		t.Errorf("sub-good LastSyncStatus = %q, want success despite sub-bad failing", got)
	}
	if got := f.subRepo.Subscriptions["sub-bad"].LastSyncStatus; got != subscription.SyncStatusFailed {
		t.Errorf("sub-bad LastSyncStatus = %q, want failed", got)
	}
}

func TestSyncRunner_AlertDispatchEndToEnd(t *testing.T) {
	delivered := make(chan string, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered <- r.Header.Get("X-Event-Type")
	}))
	defer srv.Close()

	adapter := adapterFunc(func(ctx context.Context, sub *subscription.Subscription, from, to time.Time) ([]cost.Record, error) {
		return staticRecords(sub, 14), nil
	})
	f := newRunnerFixture(t, adapter)
	seedActiveSubscription(f, "sub-1")
	ctx := context.Background()

	// a 1000 USD budget the 14x100 series blows through; a custom period
	// keeps every ingested day inside the window
	periodStart := today().AddDate(0, 0, -20)
	periodEnd := today().AddDate(0, 0, 10)
	f.budgets.Budgets["budget-1"] = &budget.Budget{
		ID: "budget-1", SubscriptionID: "sub-1", Name: "rollout budget", Amount: 1000, Currency: "USD",
		Period: budget.PeriodCustom, PeriodStart: &periodStart, PeriodEnd: &periodEnd,
		Status: budget.StatusOK,
		Thresholds: []budget.Threshold{
			{Percentage: 80, Severity: budget.StatusWarning},
			{Percentage: 100, Severity: budget.StatusExceeded},
		},
	}
	f.alertRepo.Rules["rule-1"] = &alert.Rule{
		ID: "rule-1", SubscriptionID: "sub-1", Name: "budget breach",
		RuleType: alert.RuleBudgetThreshold, Severity: alert.SeverityHigh,
		Params:   alert.RuleParams{BudgetThreshold: &alert.BudgetThresholdParams{MinStatus: budget.StatusExceeded}},
		IsActive: true,
	}
	if _, err := f.notifSvc.CreateEndpoint(ctx, notification.CreateEndpointRequest{
		Name: "ops", URL: srv.URL, Secret: "0123456789abcdef",
	}); err != nil {
		t.Fatalf("CreateEndpoint() error = %v", err)
	}

	f.runner.RunAll(ctx)

	if got := f.budgets.Budgets["budget-1"].Status; got != budget.StatusExceeded {
		t.Errorf("budget status after cycle = %q, want exceeded", got)
	}

	activeAlerts := 0
	for _, a := range f.alertRepo.Alerts {
		if a.Status == alert.StatusActive {
			activeAlerts++
		}
	}
	if activeAlerts != 1 {
		t.Fatalf("active alerts after cycle = %d, want 1", activeAlerts)
	}

	select {
	case eventType := <-delivered:
		if eventType != notification.EventAlertActive {
			t.Errorf("delivered event type = %q, want alert.active", eventType)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no webhook delivery arrived")
	}
}
