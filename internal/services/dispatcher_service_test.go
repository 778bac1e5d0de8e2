package services

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/costwatch/costwatch/internal/config"
	"github.com/costwatch/costwatch/internal/domain/alert"
	"github.com/costwatch/costwatch/internal/domain/notification"
	"github.com/costwatch/costwatch/internal/testutil"
)

type dispatcherFixture struct {
	svc       notification.Service
	repo      *testutil.MockNotificationRepository
	alertRepo *testutil.MockAlertRepository
	clock     time.Time
}

func newDispatcherFixture(t *testing.T, cfg config.DispatcherConfig) *dispatcherFixture {
	t.Helper()
	f := &dispatcherFixture{
		repo:      testutil.NewMockNotificationRepository(),
		alertRepo: testutil.NewMockAlertRepository(),
		clock:     day(2026, 8, 10),
	}
	alertSvc := NewAlertService(f.alertRepo, testutil.NewMockBudgetRepository(), testutil.NewMockAnomalyRepository(),
		testutil.NewMockForecastRepository(), nil, testLogger())
	f.svc = NewDispatcherService(f.repo, alertSvc, cfg, testLogger())
	f.svc.(*DispatcherService).now = func() time.Time { return f.clock }
	return f
}

func dispatcherConfig() config.DispatcherConfig {
	return config.DispatcherConfig{
		Timeout:        2 * time.Second,
		MaxAttempts:    3,
		InitialBackoff: time.Minute,
		MaxBackoff:     10 * time.Minute,
		FailureCeiling: 5,
	}
}

func (f *dispatcherFixture) seedEndpoint(t *testing.T, url string) *notification.Endpoint {
	t.Helper()
	e, err := f.svc.CreateEndpoint(context.Background(), notification.CreateEndpointRequest{
		Name:   "ops hook",
		URL:    url,
		Secret: "0123456789abcdef",
	})
	if err != nil {
		t.Fatalf("CreateEndpoint() error = %v", err)
	}
	return e
}

func testEvent() notification.Event {
	return notification.Event{
		EventType:      notification.EventAlertActive,
		SubscriptionID: "sub-1",
		Severity:       alert.SeverityHigh,
		TriggeredValue: 120,
		Timestamp:      day(2026, 8, 10),
	}
}

func TestDispatcherService_DispatchQueuesPerActiveEndpoint(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	f := newDispatcherFixture(t, dispatcherConfig())
	ctx := context.Background()
	f.seedEndpoint(t, srv.URL)
	f.seedEndpoint(t, srv.URL)
	inactive := f.seedEndpoint(t, srv.URL)
	inactive.IsActive = false

	if err := f.svc.Dispatch(ctx, testEvent()); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if len(f.repo.Deliveries) != 2 {
		t.Errorf("queued %d deliveries, want 2 (one per active endpoint)", len(f.repo.Deliveries))
	}
	for _, d := range f.repo.Deliveries {
		if d.Status != notification.DeliveryPending {
			t.Errorf("delivery status = %q, want pending", d.Status)
		}
	}
	if hits.Load() != 0 {
		t.Errorf("Dispatch() hit the endpoint %d times, want attempts deferred to processing", hits.Load())
	}
}

func TestDispatcherService_ProcessPendingDelivers(t *testing.T) {
	type received struct {
		signature string
		eventType string
		body      []byte
	}
	got := make(chan received, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- received{
			signature: r.Header.Get("X-Signature"),
			eventType: r.Header.Get("X-Event-Type"),
			body:      body,
		}
	}))
	defer srv.Close()

	f := newDispatcherFixture(t, dispatcherConfig())
	ctx := context.Background()
	e := f.seedEndpoint(t, srv.URL)
	e.ConsecutiveFailures = 3

	if err := f.svc.Dispatch(ctx, testEvent()); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	attempted, err := f.svc.ProcessPending(ctx)
	if err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}
	if attempted != 1 {
		t.Fatalf("ProcessPending() attempted %d, want 1", attempted)
	}

	r := <-got
	if r.eventType != notification.EventAlertActive {
		t.Errorf("X-Event-Type = %q, want alert.active", r.eventType)
	}
	if want := Sign("0123456789abcdef", r.body); r.signature != want {
		t.Errorf("X-Signature = %q, want %q", r.signature, want)
	}

	for _, d := range f.repo.Deliveries {
		if d.Status != notification.DeliveryDelivered {
			t.Errorf("delivery status = %q, want delivered", d.Status)
		}
		if d.DeliveredAt == nil {
			t.Error("DeliveredAt not set")
		}
		if d.Attempts != 1 {
			t.Errorf("attempts = %d, want 1", d.Attempts)
		}
	}

	if e.ConsecutiveFailures != 0 {
		t.Errorf("ConsecutiveFailures = %d, want reset on success", e.ConsecutiveFailures)
	}
	if e.LastDeliveredAt == nil {
		t.Error("LastDeliveredAt not set on success")
	}
}

func TestDispatcherService_RetrySchedule(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := newDispatcherFixture(t, dispatcherConfig())
	ctx := context.Background()
	f.seedEndpoint(t, srv.URL)

	if err := f.svc.Dispatch(ctx, testEvent()); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if _, err := f.svc.ProcessPending(ctx); err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}

	var d *notification.Delivery
	for _, v := range f.repo.Deliveries {
		d = v
	}
	if d.Status != notification.DeliveryRetrying {
		t.Fatalf("delivery status = %q, want retrying", d.Status)
	}
	if d.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", d.Attempts)
	}
	if want := f.clock.Add(time.Minute); !d.NextAttemptAt.Equal(want) {
		t.Errorf("NextAttemptAt = %v, want initial backoff at %v", d.NextAttemptAt, want)
	}
	if d.LastStatus != http.StatusInternalServerError {
		t.Errorf("LastStatus = %d, want 500", d.LastStatus)
	}

	// not due yet: the same tick must not retry early
	attempted, err := f.svc.ProcessPending(ctx)
	if err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}
	if attempted != 0 {
		t.Errorf("ProcessPending() before NextAttemptAt attempted %d, want 0", attempted)
	}

	// past the backoff the second attempt runs with a longer delay
	f.clock = f.clock.Add(2 * time.Minute)
	if _, err := f.svc.ProcessPending(ctx); err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}
	if d.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", d.Attempts)
	}
	if d.Status != notification.DeliveryRetrying {
		t.Errorf("delivery status = %q, want retrying", d.Status)
	}
	if !d.NextAttemptAt.After(f.clock.Add(time.Minute)) {
		t.Errorf("second retry delay %v, want longer than the first", d.NextAttemptAt.Sub(f.clock))
	}

	// third attempt exhausts the budget
	f.clock = f.clock.Add(10 * time.Minute)
	if _, err := f.svc.ProcessPending(ctx); err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}
	if d.Status != notification.DeliveryFailed {
		t.Errorf("delivery status after max attempts = %q, want failed", d.Status)
	}
	if d.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", d.Attempts)
	}
}

func TestDispatcherService_DeactivatesDeadEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := dispatcherConfig()
	cfg.FailureCeiling = 2
	f := newDispatcherFixture(t, cfg)
	ctx := context.Background()
	e := f.seedEndpoint(t, srv.URL)

	// two separate events, each failing once, reach the ceiling
	for i := 0; i < 2; i++ {
		if err := f.svc.Dispatch(ctx, testEvent()); err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}
	}
	if _, err := f.svc.ProcessPending(ctx); err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}

	if e.IsActive {
		t.Error("endpoint still active after hitting the failure ceiling")
	}
	if e.ConsecutiveFailures != 2 {
		t.Errorf("ConsecutiveFailures = %d, want 2", e.ConsecutiveFailures)
	}

	metaAlerts := 0
	for _, a := range f.alertRepo.Alerts {
		if a.AlertType == alert.TypeDeliveryFailure {
			metaAlerts++
		}
	}
	if metaAlerts != 1 {
		t.Fatalf("raised %d deactivation alerts, want exactly 1", metaAlerts)
	}

	// the queue for a dead endpoint is parked, with no second alert
	f.clock = f.clock.Add(time.Hour)
	if _, err := f.svc.ProcessPending(ctx); err != nil {
		t.Fatalf("ProcessPending() after deactivation error = %v", err)
	}
	for _, d := range f.repo.Deliveries {
		if d.Status != notification.DeliveryFailed {
			t.Errorf("delivery status = %q, want failed once the endpoint is deactivated", d.Status)
		}
	}
	metaAlerts = 0
	for _, a := range f.alertRepo.Alerts {
		if a.AlertType == alert.TypeDeliveryFailure {
			metaAlerts++
		}
	}
	if metaAlerts != 1 {
		t.Errorf("deactivation alert count grew to %d, want still 1", metaAlerts)
	}
}

func TestDispatcherService_ActivateResetsFailures(t *testing.T) {
	f := newDispatcherFixture(t, dispatcherConfig())
	ctx := context.Background()
	e := f.seedEndpoint(t, "http://localhost:1")
	e.IsActive = false
	e.ConsecutiveFailures = 5

	got, err := f.svc.Activate(ctx, e.ID)
	if err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	if !got.IsActive || got.ConsecutiveFailures != 0 {
		t.Errorf("Activate() = active %v failures %d, want active with zero failures", got.IsActive, got.ConsecutiveFailures)
	}
}

func TestDispatcherService_TestSendsImmediately(t *testing.T) {
	var eventType atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		eventType.Store(r.Header.Get("X-Event-Type"))
	}))
	defer srv.Close()

	f := newDispatcherFixture(t, dispatcherConfig())
	e := f.seedEndpoint(t, srv.URL)

	d, err := f.svc.Test(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("Test() error = %v", err)
	}
	if d.Status != notification.DeliveryDelivered {
		t.Errorf("test delivery status = %q, want delivered", d.Status)
	}
	if got, _ := eventType.Load().(string); got != notification.EventEndpointTest {
		t.Errorf("X-Event-Type = %q, want endpoint.test", got)
	}
}

func TestDispatcherService_OrphanedDeliveryFails(t *testing.T) {
	f := newDispatcherFixture(t, dispatcherConfig())
	ctx := context.Background()
	e := f.seedEndpoint(t, "http://localhost:1")

	if err := f.svc.Dispatch(ctx, testEvent()); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if err := f.svc.DeleteEndpoint(ctx, e.ID); err != nil {
		t.Fatalf("DeleteEndpoint() error = %v", err)
	}

	attempted, err := f.svc.ProcessPending(ctx)
	if err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}
	if attempted != 0 {
		t.Errorf("ProcessPending() attempted %d deliveries to a deleted endpoint, want 0", attempted)
	}
	for _, d := range f.repo.Deliveries {
		if d.Status != notification.DeliveryFailed {
			t.Errorf("orphaned delivery status = %q, want failed", d.Status)
		}
	}
}
