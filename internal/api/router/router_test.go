package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/costwatch/costwatch/internal/api/handlers"
	"github.com/costwatch/costwatch/internal/api/router"
	"github.com/costwatch/costwatch/internal/auth"
	"github.com/costwatch/costwatch/internal/config"
	"github.com/costwatch/costwatch/internal/detector"
	"github.com/costwatch/costwatch/internal/forecaster"
	"github.com/costwatch/costwatch/internal/pkg/logger"
	"github.com/costwatch/costwatch/internal/pkg/validator"
	"github.com/costwatch/costwatch/internal/repository/sqlite"
	"github.com/costwatch/costwatch/internal/services"
	"github.com/costwatch/costwatch/internal/testutil"
)

const testJWTSecret = "router-test-secret-0123456789"

// envelope mirrors the standard response wrapper
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type noopSyncer struct{}

func (noopSyncer) RunCycle(ctx context.Context, subscriptionID string) {}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db := testutil.NewTestDB(t)
	t.Cleanup(func() { testutil.CleanupDB(db) })

	log := logger.New(logger.Config{Level: "error", Format: "json"})
	val := validator.New()

	subRepo := sqlite.NewSubscriptionRepository(db)
	costRepo := sqlite.NewCostRepository(db)
	budgetRepo := sqlite.NewBudgetRepository(db)
	anomalyRepo := sqlite.NewAnomalyRepository(db)
	forecastRepo := sqlite.NewForecastRepository(db)
	alertRepo := sqlite.NewAlertRepository(db)
	notifRepo := sqlite.NewNotificationRepository(db)

	subSvc := services.NewSubscriptionService(subRepo, log)
	costSvc := services.NewCostService(costRepo, subRepo, log)
	budgetSvc := services.NewBudgetService(budgetRepo, costRepo, subRepo, log)
	anomalySvc := services.NewAnomalyService(anomalyRepo, costRepo, subRepo, detector.DefaultRegistry(3.0, 50, 7), log)
	models := []forecaster.Model{forecaster.NewLinear(7), forecaster.NewSeasonal(14)}
	forecastSvc := services.NewForecastService(forecastRepo, costRepo, subRepo, models, 30, 30, log)
	alertSvc := services.NewAlertService(alertRepo, budgetRepo, anomalyRepo, forecastRepo, budgetSvc, log)
	notifSvc := services.NewDispatcherService(notifRepo, alertSvc, config.DispatcherConfig{
		Timeout:        2 * time.Second,
		MaxAttempts:    3,
		InitialBackoff: time.Minute,
		MaxBackoff:     10 * time.Minute,
		FailureCeiling: 5,
	}, log)

	cfg := &config.Config{}
	cfg.Auth.JWTSecret = testJWTSecret

	h := &router.Handlers{
		Health:       handlers.NewHealthHandler(db, log),
		Subscription: handlers.NewSubscriptionHandler(subSvc, noopSyncer{}, log, val),
		Cost:         handlers.NewCostHandler(costSvc, log, val),
		Budget:       handlers.NewBudgetHandler(budgetSvc, log, val),
		Anomaly:      handlers.NewAnomalyHandler(anomalySvc, 30, log, val),
		Forecast:     handlers.NewForecastHandler(forecastSvc, 7, log, val),
		Alert:        handlers.NewAlertHandler(alertSvc, log, val),
		Notification: handlers.NewNotificationHandler(notifSvc, log, val),
	}

	srv := httptest.NewServer(router.New(cfg, log, h))
	t.Cleanup(srv.Close)
	return srv
}

func doRequest(t *testing.T, method, url string, body interface{}, token string) (*http.Response, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("%s %s: decode response: %v", method, url, err)
	}
	return resp, env
}

func TestRouter_HealthAndAuth(t *testing.T) {
	srv := newTestServer(t)

	resp, env := doRequest(t, http.MethodGet, srv.URL+"/health", nil, "")
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("health returned %d", resp.StatusCode)
	}

	resp, _ = doRequest(t, http.MethodGet, srv.URL+"/readyz", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("readyz returned %d", resp.StatusCode)
	}

	// Mutations require a token
	resp, _ = doRequest(t, http.MethodPost, srv.URL+"/api/v1/subscriptions", map[string]string{
		"display_name":   "prod",
		"credential_ref": "ref-1",
	}, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	// A token signed with the wrong secret is rejected
	badToken, err := auth.MintToken("intruder", "", "some-other-secret-0123456789", time.Hour)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	resp, _ = doRequest(t, http.MethodPost, srv.URL+"/api/v1/subscriptions", map[string]string{
		"display_name":   "prod",
		"credential_ref": "ref-1",
	}, badToken)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", resp.StatusCode)
	}

	// Reads stay open
	resp, _ = doRequest(t, http.MethodGet, srv.URL+"/api/v1/subscriptions", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected open read, got %d", resp.StatusCode)
	}
}

func TestRouter_BudgetAlertFlow(t *testing.T) {
	srv := newTestServer(t)

	token, err := auth.MintToken("casey", "casey@example.com", testJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	// Register a subscription
	resp, env := doRequest(t, http.MethodPost, srv.URL+"/api/v1/subscriptions", map[string]string{
		"display_name":   "production",
		"credential_ref": "vault://azure/prod",
	}, token)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register returned %d: %s", resp.StatusCode, env.Data)
	}
	var sub struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &sub); err != nil || sub.ID == "" {
		t.Fatalf("register response missing id: %s", env.Data)
	}

	// Ingest today's spend
	today := time.Now().UTC().Format("2006-01-02")
	resp, _ = doRequest(t, http.MethodPost, srv.URL+"/api/v1/costs/ingest", map[string]interface{}{
		"subscription_id": sub.ID,
		"records": []map[string]interface{}{
			{"date": today, "service_name": "compute", "resource_group": "rg-1", "amount": 600.0, "currency": "USD"},
		},
	}, token)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("ingest returned %d", resp.StatusCode)
	}

	// The batch is queryable
	resp, env = doRequest(t, http.MethodGet,
		fmt.Sprintf("%s/api/v1/costs?subscription_id=%s", srv.URL, sub.ID), nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cost query returned %d", resp.StatusCode)
	}
	var records []map[string]interface{}
	if err := json.Unmarshal(env.Data, &records); err != nil || len(records) != 1 {
		t.Fatalf("expected 1 cost record, got %s", env.Data)
	}

	// Create a monthly budget the spend already exceeds
	resp, env = doRequest(t, http.MethodPost, srv.URL+"/api/v1/budgets", map[string]interface{}{
		"subscription_id": sub.ID,
		"name":            "monthly cap",
		"amount":          500.0,
		"currency":        "USD",
		"period":          "monthly",
		"thresholds": []map[string]interface{}{
			{"percentage": 80, "severity": "warning"},
			{"percentage": 100, "severity": "exceeded"},
		},
	}, token)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("budget create returned %d: %s", resp.StatusCode, env.Data)
	}
	var bud struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &bud); err != nil || bud.ID == "" {
		t.Fatalf("budget response missing id: %s", env.Data)
	}

	// Recompute derives exceeded status
	resp, env = doRequest(t, http.MethodPost,
		fmt.Sprintf("%s/api/v1/budgets/%s/recompute", srv.URL, bud.ID), nil, token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("recompute returned %d", resp.StatusCode)
	}
	var recompute struct {
		Status       string  `json:"status"`
		CurrentSpend float64 `json:"current_spend"`
	}
	if err := json.Unmarshal(env.Data, &recompute); err != nil {
		t.Fatalf("decode recompute: %v", err)
	}
	if recompute.Status != "exceeded" || recompute.CurrentSpend != 600 {
		t.Fatalf("recompute got status %q spend %v", recompute.Status, recompute.CurrentSpend)
	}

	// Create a budget threshold rule and evaluate it
	resp, env = doRequest(t, http.MethodPost, srv.URL+"/api/v1/rules", map[string]interface{}{
		"subscription_id": sub.ID,
		"name":            "budget breach",
		"rule_type":       "budget_threshold",
		"severity":        "high",
		"params": map[string]interface{}{
			"budget_threshold": map[string]interface{}{"min_status": "warning"},
		},
	}, token)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("rule create returned %d: %s", resp.StatusCode, env.Data)
	}

	resp, env = doRequest(t, http.MethodPost, srv.URL+"/api/v1/rules/evaluate", map[string]string{
		"subscription_id": sub.ID,
	}, token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("evaluate returned %d", resp.StatusCode)
	}
	var alerts []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(env.Data, &alerts); err != nil || len(alerts) != 1 {
		t.Fatalf("expected 1 alert from evaluation, got %s", env.Data)
	}
	if alerts[0].Status != "active" {
		t.Fatalf("expected active alert, got %q", alerts[0].Status)
	}

	// Acknowledge records the actor from the token
	resp, _ = doRequest(t, http.MethodPost,
		fmt.Sprintf("%s/api/v1/alerts/%s/acknowledge", srv.URL, alerts[0].ID), nil, token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("acknowledge returned %d", resp.StatusCode)
	}

	resp, env = doRequest(t, http.MethodGet,
		fmt.Sprintf("%s/api/v1/alerts/%s", srv.URL, alerts[0].ID), nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("alert get returned %d", resp.StatusCode)
	}
	var got struct {
		Status         string `json:"status"`
		AcknowledgedBy string `json:"acknowledged_by"`
	}
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("decode alert: %v", err)
	}
	if got.Status != "acknowledged" || got.AcknowledgedBy != "casey" {
		t.Fatalf("alert got status %q by %q", got.Status, got.AcknowledgedBy)
	}
}

func TestRouter_EndpointLifecycle(t *testing.T) {
	srv := newTestServer(t)

	token, err := auth.MintToken("casey", "", testJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	received := make(chan string, 1)
	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- r.Header.Get("X-Event-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer sink.Close()

	resp, env := doRequest(t, http.MethodPost, srv.URL+"/api/v1/endpoints", map[string]string{
		"name":   "ops hook",
		"url":    sink.URL,
		"secret": "0123456789abcdef",
	}, token)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("endpoint create returned %d: %s", resp.StatusCode, env.Data)
	}
	var ep struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &ep); err != nil || ep.ID == "" {
		t.Fatalf("endpoint response missing id: %s", env.Data)
	}

	resp, _ = doRequest(t, http.MethodPost,
		fmt.Sprintf("%s/api/v1/endpoints/%s/test", srv.URL, ep.ID), nil, token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("endpoint test returned %d", resp.StatusCode)
	}

	select {
	case eventType := <-received:
		if eventType != "endpoint.test" {
			t.Fatalf("expected endpoint.test event, got %q", eventType)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("test delivery never reached the endpoint")
	}

	resp, env = doRequest(t, http.MethodGet,
		fmt.Sprintf("%s/api/v1/deliveries?endpoint_id=%s", srv.URL, ep.ID), nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("deliveries list returned %d", resp.StatusCode)
	}
	var page struct {
		Data []struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(env.Data, &page); err != nil || len(page.Data) != 1 {
		t.Fatalf("expected 1 delivery, got %s", env.Data)
	}
	if page.Data[0].Status != "delivered" {
		t.Fatalf("expected delivered, got %q", page.Data[0].Status)
	}
}
