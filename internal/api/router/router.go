package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/costwatch/costwatch/internal/api/handlers"
	"github.com/costwatch/costwatch/internal/api/middleware"
	"github.com/costwatch/costwatch/internal/config"
	"github.com/costwatch/costwatch/internal/pkg/logger"
	"github.com/costwatch/costwatch/internal/pkg/metrics"
)

// Handlers bundles every handler the router mounts
type Handlers struct {
	Health       *handlers.HealthHandler
	Subscription *handlers.SubscriptionHandler
	Cost         *handlers.CostHandler
	Budget       *handlers.BudgetHandler
	Anomaly      *handlers.AnomalyHandler
	Forecast     *handlers.ForecastHandler
	Alert        *handlers.AlertHandler
	Notification *handlers.NotificationHandler
}

// New builds the HTTP routing tree. Reads are open; every mutating route
// sits behind token authentication.
func New(cfg *config.Config, log *logger.Logger, h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(middleware.RateLimit(100, 200))
	r.Use(metrics.Middleware)

	// Probes and metrics
	r.Get("/health", h.Health.Healthz)
	r.Get("/healthz", h.Health.Healthz)
	r.Get("/readyz", h.Health.Readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Read-only routes
		r.Group(func(r chi.Router) {
			r.Get("/subscriptions", h.Subscription.List)
			r.Get("/subscriptions/{id}", h.Subscription.Get)

			r.Get("/costs", h.Cost.Query)
			r.Get("/costs/daily-totals", h.Cost.DailyTotals)

			r.Get("/budgets", h.Budget.List)
			r.Get("/budgets/{id}", h.Budget.Get)
			r.Get("/budgets/{id}/forecast", h.Budget.Forecast)

			r.Get("/anomalies", h.Anomaly.List)

			r.Get("/forecasts", h.Forecast.List)

			r.Get("/rules", h.Alert.ListRules)
			r.Get("/rules/{id}", h.Alert.GetRule)

			r.Get("/alerts", h.Alert.ListAlerts)
			r.Get("/alerts/summary", h.Alert.Summary)
			r.Get("/alerts/{id}", h.Alert.GetAlert)

			r.Get("/endpoints", h.Notification.ListEndpoints)
			r.Get("/deliveries", h.Notification.ListDeliveries)
		})

		// Mutating routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(cfg.Auth.JWTSecret))

			r.Post("/subscriptions", h.Subscription.Register)
			r.Post("/subscriptions/{id}/sync", h.Subscription.SyncNow)
			r.Post("/subscriptions/{id}/deactivate", h.Subscription.Deactivate)

			r.Post("/costs/ingest", h.Cost.Ingest)

			r.Post("/budgets", h.Budget.Create)
			r.Put("/budgets/{id}", h.Budget.Update)
			r.Delete("/budgets/{id}", h.Budget.Delete)
			r.Post("/budgets/{id}/recompute", h.Budget.Recompute)

			r.Post("/anomalies/detect", h.Anomaly.Detect)
			r.Post("/anomalies/{id}/acknowledge", h.Anomaly.Acknowledge)

			r.Post("/forecasts/generate", h.Forecast.Generate)

			r.Post("/rules", h.Alert.CreateRule)
			r.Put("/rules/{id}", h.Alert.UpdateRule)
			r.Delete("/rules/{id}", h.Alert.DeleteRule)
			r.Post("/rules/evaluate", h.Alert.Evaluate)

			r.Post("/alerts/{id}/acknowledge", h.Alert.Acknowledge)
			r.Post("/alerts/{id}/resolve", h.Alert.Resolve)

			r.Post("/endpoints", h.Notification.CreateEndpoint)
			r.Put("/endpoints/{id}", h.Notification.UpdateEndpoint)
			r.Delete("/endpoints/{id}", h.Notification.DeleteEndpoint)
			r.Post("/endpoints/{id}/activate", h.Notification.Activate)
			r.Post("/endpoints/{id}/test", h.Notification.Test)
		})
	})

	return r
}
