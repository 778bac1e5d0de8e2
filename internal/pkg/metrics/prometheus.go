package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "costwatch",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "costwatch",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "costwatch",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	// Sync cycle metrics
	syncCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "costwatch",
			Subsystem: "sync",
			Name:      "cycles_total",
			Help:      "Total number of per-subscription sync cycles",
		},
		[]string{"status"},
	)

	syncCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "costwatch",
			Subsystem: "sync",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a per-subscription sync cycle in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	// Anomaly detection metrics
	anomaliesDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "costwatch",
			Subsystem: "anomaly",
			Name:      "detected_total",
			Help:      "Total number of cost anomalies detected",
		},
		[]string{"method"},
	)

	// Alert metrics
	alertsActiveCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "costwatch",
			Subsystem: "alert",
			Name:      "active_count",
			Help:      "Number of active alerts",
		},
		[]string{"severity"},
	)

	alertsTriggeredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "costwatch",
			Subsystem: "alert",
			Name:      "triggered_total",
			Help:      "Total number of alerts triggered by rule evaluation",
		},
		[]string{"rule_type", "severity"},
	)

	// Webhook delivery metrics
	deliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "costwatch",
			Subsystem: "dispatch",
			Name:      "deliveries_total",
			Help:      "Total number of webhook delivery attempts",
		},
		[]string{"status"},
	)

	deliveryLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "costwatch",
			Subsystem: "dispatch",
			Name:      "delivery_latency_seconds",
			Help:      "Latency of webhook delivery attempts in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns a middleware that records Prometheus metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()

		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = "unknown"
		}

		status := strconv.Itoa(wrapped.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, routePattern, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, routePattern, status).Observe(duration)
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordSyncCycle records a completed sync cycle
func RecordSyncCycle(status string, duration time.Duration) {
	syncCyclesTotal.WithLabelValues(status).Inc()
	syncCycleDuration.Observe(duration.Seconds())
}

// RecordAnomalyDetected records a detected anomaly by method
func RecordAnomalyDetected(method string) {
	anomaliesDetectedTotal.WithLabelValues(method).Inc()
}

// SetActiveAlerts sets the gauge for active alerts by severity
func SetActiveAlerts(severity string, count float64) {
	alertsActiveCount.WithLabelValues(severity).Set(count)
}

// RecordAlertTriggered records an alert triggered by rule evaluation
func RecordAlertTriggered(ruleType, severity string) {
	alertsTriggeredTotal.WithLabelValues(ruleType, severity).Inc()
}

// RecordDelivery records a webhook delivery attempt
func RecordDelivery(status string, latency time.Duration) {
	deliveriesTotal.WithLabelValues(status).Inc()
	deliveryLatency.Observe(latency.Seconds())
}
