package notification

import "time"

// Endpoint represents an outbound webhook target. Consecutive delivery
// failures are tracked so the dispatcher can deactivate a dead endpoint;
// reactivation is manual.
type Endpoint struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	URL                 string     `json:"url"`
	Secret              string     `json:"-"`
	IsActive            bool       `json:"is_active"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastDeliveredAt     *time.Time `json:"last_delivered_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Event is the payload dispatched on a notification-worthy alert
// transition. Serialized to the webhook JSON body.
type Event struct {
	EventType      string    `json:"event_type"`
	SubscriptionID string    `json:"subscription_id"`
	Severity       string    `json:"severity"`
	TriggeredValue float64   `json:"triggered_value"`
	Timestamp      time.Time `json:"timestamp"`
}

// Event types
const (
	EventAlertActive    = "alert.active"
	EventAlertEscalated = "alert.escalated"
	EventEndpointTest   = "endpoint.test"
)

// Delivery tracks one event's delivery to one endpoint as an explicit
// retry state machine: attempt count, next eligible time and terminal
// status are persisted so a restart resumes the schedule.
type Delivery struct {
	ID            string     `json:"id"`
	EndpointID    string     `json:"endpoint_id"`
	EventType     string     `json:"event_type"`
	Payload       string     `json:"payload"`
	Status        string     `json:"status"`
	Attempts      int        `json:"attempts"`
	NextAttemptAt time.Time  `json:"next_attempt_at"`
	LastStatus    int        `json:"last_status_code,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	LastLatencyMs int64      `json:"last_latency_ms,omitempty"`
	DeliveredAt   *time.Time `json:"delivered_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Delivery statuses. pending and retrying are live; delivered and failed
// are terminal.
const (
	DeliveryPending   = "pending"
	DeliveryRetrying  = "retrying"
	DeliveryDelivered = "delivered"
	DeliveryFailed    = "failed"
)

// IsTerminal reports whether a delivery status is final
func IsTerminal(status string) bool {
	return status == DeliveryDelivered || status == DeliveryFailed
}

// DeliveryFilter contains delivery query filters
type DeliveryFilter struct {
	EndpointID string
	Status     string
}
