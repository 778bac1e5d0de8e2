package anomaly

import "time"

// Anomaly represents a statistically unusual cost data point flagged by
// one detection method. One row exists per (subscription, date, service,
// method); re-running detection updates the row in place. Rows are
// append-only audit facts; acknowledging never deletes them.
type Anomaly struct {
	ID              string     `json:"id"`
	SubscriptionID  string     `json:"subscription_id"`
	Date            time.Time  `json:"date"`
	ServiceName     string     `json:"service_name"`
	ObservedAmount  float64    `json:"observed_amount"`
	ExpectedAmount  float64    `json:"expected_amount"`
	Deviation       float64    `json:"deviation"`
	DeviationPct    float64    `json:"deviation_pct"`
	DetectionMethod string     `json:"detection_method"`
	Confidence      float64    `json:"confidence"` // 0..1
	Acknowledged    bool       `json:"acknowledged"`
	AcknowledgedBy  string     `json:"acknowledged_by,omitempty"`
	AcknowledgedAt  *time.Time `json:"acknowledged_at,omitempty"`
	Note            string     `json:"note,omitempty"`
	DetectedAt      time.Time  `json:"detected_at"`
}

// Detection methods
const (
	MethodZScore          = "zscore"
	MethodIQR             = "iqr"
	MethodMovingAverage   = "moving_average"
	MethodIsolationForest = "isolation_forest"
)

// Methods lists all registered detection method names
func Methods() []string {
	return []string{MethodZScore, MethodIQR, MethodMovingAverage, MethodIsolationForest}
}

// Filter contains anomaly filtering options
type Filter struct {
	SubscriptionID string
	ServiceName    string
	Method         string
	Unacknowledged bool
	MinConfidence  float64
	From           *time.Time
	To             *time.Time
}
