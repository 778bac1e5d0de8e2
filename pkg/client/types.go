package client

import "time"

// Subscription represents a monitored cloud subscription
type Subscription struct {
	ID             string     `json:"id"`
	DisplayName    string     `json:"display_name"`
	CredentialRef  string     `json:"credential_ref"`
	IsActive       bool       `json:"is_active"`
	LastSyncAt     *time.Time `json:"last_sync_at,omitempty"`
	LastSyncStatus string     `json:"last_sync_status"`
	LastSyncError  string     `json:"last_sync_error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CostRecord represents one day's spend for one service and resource group
type CostRecord struct {
	SubscriptionID string    `json:"subscription_id"`
	Date           time.Time `json:"date"`
	ServiceName    string    `json:"service_name"`
	ResourceGroup  string    `json:"resource_group"`
	Amount         float64   `json:"amount"`
	Currency       string    `json:"currency"`
	IsAnomaly      bool      `json:"is_anomaly"`
}

// DailyTotal represents the summed spend for one day
type DailyTotal struct {
	Date  time.Time `json:"date"`
	Total float64   `json:"total"`
}

// Threshold represents one budget threshold
type Threshold struct {
	Percentage float64 `json:"percentage"`
	Severity   string  `json:"severity"`
}

// Budget represents a spend ceiling with derived status
type Budget struct {
	ID             string      `json:"id"`
	SubscriptionID string      `json:"subscription_id"`
	Name           string      `json:"name"`
	Amount         float64     `json:"amount"`
	Currency       string      `json:"currency"`
	Period         string      `json:"period"`
	PeriodStart    *time.Time  `json:"period_start,omitempty"`
	PeriodEnd      *time.Time  `json:"period_end,omitempty"`
	Thresholds     []Threshold `json:"thresholds"`
	CurrentSpend   float64     `json:"current_spend"`
	Status         string      `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// PeriodEndForecast is a budget's run-rate projection to period end
type PeriodEndForecast struct {
	BudgetID        string  `json:"budget_id"`
	ProjectedSpend  float64 `json:"projected_spend"`
	BudgetAmount    float64 `json:"budget_amount"`
	DaysElapsed     int     `json:"days_elapsed"`
	DaysRemaining   int     `json:"days_remaining"`
	Classification  string  `json:"classification"`
	CurrentSpend    float64 `json:"current_spend"`
	SpendPerDayRate float64 `json:"spend_per_day_rate"`
}

// Anomaly represents a flagged cost data point
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
	Confidence      float64    `json:"confidence"`
	Acknowledged    bool       `json:"acknowledged"`
	AcknowledgedBy  string     `json:"acknowledged_by,omitempty"`
	AcknowledgedAt  *time.Time `json:"acknowledged_at,omitempty"`
	Note            string     `json:"note,omitempty"`
	DetectedAt      time.Time  `json:"detected_at"`
}

// Forecast represents a predicted daily spend total
type Forecast struct {
	ID             string     `json:"id"`
	SubscriptionID string     `json:"subscription_id"`
	ForecastDate   time.Time  `json:"forecast_date"`
	Predicted      float64    `json:"predicted"`
	LowerBound     float64    `json:"lower_bound"`
	UpperBound     float64    `json:"upper_bound"`
	ModelType      string     `json:"model_type"`
	Accuracy       *float64   `json:"accuracy,omitempty"`
	GeneratedAt    time.Time  `json:"generated_at"`
	ScoredAt       *time.Time `json:"scored_at,omitempty"`
}

// RuleParams holds the rule's typed condition parameters
type RuleParams struct {
	BudgetThreshold *BudgetThresholdParams `json:"budget_threshold,omitempty"`
	Anomaly         *AnomalyRuleParams     `json:"anomaly,omitempty"`
	ForecastOverrun *ForecastOverrunParams `json:"forecast_overrun,omitempty"`
}

// BudgetThresholdParams configures a budget_threshold rule
type BudgetThresholdParams struct {
	BudgetID  string `json:"budget_id,omitempty"`
	MinStatus string `json:"min_status"`
}

// AnomalyRuleParams configures an anomaly rule
type AnomalyRuleParams struct {
	MinConfidence float64 `json:"min_confidence"`
	LookbackDays  int     `json:"lookback_days"`
}

// ForecastOverrunParams configures a forecast_overrun rule
type ForecastOverrunParams struct {
	BudgetID  string `json:"budget_id,omitempty"`
	ModelType string `json:"model_type,omitempty"`
}

// Rule represents an alert rule. Cadence is a duration string.
type Rule struct {
	ID             string     `json:"id"`
	SubscriptionID string     `json:"subscription_id,omitempty"`
	Name           string     `json:"name"`
	RuleType       string     `json:"rule_type"`
	Severity       string     `json:"severity"`
	Cadence        string     `json:"cadence,omitempty"`
	IsActive       bool       `json:"is_active"`
	Params         RuleParams `json:"params"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Alert represents a lifecycle-tracked breach notification
type Alert struct {
	ID             string     `json:"id"`
	RuleID         string     `json:"rule_id,omitempty"`
	SubscriptionID string     `json:"subscription_id,omitempty"`
	Severity       string     `json:"severity"`
	AlertType      string     `json:"alert_type"`
	TriggeredValue float64    `json:"triggered_value"`
	Message        string     `json:"message"`
	Status         string     `json:"status"`
	Resolution     string     `json:"resolution,omitempty"`
	TriggeredAt    time.Time  `json:"triggered_at"`
	LastEvaluated  time.Time  `json:"last_evaluated"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	AcknowledgedBy string     `json:"acknowledged_by,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy     string     `json:"resolved_by,omitempty"`
}

// Endpoint represents a webhook endpoint
type Endpoint struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	URL                 string     `json:"url"`
	IsActive            bool       `json:"is_active"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastDeliveredAt     *time.Time `json:"last_delivered_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Delivery represents one webhook delivery attempt record
type Delivery struct {
	ID            string     `json:"id"`
	EndpointID    string     `json:"endpoint_id"`
	EventType     string     `json:"event_type"`
	Status        string     `json:"status"`
	Attempts      int        `json:"attempts"`
	NextAttemptAt time.Time  `json:"next_attempt_at"`
	LastStatus    int        `json:"last_status_code,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	LastLatencyMs int64      `json:"last_latency_ms,omitempty"`
	DeliveredAt   *time.Time `json:"delivered_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ListOptions contains common pagination options
type ListOptions struct {
	Page     int
	PageSize int
}
