package cost

import "time"

// Record represents one day's spend for one service/resource-group
// combination. Uniquely keyed by (subscription, date, service,
// resource group); re-ingesting the same key overwrites the row.
type Record struct {
	SubscriptionID string    `json:"subscription_id"`
	Date           time.Time `json:"date"`
	ServiceName    string    `json:"service_name"`
	ResourceGroup  string    `json:"resource_group"`
	Amount         float64   `json:"amount"`
	Currency       string    `json:"currency"`
	IsAnomaly      bool      `json:"is_anomaly"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DailyTotal represents the summed spend for one day
type DailyTotal struct {
	Date  time.Time `json:"date"`
	Total float64   `json:"total"`
}

// Filter contains cost record query filters
type Filter struct {
	ServiceName   string
	ResourceGroup string
	AnomaliesOnly bool
	Currency      string
}
