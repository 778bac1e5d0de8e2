package budget

import (
	"fmt"
	"time"
)

// Budget represents a spend ceiling with thresholds over a period.
// CurrentSpend and Status are derived from cost records on every
// recompute and are never written by anything else.
type Budget struct {
	ID             string      `json:"id"`
	SubscriptionID string      `json:"subscription_id"`
	Name           string      `json:"name"`
	Amount         float64     `json:"amount"`
	Currency       string      `json:"currency"`
	Period         string      `json:"period"` // monthly, quarterly, custom
	PeriodStart    *time.Time  `json:"period_start,omitempty"`
	PeriodEnd      *time.Time  `json:"period_end,omitempty"`
	Thresholds     []Threshold `json:"thresholds"`
	CurrentSpend   float64     `json:"current_spend"`
	Status         string      `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Threshold represents one budget threshold
type Threshold struct {
	Percentage float64 `json:"percentage"`
	Severity   string  `json:"severity"`
}

// Period kinds
const (
	PeriodMonthly   = "monthly"
	PeriodQuarterly = "quarterly"
	PeriodCustom    = "custom"
)

// Budget status values, ordered ok < warning < exceeded
const (
	StatusOK       = "ok"
	StatusWarning  = "warning"
	StatusExceeded = "exceeded"
)

// StatusRank returns the ordering rank of a budget status
func StatusRank(status string) int {
	switch status {
	case StatusWarning:
		return 1
	case StatusExceeded:
		return 2
	default:
		return 0
	}
}

// PeriodEndForecast is the budget's own run-rate projection to period end.
// It is a narrower estimate than the forecast engine, scoped to the
// budget's period only.
type PeriodEndForecast struct {
	BudgetID        string  `json:"budget_id"`
	ProjectedSpend  float64 `json:"projected_spend"`
	BudgetAmount    float64 `json:"budget_amount"`
	DaysElapsed     int     `json:"days_elapsed"`
	DaysRemaining   int     `json:"days_remaining"`
	Classification  string  `json:"classification"` // on_track or will_exceed
	CurrentSpend    float64 `json:"current_spend"`
	SpendPerDayRate float64 `json:"spend_per_day_rate"`
}

// Classification values
const (
	OnTrack    = "on_track"
	WillExceed = "will_exceed"
)

// PeriodBounds returns the start and end of the budget's current period
// relative to now. Custom periods use the stored dates.
func (b *Budget) PeriodBounds(now time.Time) (time.Time, time.Time, error) {
	switch b.Period {
	case PeriodMonthly:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0)
		return start, end, nil
	case PeriodQuarterly:
		q := (int(now.Month()) - 1) / 3
		start := time.Date(now.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 3, 0)
		return start, end, nil
	case PeriodCustom:
		if b.PeriodStart == nil || b.PeriodEnd == nil {
			return time.Time{}, time.Time{}, fmt.Errorf("custom period budget %s is missing start or end date", b.ID)
		}
		return *b.PeriodStart, *b.PeriodEnd, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown budget period %q", b.Period)
	}
}

// Filter contains budget filtering options
type Filter struct {
	SubscriptionID string
	Status         string
}
