package services

import (
	"context"
	"sort"
	"time"

	"github.com/costwatch/costwatch/internal/domain/budget"
	"github.com/costwatch/costwatch/internal/domain/cost"
	"github.com/costwatch/costwatch/internal/domain/subscription"
	"github.com/costwatch/costwatch/internal/pkg/errors"
	"github.com/costwatch/costwatch/internal/pkg/logger"
)

// BudgetService implements budget.Service
type BudgetService struct {
	repo     budget.Repository
	costRepo cost.Repository
	subRepo  subscription.Repository
	logger   *logger.Logger
	now      func() time.Time
}

// NewBudgetService creates a new budget service
func NewBudgetService(repo budget.Repository, costRepo cost.Repository, subRepo subscription.Repository, log *logger.Logger) budget.Service {
	return &BudgetService{
		repo:     repo,
		costRepo: costRepo,
		subRepo:  subRepo,
		logger:   log,
		now:      time.Now,
	}
}

// Create validates and persists a budget definition
func (s *BudgetService) Create(ctx context.Context, b *budget.Budget) error {
	if err := s.validate(ctx, b); err != nil {
		return err
	}

	b.CurrentSpend = 0
	b.Status = budget.StatusOK
	if err := s.repo.Create(ctx, b); err != nil {
		s.logger.ErrorWithErr(err, "Failed to create budget")
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"budget_id":       b.ID,
		"subscription_id": b.SubscriptionID,
		"amount":          b.Amount,
		"period":          b.Period,
	}).Info("Budget created")

	return nil
}

// GetByID retrieves a budget by ID
func (s *BudgetService) GetByID(ctx context.Context, id string) (*budget.Budget, error) {
	return s.repo.GetByID(ctx, id)
}

// Update validates and persists changes to a budget definition. Derived
// fields are left alone; the next recompute refreshes them against the
// new definition.
func (s *BudgetService) Update(ctx context.Context, b *budget.Budget) error {
	existing, err := s.repo.GetByID(ctx, b.ID)
	if err != nil {
		return err
	}
	b.SubscriptionID = existing.SubscriptionID

	if err := s.validate(ctx, b); err != nil {
		return err
	}

	if err := s.repo.Update(ctx, b); err != nil {
		s.logger.ErrorWithErr(err, "Failed to update budget")
		return err
	}

	return nil
}

// Delete deletes a budget
func (s *BudgetService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"budget_id": id,
	}).Info("Budget deleted")

	return nil
}

// List retrieves budgets with filters
func (s *BudgetService) List(ctx context.Context, filter budget.Filter) ([]*budget.Budget, error) {
	return s.repo.List(ctx, filter)
}

// ListByStatus retrieves budgets with the given derived status
func (s *BudgetService) ListByStatus(ctx context.Context, status string) ([]*budget.Budget, error) {
	return s.repo.List(ctx, budget.Filter{Status: status})
}

// Recompute derives current spend from cost records for the budget's
// period-to-date and sets the status from its thresholds
func (s *BudgetService) Recompute(ctx context.Context, id string) (string, float64, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", 0, err
	}

	start, end, err := b.PeriodBounds(s.now())
	if err != nil {
		return "", 0, errors.BadRequest(err.Error())
	}

	spend, err := s.costRepo.SumForPeriod(ctx, b.SubscriptionID, start, end.AddDate(0, 0, -1), b.Currency)
	if err != nil {
		return "", 0, err
	}

	status := deriveStatus(b, spend)
	if err := s.repo.UpdateDerived(ctx, id, spend, status); err != nil {
		return "", 0, err
	}

	if status != b.Status {
		s.logger.WithFields(map[string]interface{}{
			"budget_id":     id,
			"status":        status,
			"current_spend": spend,
		}).Info("Budget status changed")
	}

	return status, spend, nil
}

// RecomputeForSubscription recomputes every budget of one subscription
func (s *BudgetService) RecomputeForSubscription(ctx context.Context, subscriptionID string) error {
	budgets, err := s.repo.List(ctx, budget.Filter{SubscriptionID: subscriptionID})
	if err != nil {
		return err
	}

	for _, b := range budgets {
		if _, _, err := s.Recompute(ctx, b.ID); err != nil {
			s.logger.WithError(err).WithFields(map[string]interface{}{
				"budget_id": b.ID,
			}).Error("Failed to recompute budget")
			return err
		}
	}

	return nil
}

// ForecastPeriodEnd extrapolates the period-to-date spend rate over the
// remaining days of the budget period. This is a budget-scoped run-rate
// estimate, independent of the model-based forecast engine.
func (s *BudgetService) ForecastPeriodEnd(ctx context.Context, id string) (*budget.PeriodEndForecast, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	start, end, err := b.PeriodBounds(now)
	if err != nil {
		return nil, errors.BadRequest(err.Error())
	}

	spend, err := s.costRepo.SumForPeriod(ctx, b.SubscriptionID, start, end.AddDate(0, 0, -1), b.Currency)
	if err != nil {
		return nil, err
	}

	elapsed := int(now.Sub(start).Hours()/24) + 1
	if elapsed < 1 {
		elapsed = 1
	}
	totalDays := int(end.Sub(start).Hours() / 24)
	remaining := totalDays - elapsed
	if remaining < 0 {
		remaining = 0
	}

	rate := spend / float64(elapsed)
	projected := spend + rate*float64(remaining)

	classification := budget.OnTrack
	if projected > b.Amount {
		classification = budget.WillExceed
	}

	return &budget.PeriodEndForecast{
		BudgetID:        b.ID,
		ProjectedSpend:  projected,
		BudgetAmount:    b.Amount,
		DaysElapsed:     elapsed,
		DaysRemaining:   remaining,
		Classification:  classification,
		CurrentSpend:    spend,
		SpendPerDayRate: rate,
	}, nil
}

func (s *BudgetService) validate(ctx context.Context, b *budget.Budget) error {
	if b.Name == "" {
		return errors.BadRequest("Budget name is required")
	}
	if b.Amount <= 0 {
		return errors.BadRequest("Budget amount must be positive")
	}
	if b.Currency == "" {
		return errors.BadRequest("Budget currency is required")
	}
	switch b.Period {
	case budget.PeriodMonthly, budget.PeriodQuarterly:
	case budget.PeriodCustom:
		if b.PeriodStart == nil || b.PeriodEnd == nil {
			return errors.BadRequest("Custom period budgets require start and end dates")
		}
		if !b.PeriodEnd.After(*b.PeriodStart) {
			return errors.BadRequest("Custom period end must be after its start")
		}
	default:
		return errors.BadRequest("Budget period must be monthly, quarterly or custom")
	}

	if len(b.Thresholds) == 0 {
		return errors.BadRequest("Budget requires at least one threshold")
	}
	seen := make(map[float64]bool)
	for _, th := range b.Thresholds {
		if th.Percentage <= 0 || th.Percentage > 200 {
			return errors.BadRequest("Threshold percentage must be within (0, 200]")
		}
		if seen[th.Percentage] {
			return errors.BadRequest("Threshold percentages must be distinct")
		}
		seen[th.Percentage] = true
		if th.Severity != budget.StatusWarning && th.Severity != budget.StatusExceeded {
			return errors.BadRequest("Threshold severity must be warning or exceeded")
		}
	}

	if _, err := s.subRepo.GetByID(ctx, b.SubscriptionID); err != nil {
		return err
	}

	return nil
}

// deriveStatus picks the severity of the highest crossed threshold
func deriveStatus(b *budget.Budget, spend float64) string {
	thresholds := make([]budget.Threshold, len(b.Thresholds))
	copy(thresholds, b.Thresholds)
	sort.Slice(thresholds, func(i, j int) bool {
		return thresholds[i].Percentage < thresholds[j].Percentage
	})

	status := budget.StatusOK
	pct := spend / b.Amount * 100
	for _, th := range thresholds {
		if pct >= th.Percentage && budget.StatusRank(th.Severity) > budget.StatusRank(status) {
			status = th.Severity
		}
	}
	return status
}
