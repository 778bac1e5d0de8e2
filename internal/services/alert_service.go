package services

import (
	"context"
	"fmt"
	"time"

	"github.com/costwatch/costwatch/internal/domain/alert"
	"github.com/costwatch/costwatch/internal/domain/anomaly"
	"github.com/costwatch/costwatch/internal/domain/budget"
	"github.com/costwatch/costwatch/internal/domain/forecast"
	"github.com/costwatch/costwatch/internal/pkg/errors"
	"github.com/costwatch/costwatch/internal/pkg/logger"
	"github.com/costwatch/costwatch/internal/pkg/metrics"
)

// AlertService implements alert.Service, the rule evaluation engine
type AlertService struct {
	repo         alert.Repository
	budgetRepo   budget.Repository
	anomalyRepo  anomaly.Repository
	forecastRepo forecast.Repository
	budgetSvc    budget.Service
	logger       *logger.Logger
	now          func() time.Time
}

// NewAlertService creates a new alert service
func NewAlertService(repo alert.Repository, budgetRepo budget.Repository, anomalyRepo anomaly.Repository, forecastRepo forecast.Repository, budgetSvc budget.Service, log *logger.Logger) alert.Service {
	return &AlertService{
		repo:         repo,
		budgetRepo:   budgetRepo,
		anomalyRepo:  anomalyRepo,
		forecastRepo: forecastRepo,
		budgetSvc:    budgetSvc,
		logger:       log,
		now:          time.Now,
	}
}

// CreateRule validates and persists a rule
func (s *AlertService) CreateRule(ctx context.Context, r *alert.Rule) error {
	if err := s.validateRule(r); err != nil {
		return err
	}

	if err := s.repo.CreateRule(ctx, r); err != nil {
		s.logger.ErrorWithErr(err, "Failed to create alert rule")
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"rule_id":   r.ID,
		"rule_type": r.RuleType,
		"severity":  r.Severity,
	}).Info("Alert rule created")

	return nil
}

// GetRule retrieves a rule by ID
func (s *AlertService) GetRule(ctx context.Context, id string) (*alert.Rule, error) {
	return s.repo.GetRule(ctx, id)
}

// UpdateRule validates and persists rule changes. The rule type is
// immutable once created.
func (s *AlertService) UpdateRule(ctx context.Context, r *alert.Rule) error {
	existing, err := s.repo.GetRule(ctx, r.ID)
	if err != nil {
		return err
	}
	if r.RuleType != existing.RuleType {
		return errors.BadRequest("Rule type cannot be changed")
	}
	r.SubscriptionID = existing.SubscriptionID

	if err := s.validateRule(r); err != nil {
		return err
	}

	return s.repo.UpdateRule(ctx, r)
}

// DeleteRule deletes a rule. Alerts raised by the rule stay in the
// history.
func (s *AlertService) DeleteRule(ctx context.Context, id string) error {
	return s.repo.DeleteRule(ctx, id)
}

// ListRules retrieves rules with filters
func (s *AlertService) ListRules(ctx context.Context, filter alert.RuleFilter) ([]*alert.Rule, error) {
	return s.repo.ListRules(ctx, filter)
}

// Evaluate runs every active rule applying to the subscription. Breaches
// with no live alert create one; breaches with a live alert refresh it;
// cleared conditions auto-resolve the live alert. Only alerts created in
// this pass are returned.
func (s *AlertService) Evaluate(ctx context.Context, subscriptionID string) ([]*alert.Alert, error) {
	rules, err := s.repo.ListRules(ctx, alert.RuleFilter{SubscriptionID: subscriptionID, ActiveOnly: true})
	if err != nil {
		return nil, err
	}

	now := s.now()
	var newlyActive []*alert.Alert

	for _, rule := range rules {
		existing, err := s.repo.FindActiveAlert(ctx, rule.ID, subscriptionID)
		if err != nil {
			return nil, err
		}

		// within the rule's re-evaluation cadence, leave the live alert
		// untouched
		if existing != nil && rule.Cadence > 0 && now.Sub(existing.LastEvaluated) < rule.Cadence {
			continue
		}

		triggered, value, message, err := s.evaluateRule(ctx, rule, subscriptionID)
		if err != nil {
			s.logger.WithError(err).WithFields(map[string]interface{}{
				"rule_id":         rule.ID,
				"subscription_id": subscriptionID,
			}).Error("Rule evaluation failed")
			continue
		}

		switch {
		case triggered && existing == nil:
			a := &alert.Alert{
				RuleID:         rule.ID,
				SubscriptionID: subscriptionID,
				Severity:       rule.Severity,
				AlertType:      rule.RuleType,
				TriggeredValue: value,
				Message:        message,
				Status:         alert.StatusActive,
				TriggeredAt:    now,
				LastEvaluated:  now,
			}
			if err := s.repo.CreateAlert(ctx, a); err != nil {
				return nil, err
			}
			metrics.RecordAlertTriggered(rule.RuleType, rule.Severity)
			newlyActive = append(newlyActive, a)

			s.logger.WithFields(map[string]interface{}{
				"alert_id": a.ID,
				"rule_id":  rule.ID,
				"severity": a.Severity,
			}).Info("Alert triggered")

		case triggered && existing != nil:
			existing.TriggeredValue = value
			existing.Message = message
			existing.Severity = rule.Severity
			existing.LastEvaluated = now
			if err := s.repo.UpdateAlert(ctx, existing); err != nil {
				return nil, err
			}

		case !triggered && existing != nil:
			if err := s.autoResolve(ctx, existing, now); err != nil {
				return nil, err
			}
		}
	}

	if err := s.refreshAlertGauges(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to refresh alert gauges")
	}

	return newlyActive, nil
}

// GetAlert retrieves an alert by ID
func (s *AlertService) GetAlert(ctx context.Context, id string) (*alert.Alert, error) {
	return s.repo.GetAlert(ctx, id)
}

// ListAlerts retrieves alerts with filters and pagination
func (s *AlertService) ListAlerts(ctx context.Context, filter alert.Filter, limit, offset int) ([]*alert.Alert, int64, error) {
	return s.repo.ListAlerts(ctx, filter, limit, offset)
}

// Acknowledge moves an active alert to acknowledged
func (s *AlertService) Acknowledge(ctx context.Context, id, actor string) error {
	if actor == "" {
		return errors.BadRequest("Acknowledging actor is required")
	}

	a, err := s.repo.GetAlert(ctx, id)
	if err != nil {
		return err
	}
	if !alert.CanTransition(a.Status, alert.StatusAcknowledged) {
		return errors.Conflict(fmt.Sprintf("Alert cannot move from %s to acknowledged", a.Status))
	}

	now := s.now()
	a.Status = alert.StatusAcknowledged
	a.AcknowledgedAt = &now
	a.AcknowledgedBy = actor
	if err := s.repo.UpdateAlert(ctx, a); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"alert_id": id,
		"actor":    actor,
	}).Info("Alert acknowledged")

	return nil
}

// Resolve moves an alert to resolved
func (s *AlertService) Resolve(ctx context.Context, id, actor string) error {
	if actor == "" {
		return errors.BadRequest("Resolving actor is required")
	}

	a, err := s.repo.GetAlert(ctx, id)
	if err != nil {
		return err
	}
	if !alert.CanTransition(a.Status, alert.StatusResolved) {
		return errors.Conflict(fmt.Sprintf("Alert cannot move from %s to resolved", a.Status))
	}

	now := s.now()
	a.Status = alert.StatusResolved
	a.Resolution = alert.ResolutionUser
	a.ResolvedAt = &now
	a.ResolvedBy = actor
	if err := s.repo.UpdateAlert(ctx, a); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"alert_id": id,
		"actor":    actor,
	}).Info("Alert resolved")

	return nil
}

// RaiseMeta creates a rule-less system alert
func (s *AlertService) RaiseMeta(ctx context.Context, severity, message string, triggeredValue float64) (*alert.Alert, error) {
	now := s.now()
	a := &alert.Alert{
		Severity:       severity,
		AlertType:      alert.TypeDeliveryFailure,
		TriggeredValue: triggeredValue,
		Message:        message,
		Status:         alert.StatusActive,
		TriggeredAt:    now,
		LastEvaluated:  now,
	}

	if err := s.repo.CreateAlert(ctx, a); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"alert_id": a.ID,
		"severity": severity,
	}).Warn("System alert raised")

	return a, nil
}

// Summary counts alerts by status
func (s *AlertService) Summary(ctx context.Context) (map[string]int, error) {
	return s.repo.CountAlertsByStatus(ctx)
}

func (s *AlertService) validateRule(r *alert.Rule) error {
	if r.Name == "" {
		return errors.BadRequest("Rule name is required")
	}
	switch r.Severity {
	case alert.SeverityLow, alert.SeverityMedium, alert.SeverityHigh, alert.SeverityCritical:
	default:
		return errors.BadRequest("Rule severity must be low, medium, high or critical")
	}
	if r.Cadence < 0 {
		return errors.BadRequest("Rule cadence must not be negative")
	}
	if err := r.ValidateParams(); err != nil {
		return errors.BadRequest(err.Error())
	}
	return nil
}

func (s *AlertService) evaluateRule(ctx context.Context, rule *alert.Rule, subscriptionID string) (bool, float64, string, error) {
	switch rule.RuleType {
	case alert.RuleBudgetThreshold:
		return s.evaluateBudgetThreshold(ctx, rule.Params.BudgetThreshold, subscriptionID)
	case alert.RuleAnomaly:
		return s.evaluateAnomaly(ctx, rule.Params.Anomaly, subscriptionID)
	case alert.RuleForecastOverrun:
		return s.evaluateForecastOverrun(ctx, rule.Params.ForecastOverrun, subscriptionID)
	default:
		return false, 0, "", fmt.Errorf("unknown rule type %q", rule.RuleType)
	}
}

func (s *AlertService) evaluateBudgetThreshold(ctx context.Context, p *alert.BudgetThresholdParams, subscriptionID string) (bool, float64, string, error) {
	budgets, err := s.ruleBudgets(ctx, p.BudgetID, subscriptionID)
	if err != nil {
		return false, 0, "", err
	}

	minRank := budget.StatusRank(p.MinStatus)
	var worst *budget.Budget
	for _, b := range budgets {
		if budget.StatusRank(b.Status) < minRank {
			continue
		}
		if worst == nil || budget.StatusRank(b.Status) > budget.StatusRank(worst.Status) {
			worst = b
		}
	}
	if worst == nil {
		return false, 0, "", nil
	}

	pct := 0.0
	if worst.Amount > 0 {
		pct = worst.CurrentSpend / worst.Amount * 100
	}
	message := fmt.Sprintf("Budget %q is %s at %.1f%% of %.2f %s",
		worst.Name, worst.Status, pct, worst.Amount, worst.Currency)
	return true, pct, message, nil
}

func (s *AlertService) evaluateAnomaly(ctx context.Context, p *alert.AnomalyParams, subscriptionID string) (bool, float64, string, error) {
	from := s.now().AddDate(0, 0, -p.LookbackDays)
	anomalies, err := s.anomalyRepo.List(ctx, anomaly.Filter{
		SubscriptionID: subscriptionID,
		Unacknowledged: true,
		MinConfidence:  p.MinConfidence,
		From:           &from,
	})
	if err != nil {
		return false, 0, "", err
	}
	if len(anomalies) == 0 {
		return false, 0, "", nil
	}

	var top *anomaly.Anomaly
	for _, a := range anomalies {
		if top == nil || a.Confidence > top.Confidence {
			top = a
		}
	}
	message := fmt.Sprintf("%d unacknowledged cost anomalies in the last %d days, highest confidence %.2f on %s",
		len(anomalies), p.LookbackDays, top.Confidence, top.ServiceName)
	return true, top.Confidence, message, nil
}

// evaluateForecastOverrun projects each covered budget to its period
// end. Without a configured model type the budget's own run-rate
// estimate decides; with one, stored engine forecasts for the remaining
// days decide, falling back to the run-rate when none cover the window.
func (s *AlertService) evaluateForecastOverrun(ctx context.Context, p *alert.ForecastOverrunParams, subscriptionID string) (bool, float64, string, error) {
	budgets, err := s.ruleBudgets(ctx, p.BudgetID, subscriptionID)
	if err != nil {
		return false, 0, "", err
	}

	now := s.now()
	for _, b := range budgets {
		if p.ModelType != "" {
			covered, projected, err := s.engineProjection(ctx, b, p.ModelType, subscriptionID, now)
			if err != nil {
				return false, 0, "", err
			}
			if covered {
				if projected > b.Amount {
					message := fmt.Sprintf("Budget %q projected to end its period at %.2f %s against a limit of %.2f (%s model)",
						b.Name, projected, b.Currency, b.Amount, p.ModelType)
					return true, projected, message, nil
				}
				continue
			}
		}

		fc, err := s.budgetSvc.ForecastPeriodEnd(ctx, b.ID)
		if err != nil {
			continue
		}
		if fc.Classification == budget.WillExceed {
			message := fmt.Sprintf("Budget %q projected to end its period at %.2f %s against a limit of %.2f (run rate %.2f per day)",
				b.Name, fc.ProjectedSpend, b.Currency, b.Amount, fc.SpendPerDayRate)
			return true, fc.ProjectedSpend, message, nil
		}
	}

	return false, 0, "", nil
}

// engineProjection sums stored model forecasts over the budget period's
// remaining days on top of the current spend. covered is false when the
// period is not active or no forecast rows exist for the window.
func (s *AlertService) engineProjection(ctx context.Context, b *budget.Budget, modelType, subscriptionID string, now time.Time) (bool, float64, error) {
	_, end, err := b.PeriodBounds(now)
	if err != nil {
		return false, 0, nil
	}

	from := now.AddDate(0, 0, 1)
	to := end.AddDate(0, 0, -1)
	if to.Before(from) {
		return false, 0, nil
	}

	forecasts, err := s.forecastRepo.List(ctx, forecast.Filter{
		SubscriptionID: subscriptionID,
		ModelType:      modelType,
		From:           &from,
		To:             &to,
	})
	if err != nil {
		return false, 0, err
	}
	if len(forecasts) == 0 {
		return false, 0, nil
	}

	projected := b.CurrentSpend
	for _, f := range forecasts {
		projected += f.Predicted
	}
	return true, projected, nil
}

func (s *AlertService) ruleBudgets(ctx context.Context, budgetID, subscriptionID string) ([]*budget.Budget, error) {
	if budgetID != "" {
		b, err := s.budgetRepo.GetByID(ctx, budgetID)
		if err != nil {
			if errors.IsNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
		return []*budget.Budget{b}, nil
	}
	return s.budgetRepo.List(ctx, budget.Filter{SubscriptionID: subscriptionID})
}

func (s *AlertService) autoResolve(ctx context.Context, a *alert.Alert, now time.Time) error {
	a.Status = alert.StatusResolved
	a.Resolution = alert.ResolutionAuto
	a.ResolvedAt = &now
	a.ResolvedBy = alert.SystemActor
	a.LastEvaluated = now
	if err := s.repo.UpdateAlert(ctx, a); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"alert_id": a.ID,
	}).Info("Alert auto-resolved")

	return nil
}

func (s *AlertService) refreshAlertGauges(ctx context.Context) error {
	active, _, err := s.repo.ListAlerts(ctx, alert.Filter{Status: alert.StatusActive}, 0, 0)
	if err != nil {
		return err
	}

	counts := make(map[string]int)
	for _, a := range active {
		counts[a.Severity]++
	}
	for _, severity := range []string{alert.SeverityLow, alert.SeverityMedium, alert.SeverityHigh, alert.SeverityCritical} {
		metrics.SetActiveAlerts(severity, float64(counts[severity]))
	}

	return nil
}
