package testutil

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/costwatch/costwatch/internal/domain/alert"
	"github.com/costwatch/costwatch/internal/domain/anomaly"
	"github.com/costwatch/costwatch/internal/domain/budget"
	"github.com/costwatch/costwatch/internal/domain/cost"
	"github.com/costwatch/costwatch/internal/domain/forecast"
	"github.com/costwatch/costwatch/internal/domain/notification"
	"github.com/costwatch/costwatch/internal/domain/subscription"
	"github.com/costwatch/costwatch/internal/pkg/errors"
)

// MockSubscriptionRepository is a mock implementation of
// subscription.Repository
type MockSubscriptionRepository struct {
	Subscriptions   map[string]*subscription.Subscription
	Referenced      map[string]bool
	ReferenceChecks int
	CreateError     error
	UpdateError     error
}

func NewMockSubscriptionRepository() *MockSubscriptionRepository {
	return &MockSubscriptionRepository{
		Subscriptions: make(map[string]*subscription.Subscription),
		Referenced:    make(map[string]bool),
	}
}

func (m *MockSubscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	m.Subscriptions[sub.ID] = sub
	return nil
}

func (m *MockSubscriptionRepository) GetByID(ctx context.Context, id string) (*subscription.Subscription, error) {
	sub, ok := m.Subscriptions[id]
	if !ok {
		return nil, errors.NotFound("Subscription")
	}
	return sub, nil
}

func (m *MockSubscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	if _, ok := m.Subscriptions[sub.ID]; !ok {
		return errors.NotFound("Subscription")
	}
	m.Subscriptions[sub.ID] = sub
	return nil
}

func (m *MockSubscriptionRepository) List(ctx context.Context, filter subscription.Filter) ([]*subscription.Subscription, error) {
	var out []*subscription.Subscription
	for _, sub := range m.Subscriptions {
		if filter.ActiveOnly && !sub.IsActive {
			continue
		}
		if filter.SyncStatus != "" && sub.LastSyncStatus != filter.SyncStatus {
			continue
		}
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockSubscriptionRepository) MarkSyncResult(ctx context.Context, id string, at time.Time, status, errMsg string) error {
	sub, ok := m.Subscriptions[id]
	if !ok {
		return errors.NotFound("Subscription")
	}
	sub.LastSyncAt = &at
	sub.LastSyncStatus = status
	sub.LastSyncError = errMsg
	return nil
}

func (m *MockSubscriptionRepository) HasReferences(ctx context.Context, id string) (bool, error) {
	m.ReferenceChecks++
	return m.Referenced[id], nil
}

// MockCostRepository is a mock implementation of cost.Repository
type MockCostRepository struct {
	Records     []cost.Record
	UpsertError error
}

func NewMockCostRepository() *MockCostRepository {
	return &MockCostRepository{}
}

func (m *MockCostRepository) Upsert(ctx context.Context, records []cost.Record) error {
	if m.UpsertError != nil {
		return m.UpsertError
	}
	for _, rec := range records {
		replaced := false
		for i, existing := range m.Records {
			if existing.SubscriptionID == rec.SubscriptionID &&
				existing.Date.Equal(rec.Date) &&
				existing.ServiceName == rec.ServiceName &&
				existing.ResourceGroup == rec.ResourceGroup {
				rec.IsAnomaly = existing.IsAnomaly
				m.Records[i] = rec
				replaced = true
				break
			}
		}
		if !replaced {
			m.Records = append(m.Records, rec)
		}
	}
	return nil
}

func (m *MockCostRepository) Query(ctx context.Context, subscriptionID string, from, to time.Time, filter cost.Filter) ([]cost.Record, error) {
	var out []cost.Record
	for _, rec := range m.Records {
		if rec.SubscriptionID != subscriptionID || rec.Date.Before(from) || rec.Date.After(to) {
			continue
		}
		if filter.ServiceName != "" && rec.ServiceName != filter.ServiceName {
			continue
		}
		if filter.ResourceGroup != "" && rec.ResourceGroup != filter.ResourceGroup {
			continue
		}
		if filter.Currency != "" && rec.Currency != filter.Currency {
			continue
		}
		if filter.AnomaliesOnly && !rec.IsAnomaly {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *MockCostRepository) DailyTotals(ctx context.Context, subscriptionID string, from, to time.Time) ([]cost.DailyTotal, error) {
	byDay := make(map[time.Time]float64)
	for _, rec := range m.Records {
		if rec.SubscriptionID != subscriptionID || rec.Date.Before(from) || rec.Date.After(to) {
			continue
		}
		byDay[rec.Date] += rec.Amount
	}
	var out []cost.DailyTotal
	for day, total := range byDay {
		out = append(out, cost.DailyTotal{Date: day, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *MockCostRepository) SumForPeriod(ctx context.Context, subscriptionID string, from, to time.Time, currency string) (float64, error) {
	var sum float64
	for _, rec := range m.Records {
		if rec.SubscriptionID != subscriptionID || rec.Date.Before(from) || rec.Date.After(to) {
			continue
		}
		if currency != "" && rec.Currency != currency {
			continue
		}
		sum += rec.Amount
	}
	return sum, nil
}

func (m *MockCostRepository) MarkAnomalous(ctx context.Context, subscriptionID string, date time.Time, serviceName string) error {
	for i, rec := range m.Records {
		if rec.SubscriptionID == subscriptionID && rec.Date.Equal(date) && rec.ServiceName == serviceName {
			m.Records[i].IsAnomaly = true
		}
	}
	return nil
}

// MockBudgetRepository is a mock implementation of budget.Repository
type MockBudgetRepository struct {
	Budgets     map[string]*budget.Budget
	CreateError error
}

func NewMockBudgetRepository() *MockBudgetRepository {
	return &MockBudgetRepository{Budgets: make(map[string]*budget.Budget)}
}

func (m *MockBudgetRepository) Create(ctx context.Context, b *budget.Budget) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	m.Budgets[b.ID] = b
	return nil
}

func (m *MockBudgetRepository) GetByID(ctx context.Context, id string) (*budget.Budget, error) {
	b, ok := m.Budgets[id]
	if !ok {
		return nil, errors.NotFound("Budget")
	}
	return b, nil
}

func (m *MockBudgetRepository) Update(ctx context.Context, b *budget.Budget) error {
	if _, ok := m.Budgets[b.ID]; !ok {
		return errors.NotFound("Budget")
	}
	m.Budgets[b.ID] = b
	return nil
}

func (m *MockBudgetRepository) Delete(ctx context.Context, id string) error {
	if _, ok := m.Budgets[id]; !ok {
		return errors.NotFound("Budget")
	}
	delete(m.Budgets, id)
	return nil
}

func (m *MockBudgetRepository) List(ctx context.Context, filter budget.Filter) ([]*budget.Budget, error) {
	var out []*budget.Budget
	for _, b := range m.Budgets {
		if filter.SubscriptionID != "" && b.SubscriptionID != filter.SubscriptionID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockBudgetRepository) UpdateDerived(ctx context.Context, id string, currentSpend float64, status string) error {
	b, ok := m.Budgets[id]
	if !ok {
		return errors.NotFound("Budget")
	}
	b.CurrentSpend = currentSpend
	b.Status = status
	return nil
}

// MockAnomalyRepository is a mock implementation of anomaly.Repository
type MockAnomalyRepository struct {
	Anomalies map[string]*anomaly.Anomaly
}

func NewMockAnomalyRepository() *MockAnomalyRepository {
	return &MockAnomalyRepository{Anomalies: make(map[string]*anomaly.Anomaly)}
}

func (m *MockAnomalyRepository) Upsert(ctx context.Context, a *anomaly.Anomaly) error {
	for _, existing := range m.Anomalies {
		if existing.SubscriptionID == a.SubscriptionID &&
			existing.Date.Equal(a.Date) &&
			existing.ServiceName == a.ServiceName &&
			existing.DetectionMethod == a.DetectionMethod {
			a.ID = existing.ID
			a.Acknowledged = existing.Acknowledged
			a.AcknowledgedBy = existing.AcknowledgedBy
			a.AcknowledgedAt = existing.AcknowledgedAt
			a.Note = existing.Note
			m.Anomalies[a.ID] = a
			return nil
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	m.Anomalies[a.ID] = a
	return nil
}

func (m *MockAnomalyRepository) GetByID(ctx context.Context, id string) (*anomaly.Anomaly, error) {
	a, ok := m.Anomalies[id]
	if !ok {
		return nil, errors.NotFound("Anomaly")
	}
	return a, nil
}

func (m *MockAnomalyRepository) List(ctx context.Context, filter anomaly.Filter) ([]*anomaly.Anomaly, error) {
	out, _, err := m.ListWithPagination(ctx, filter, 0, 0)
	return out, err
}

func (m *MockAnomalyRepository) ListWithPagination(ctx context.Context, filter anomaly.Filter, limit, offset int) ([]*anomaly.Anomaly, int64, error) {
	var out []*anomaly.Anomaly
	for _, a := range m.Anomalies {
		if filter.SubscriptionID != "" && a.SubscriptionID != filter.SubscriptionID {
			continue
		}
		if filter.ServiceName != "" && a.ServiceName != filter.ServiceName {
			continue
		}
		if filter.Method != "" && a.DetectionMethod != filter.Method {
			continue
		}
		if filter.Unacknowledged && a.Acknowledged {
			continue
		}
		if filter.MinConfidence > 0 && a.Confidence < filter.MinConfidence {
			continue
		}
		if filter.From != nil && a.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && a.Date.After(*filter.To) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	total := int64(len(out))
	if limit > 0 {
		if offset > len(out) {
			offset = len(out)
		}
		end := offset + limit
		if end > len(out) {
			end = len(out)
		}
		out = out[offset:end]
	}
	return out, total, nil
}

func (m *MockAnomalyRepository) Acknowledge(ctx context.Context, id, actor, note string) error {
	a, ok := m.Anomalies[id]
	if !ok {
		return errors.NotFound("Anomaly")
	}
	now := time.Now()
	a.Acknowledged = true
	a.AcknowledgedBy = actor
	a.AcknowledgedAt = &now
	a.Note = note
	return nil
}

func (m *MockAnomalyRepository) CountByMethod(ctx context.Context, subscriptionID string) (map[string]int, error) {
	counts := make(map[string]int)
	for _, a := range m.Anomalies {
		if a.SubscriptionID == subscriptionID {
			counts[a.DetectionMethod]++
		}
	}
	return counts, nil
}

// MockForecastRepository is a mock implementation of forecast.Repository
type MockForecastRepository struct {
	Forecasts map[string]*forecast.Forecast
}

func NewMockForecastRepository() *MockForecastRepository {
	return &MockForecastRepository{Forecasts: make(map[string]*forecast.Forecast)}
}

func (m *MockForecastRepository) Upsert(ctx context.Context, f *forecast.Forecast) error {
	for _, existing := range m.Forecasts {
		if existing.SubscriptionID == f.SubscriptionID &&
			existing.ForecastDate.Equal(f.ForecastDate) &&
			existing.ModelType == f.ModelType {
			f.ID = existing.ID
			f.Accuracy = nil
			f.ScoredAt = nil
			m.Forecasts[f.ID] = f
			return nil
		}
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	m.Forecasts[f.ID] = f
	return nil
}

func (m *MockForecastRepository) List(ctx context.Context, filter forecast.Filter) ([]*forecast.Forecast, error) {
	var out []*forecast.Forecast
	for _, f := range m.Forecasts {
		if filter.SubscriptionID != "" && f.SubscriptionID != filter.SubscriptionID {
			continue
		}
		if filter.ModelType != "" && f.ModelType != filter.ModelType {
			continue
		}
		if filter.From != nil && f.ForecastDate.Before(*filter.From) {
			continue
		}
		if filter.To != nil && f.ForecastDate.After(*filter.To) {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ForecastDate.Before(out[j].ForecastDate) })
	return out, nil
}

func (m *MockForecastRepository) ListUnscored(ctx context.Context, subscriptionID string, before time.Time) ([]*forecast.Forecast, error) {
	var out []*forecast.Forecast
	for _, f := range m.Forecasts {
		if f.SubscriptionID != subscriptionID || f.ScoredAt != nil || !f.ForecastDate.Before(before) {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ForecastDate.Before(out[j].ForecastDate) })
	return out, nil
}

func (m *MockForecastRepository) SetAccuracy(ctx context.Context, id string, accuracy float64, scoredAt time.Time) error {
	f, ok := m.Forecasts[id]
	if !ok {
		return errors.NotFound("Forecast")
	}
	f.Accuracy = &accuracy
	f.ScoredAt = &scoredAt
	return nil
}

func (m *MockForecastRepository) RollingAccuracy(ctx context.Context, subscriptionID, modelType string, window int) (float64, int, error) {
	var scored []*forecast.Forecast
	for _, f := range m.Forecasts {
		if f.SubscriptionID == subscriptionID && f.ModelType == modelType && f.Accuracy != nil {
			scored = append(scored, f)
		}
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].ForecastDate.After(scored[j].ForecastDate) })
	if len(scored) > window {
		scored = scored[:window]
	}
	if len(scored) == 0 {
		return 0, 0, nil
	}
	var sum float64
	for _, f := range scored {
		sum += *f.Accuracy
	}
	return sum / float64(len(scored)), len(scored), nil
}

// MockAlertRepository is a mock implementation of alert.Repository
type MockAlertRepository struct {
	Rules  map[string]*alert.Rule
	Alerts map[string]*alert.Alert
}

func NewMockAlertRepository() *MockAlertRepository {
	return &MockAlertRepository{
		Rules:  make(map[string]*alert.Rule),
		Alerts: make(map[string]*alert.Alert),
	}
}

func (m *MockAlertRepository) CreateRule(ctx context.Context, r *alert.Rule) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	m.Rules[r.ID] = r
	return nil
}

func (m *MockAlertRepository) GetRule(ctx context.Context, id string) (*alert.Rule, error) {
	r, ok := m.Rules[id]
	if !ok {
		return nil, errors.NotFound("Alert rule")
	}
	return r, nil
}

func (m *MockAlertRepository) UpdateRule(ctx context.Context, r *alert.Rule) error {
	if _, ok := m.Rules[r.ID]; !ok {
		return errors.NotFound("Alert rule")
	}
	m.Rules[r.ID] = r
	return nil
}

func (m *MockAlertRepository) DeleteRule(ctx context.Context, id string) error {
	if _, ok := m.Rules[id]; !ok {
		return errors.NotFound("Alert rule")
	}
	delete(m.Rules, id)
	return nil
}

func (m *MockAlertRepository) ListRules(ctx context.Context, filter alert.RuleFilter) ([]*alert.Rule, error) {
	var out []*alert.Rule
	for _, r := range m.Rules {
		if filter.SubscriptionID != "" && r.SubscriptionID != "" && r.SubscriptionID != filter.SubscriptionID {
			continue
		}
		if filter.RuleType != "" && r.RuleType != filter.RuleType {
			continue
		}
		if filter.ActiveOnly && !r.IsActive {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockAlertRepository) CreateAlert(ctx context.Context, a *alert.Alert) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	m.Alerts[a.ID] = a
	return nil
}

func (m *MockAlertRepository) GetAlert(ctx context.Context, id string) (*alert.Alert, error) {
	a, ok := m.Alerts[id]
	if !ok {
		return nil, errors.NotFound("Alert")
	}
	return a, nil
}

func (m *MockAlertRepository) UpdateAlert(ctx context.Context, a *alert.Alert) error {
	if _, ok := m.Alerts[a.ID]; !ok {
		return errors.NotFound("Alert")
	}
	m.Alerts[a.ID] = a
	return nil
}

func (m *MockAlertRepository) FindActiveAlert(ctx context.Context, ruleID, subscriptionID string) (*alert.Alert, error) {
	for _, a := range m.Alerts {
		if a.RuleID == ruleID && a.SubscriptionID == subscriptionID && a.Status != alert.StatusResolved {
			return a, nil
		}
	}
	return nil, nil
}

func (m *MockAlertRepository) ListAlerts(ctx context.Context, filter alert.Filter, limit, offset int) ([]*alert.Alert, int64, error) {
	var out []*alert.Alert
	for _, a := range m.Alerts {
		if filter.SubscriptionID != "" && a.SubscriptionID != filter.SubscriptionID {
			continue
		}
		if filter.RuleID != "" && a.RuleID != filter.RuleID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.Severity != "" && a.Severity != filter.Severity {
			continue
		}
		if filter.AlertType != "" && a.AlertType != filter.AlertType {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	total := int64(len(out))
	if limit > 0 {
		if offset > len(out) {
			offset = len(out)
		}
		end := offset + limit
		if end > len(out) {
			end = len(out)
		}
		out = out[offset:end]
	}
	return out, total, nil
}

func (m *MockAlertRepository) CountAlertsByStatus(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, a := range m.Alerts {
		counts[a.Status]++
	}
	return counts, nil
}

// MockNotificationRepository is a mock implementation of
// notification.Repository
type MockNotificationRepository struct {
	Endpoints  map[string]*notification.Endpoint
	Deliveries map[string]*notification.Delivery
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{
		Endpoints:  make(map[string]*notification.Endpoint),
		Deliveries: make(map[string]*notification.Delivery),
	}
}

func (m *MockNotificationRepository) CreateEndpoint(ctx context.Context, e *notification.Endpoint) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	m.Endpoints[e.ID] = e
	return nil
}

func (m *MockNotificationRepository) GetEndpoint(ctx context.Context, id string) (*notification.Endpoint, error) {
	e, ok := m.Endpoints[id]
	if !ok {
		return nil, errors.NotFound("Webhook endpoint")
	}
	return e, nil
}

func (m *MockNotificationRepository) UpdateEndpoint(ctx context.Context, e *notification.Endpoint) error {
	if _, ok := m.Endpoints[e.ID]; !ok {
		return errors.NotFound("Webhook endpoint")
	}
	m.Endpoints[e.ID] = e
	return nil
}

func (m *MockNotificationRepository) DeleteEndpoint(ctx context.Context, id string) error {
	if _, ok := m.Endpoints[id]; !ok {
		return errors.NotFound("Webhook endpoint")
	}
	delete(m.Endpoints, id)
	return nil
}

func (m *MockNotificationRepository) ListEndpoints(ctx context.Context, activeOnly bool) ([]*notification.Endpoint, error) {
	var out []*notification.Endpoint
	for _, e := range m.Endpoints {
		if activeOnly && !e.IsActive {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockNotificationRepository) CreateDelivery(ctx context.Context, d *notification.Delivery) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	m.Deliveries[d.ID] = d
	return nil
}

func (m *MockNotificationRepository) UpdateDelivery(ctx context.Context, d *notification.Delivery) error {
	if _, ok := m.Deliveries[d.ID]; !ok {
		return errors.NotFound("Delivery")
	}
	m.Deliveries[d.ID] = d
	return nil
}

func (m *MockNotificationRepository) ListDueDeliveries(ctx context.Context, now time.Time, limit int) ([]*notification.Delivery, error) {
	var out []*notification.Delivery
	for _, d := range m.Deliveries {
		if notification.IsTerminal(d.Status) || d.NextAttemptAt.After(now) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextAttemptAt.Before(out[j].NextAttemptAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockNotificationRepository) ListDeliveries(ctx context.Context, filter notification.DeliveryFilter, limit, offset int) ([]*notification.Delivery, int64, error) {
	var out []*notification.Delivery
	for _, d := range m.Deliveries {
		if filter.EndpointID != "" && d.EndpointID != filter.EndpointID {
			continue
		}
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	total := int64(len(out))
	if limit > 0 {
		if offset > len(out) {
			offset = len(out)
		}
		end := offset + limit
		if end > len(out) {
			end = len(out)
		}
		out = out[offset:end]
	}
	return out, total, nil
}
