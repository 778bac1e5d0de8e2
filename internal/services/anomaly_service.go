package services

import (
	"context"
	"sort"
	"time"

	"github.com/costwatch/costwatch/internal/detector"
	"github.com/costwatch/costwatch/internal/domain/anomaly"
	"github.com/costwatch/costwatch/internal/domain/cost"
	"github.com/costwatch/costwatch/internal/domain/subscription"
	"github.com/costwatch/costwatch/internal/pkg/errors"
	"github.com/costwatch/costwatch/internal/pkg/logger"
	"github.com/costwatch/costwatch/internal/pkg/metrics"
)

// AnomalyService implements anomaly.Service
type AnomalyService struct {
	repo     anomaly.Repository
	costRepo cost.Repository
	subRepo  subscription.Repository
	registry *detector.Registry
	logger   *logger.Logger
}

// NewAnomalyService creates a new anomaly service
func NewAnomalyService(repo anomaly.Repository, costRepo cost.Repository, subRepo subscription.Repository, registry *detector.Registry, log *logger.Logger) anomaly.Service {
	return &AnomalyService{
		repo:     repo,
		costRepo: costRepo,
		subRepo:  subRepo,
		registry: registry,
		logger:   log,
	}
}

// Detect scores each per-service daily series of the subscription with
// the requested methods. Daily amounts are summed across resource
// groups before scoring. Series shorter than a method's minimum are
// skipped. Every flagged day is upserted per (date, service, method)
// and the underlying cost records are marked, so re-running a window is
// idempotent.
func (s *AnomalyService) Detect(ctx context.Context, subscriptionID string, from, to time.Time, methods []string) ([]*anomaly.Anomaly, error) {
	if _, err := s.subRepo.GetByID(ctx, subscriptionID); err != nil {
		return nil, err
	}

	if len(methods) == 0 {
		methods = s.registry.Names()
	}
	for _, name := range methods {
		if _, ok := s.registry.Get(name); !ok {
			return nil, errors.BadRequest("Unknown detection method: " + name)
		}
	}

	records, err := s.costRepo.Query(ctx, subscriptionID, from, to, cost.Filter{})
	if err != nil {
		return nil, err
	}

	series := buildServiceSeries(records)

	var found []*anomaly.Anomaly
	for _, serviceName := range sortedKeys(series) {
		points := series[serviceName]
		for _, name := range methods {
			method, _ := s.registry.Get(name)
			if len(points) < method.MinPoints() {
				continue
			}

			for _, flag := range method.Detect(points) {
				p := points[flag.Index]
				a := &anomaly.Anomaly{
					SubscriptionID:  subscriptionID,
					Date:            p.Date,
					ServiceName:     serviceName,
					ObservedAmount:  p.Amount,
					ExpectedAmount:  flag.Expected,
					Deviation:       flag.Deviation,
					DeviationPct:    deviationPct(flag.Deviation, flag.Expected),
					DetectionMethod: name,
					Confidence:      flag.Confidence,
					DetectedAt:      time.Now(),
				}

				if err := s.repo.Upsert(ctx, a); err != nil {
					return nil, err
				}
				if err := s.costRepo.MarkAnomalous(ctx, subscriptionID, p.Date, serviceName); err != nil {
					return nil, err
				}

				metrics.RecordAnomalyDetected(name)
				found = append(found, a)
			}
		}
	}

	if len(found) > 0 {
		s.logger.WithFields(map[string]interface{}{
			"subscription_id": subscriptionID,
			"anomalies":       len(found),
		}).Info("Anomalies detected")
	}

	return found, nil
}

// GetByID retrieves an anomaly by ID
func (s *AnomalyService) GetByID(ctx context.Context, id string) (*anomaly.Anomaly, error) {
	return s.repo.GetByID(ctx, id)
}

// List retrieves anomalies with filters and pagination
func (s *AnomalyService) List(ctx context.Context, filter anomaly.Filter, limit, offset int) ([]*anomaly.Anomaly, int64, error) {
	return s.repo.ListWithPagination(ctx, filter, limit, offset)
}

// Acknowledge marks an anomaly as reviewed
func (s *AnomalyService) Acknowledge(ctx context.Context, id, actor, note string) error {
	if actor == "" {
		return errors.BadRequest("Acknowledging actor is required")
	}

	if err := s.repo.Acknowledge(ctx, id, actor, note); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"anomaly_id": id,
		"actor":      actor,
	}).Info("Anomaly acknowledged")

	return nil
}

// Summary counts anomalies per detection method
func (s *AnomalyService) Summary(ctx context.Context, subscriptionID string) (map[string]int, error) {
	return s.repo.CountByMethod(ctx, subscriptionID)
}

// buildServiceSeries groups cost records into one date-ordered daily
// series per service, summing across resource groups
func buildServiceSeries(records []cost.Record) map[string][]detector.Point {
	byService := make(map[string]map[time.Time]float64)
	for _, rec := range records {
		day := rec.Date.Truncate(24 * time.Hour)
		if byService[rec.ServiceName] == nil {
			byService[rec.ServiceName] = make(map[time.Time]float64)
		}
		byService[rec.ServiceName][day] += rec.Amount
	}

	series := make(map[string][]detector.Point, len(byService))
	for name, days := range byService {
		points := make([]detector.Point, 0, len(days))
		for day, amount := range days {
			points = append(points, detector.Point{Date: day, Amount: amount})
		}
		sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
		series[name] = points
	}
	return series
}

func sortedKeys(m map[string][]detector.Point) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func deviationPct(deviation, expected float64) float64 {
	if expected == 0 {
		return 0
	}
	return deviation / expected * 100
}
