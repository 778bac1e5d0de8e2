// Package worker runs the periodic sync cycle: ingest, budget
// recompute, anomaly detection, forecasting, rule evaluation and
// webhook dispatch, one isolated cycle per active subscription.
package worker

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/costwatch/costwatch/internal/config"
	"github.com/costwatch/costwatch/internal/domain/alert"
	"github.com/costwatch/costwatch/internal/domain/anomaly"
	"github.com/costwatch/costwatch/internal/domain/budget"
	"github.com/costwatch/costwatch/internal/domain/cost"
	"github.com/costwatch/costwatch/internal/domain/forecast"
	"github.com/costwatch/costwatch/internal/domain/notification"
	"github.com/costwatch/costwatch/internal/domain/subscription"
	"github.com/costwatch/costwatch/internal/ingest"
	"github.com/costwatch/costwatch/internal/pkg/errors"
	"github.com/costwatch/costwatch/internal/pkg/logger"
	"github.com/costwatch/costwatch/internal/pkg/metrics"
)

// Lease guards a subscription's sync cycle against concurrent workers
type Lease interface {
	TryAcquire(ctx context.Context, subscriptionID, holder string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, subscriptionID, holder string) error
}

// SyncRunner drives the sync cycle on a cron schedule. Each active
// subscription runs in its own goroutine behind a lease, so one slow or
// failing subscription never blocks the others.
type SyncRunner struct {
	subRepo     subscription.Repository
	adapter     ingest.Adapter
	costSvc     cost.Service
	budgetSvc   budget.Service
	anomalySvc  anomaly.Service
	forecastSvc forecast.Service
	alertSvc    alert.Service
	notifSvc    notification.Service
	lease       Lease

	scheduler config.SchedulerConfig
	detection config.DetectionConfig
	forecast  config.ForecastConfig

	holder string
	cron   *cron.Cron
	logger *logger.Logger
	now    func() time.Time
}

// NewSyncRunner creates a sync runner. The holder identity survives for
// the runner's lifetime so lease renewal works across ticks.
func NewSyncRunner(
	subRepo subscription.Repository,
	adapter ingest.Adapter,
	costSvc cost.Service,
	budgetSvc budget.Service,
	anomalySvc anomaly.Service,
	forecastSvc forecast.Service,
	alertSvc alert.Service,
	notifSvc notification.Service,
	lease Lease,
	scheduler config.SchedulerConfig,
	detection config.DetectionConfig,
	forecastCfg config.ForecastConfig,
	log *logger.Logger,
) *SyncRunner {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	return &SyncRunner{
		subRepo:     subRepo,
		adapter:     adapter,
		costSvc:     costSvc,
		budgetSvc:   budgetSvc,
		anomalySvc:  anomalySvc,
		forecastSvc: forecastSvc,
		alertSvc:    alertSvc,
		notifSvc:    notifSvc,
		lease:       lease,
		scheduler:   scheduler,
		detection:   detection,
		forecast:    forecastCfg,
		holder:      fmt.Sprintf("%s:%d:%s", hostname, os.Getpid(), uuid.NewString()[:8]),
		logger:      log,
		now:         time.Now,
	}
}

// Start registers the cron schedule and begins ticking
func (r *SyncRunner) Start() error {
	if !r.scheduler.Enabled {
		r.logger.Info("Sync scheduler disabled")
		return nil
	}

	r.cron = cron.New()
	if _, err := r.cron.AddFunc(r.scheduler.CronSpec, func() {
		r.RunAll(context.Background())
	}); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", r.scheduler.CronSpec, err)
	}

	r.cron.Start()
	r.logger.WithFields(map[string]interface{}{
		"cron_spec": r.scheduler.CronSpec,
		"holder":    r.holder,
	}).Info("Sync scheduler started")

	return nil
}

// Stop halts the cron schedule and waits for running jobs
func (r *SyncRunner) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}

// RunAll runs one sync cycle per active subscription, concurrently, and
// then processes the delivery queue once
func (r *SyncRunner) RunAll(ctx context.Context) {
	subs, err := r.subRepo.List(ctx, subscription.Filter{ActiveOnly: true})
	if err != nil {
		r.logger.ErrorWithErr(err, "Failed to list subscriptions for sync")
		return
	}

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			r.RunCycle(ctx, id)
		}(sub.ID)
	}
	wg.Wait()

	if sent, err := r.notifSvc.ProcessPending(ctx); err != nil {
		r.logger.ErrorWithErr(err, "Failed to process pending deliveries")
	} else if sent > 0 {
		r.logger.WithFields(map[string]interface{}{"attempted": sent}).Info("Delivery queue processed")
	}
}

// RunCycle runs the full sync pipeline for one subscription. Manual
// sync-now enters here too, so it contends on the same lease as the
// scheduler. Skipped cycles (lease held elsewhere) are not failures.
func (r *SyncRunner) RunCycle(ctx context.Context, subscriptionID string) {
	acquired, err := r.lease.TryAcquire(ctx, subscriptionID, r.holder, r.scheduler.LeaseTTL)
	if err != nil {
		r.logger.ErrorWithErr(err, "Failed to acquire sync lease")
		return
	}
	if !acquired {
		r.logger.WithFields(map[string]interface{}{
			"subscription_id": subscriptionID,
		}).Debug("Sync lease held elsewhere, skipping cycle")
		return
	}
	defer func() {
		if err := r.lease.Release(context.Background(), subscriptionID, r.holder); err != nil {
			r.logger.ErrorWithErr(err, "Failed to release sync lease")
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, r.scheduler.CycleDeadline)
	defer cancel()

	start := r.now()
	if err := r.cycle(ctx, subscriptionID); err != nil {
		metrics.RecordSyncCycle("failed", time.Since(start))
		r.logger.WithError(err).WithFields(map[string]interface{}{
			"subscription_id": subscriptionID,
		}).Error("Sync cycle failed")

		if markErr := r.subRepo.MarkSyncResult(ctx, subscriptionID, r.now(), subscription.SyncStatusFailed, err.Error()); markErr != nil {
			r.logger.ErrorWithErr(markErr, "Failed to record sync failure")
		}
		return
	}

	metrics.RecordSyncCycle("success", time.Since(start))
	r.logger.WithFields(map[string]interface{}{
		"subscription_id": subscriptionID,
		"duration":        time.Since(start).String(),
	}).Info("Sync cycle completed")
}

// cycle runs the pipeline stages in order, checking the deadline at
// each stage boundary
func (r *SyncRunner) cycle(ctx context.Context, subscriptionID string) error {
	sub, err := r.subRepo.GetByID(ctx, subscriptionID)
	if err != nil {
		return err
	}

	now := r.now()
	from := now.AddDate(0, 0, -r.detection.WindowDays)

	stages := []struct {
		name string
		run  func(context.Context) error
	}{
		{"ingest", func(ctx context.Context) error {
			records, err := r.adapter.FetchCosts(ctx, sub, from, now)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				// a quiet window is still a successful sync
				return r.subRepo.MarkSyncResult(ctx, subscriptionID, now, subscription.SyncStatusSuccess, "")
			}
			return r.costSvc.Ingest(ctx, subscriptionID, records)
		}},
		{"budget_recompute", func(ctx context.Context) error {
			return r.budgetSvc.RecomputeForSubscription(ctx, subscriptionID)
		}},
		{"anomaly_detect", func(ctx context.Context) error {
			_, err := r.anomalySvc.Detect(ctx, subscriptionID, from, now, nil)
			return err
		}},
		{"forecast", func(ctx context.Context) error {
			if err := r.forecastSvc.UpdateAccuracy(ctx, subscriptionID, now); err != nil {
				return err
			}
			_, err := r.forecastSvc.Generate(ctx, subscriptionID, r.forecast.HorizonDays, "")
			if errors.IsInsufficientHistory(err) {
				// young subscriptions forecast once they have history
				return nil
			}
			return err
		}},
		{"alert_evaluate", func(ctx context.Context) error {
			triggered, err := r.alertSvc.Evaluate(ctx, subscriptionID)
			if err != nil {
				return err
			}
			for _, a := range triggered {
				event := notification.Event{
					EventType:      notification.EventAlertActive,
					SubscriptionID: a.SubscriptionID,
					Severity:       a.Severity,
					TriggeredValue: a.TriggeredValue,
					Timestamp:      r.now(),
				}
				if err := r.notifSvc.Dispatch(ctx, event); err != nil {
					return err
				}
			}
			return nil
		}},
	}

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cycle deadline before %s stage: %w", stage.name, err)
		}
		if err := stage.run(ctx); err != nil {
			return fmt.Errorf("%s stage: %w", stage.name, err)
		}
	}

	return nil
}
