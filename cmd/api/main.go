package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/costwatch/costwatch/internal/api/handlers"
	"github.com/costwatch/costwatch/internal/api/router"
	"github.com/costwatch/costwatch/internal/config"
	"github.com/costwatch/costwatch/internal/detector"
	"github.com/costwatch/costwatch/internal/domain/notification"
	"github.com/costwatch/costwatch/internal/forecaster"
	"github.com/costwatch/costwatch/internal/ingest"
	"github.com/costwatch/costwatch/internal/pkg/logger"
	"github.com/costwatch/costwatch/internal/pkg/validator"
	"github.com/costwatch/costwatch/internal/repository/sqlite"
	"github.com/costwatch/costwatch/internal/services"
	"github.com/costwatch/costwatch/internal/worker"
	"github.com/costwatch/costwatch/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	if err := run(cfg, log); err != nil {
		log.WithError(err).Error("Server exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	db, err := sqlite.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := sqlite.RunMigrations(db, migrations.GetFS()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("Database migrations applied")

	subRepo := sqlite.NewSubscriptionRepository(db)
	costRepo := sqlite.NewCostRepository(db)
	budgetRepo := sqlite.NewBudgetRepository(db)
	anomalyRepo := sqlite.NewAnomalyRepository(db)
	forecastRepo := sqlite.NewForecastRepository(db)
	alertRepo := sqlite.NewAlertRepository(db)
	notifRepo := sqlite.NewNotificationRepository(db)
	leaseRepo := sqlite.NewLeaseRepository(db)

	registry := detector.DefaultRegistry(
		cfg.Detection.ZScoreCutoff,
		cfg.Detection.MovingAvgPercent,
		cfg.Detection.MinDataPoints,
	)
	models := []forecaster.Model{
		forecaster.NewLinear(cfg.Forecast.MinHistoryDays),
		forecaster.NewSeasonal(2 * cfg.Forecast.MinHistoryDays),
	}

	subSvc := services.NewSubscriptionService(subRepo, log)
	costSvc := services.NewCostService(costRepo, subRepo, log)
	budgetSvc := services.NewBudgetService(budgetRepo, costRepo, subRepo, log)
	anomalySvc := services.NewAnomalyService(anomalyRepo, costRepo, subRepo, registry, log)
	forecastSvc := services.NewForecastService(forecastRepo, costRepo, subRepo, models, cfg.Forecast.MinHistoryDays, cfg.Forecast.AccuracyWindow, log)
	alertSvc := services.NewAlertService(alertRepo, budgetRepo, anomalyRepo, forecastRepo, budgetSvc, log)
	notifSvc := services.NewDispatcherService(notifRepo, alertSvc, cfg.Dispatcher, log)

	runner := worker.NewSyncRunner(
		subRepo,
		ingest.NewStatic(),
		costSvc,
		budgetSvc,
		anomalySvc,
		forecastSvc,
		alertSvc,
		notifSvc,
		leaseRepo,
		cfg.Scheduler,
		cfg.Detection,
		cfg.Forecast,
		log,
	)
	if cfg.Scheduler.Enabled {
		if err := runner.Start(); err != nil {
			return fmt.Errorf("failed to start sync runner: %w", err)
		}
		defer runner.Stop()
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go deliveryLoop(rootCtx, notifSvc, cfg.Dispatcher.ProcessInterval, log)

	val := validator.New()
	h := &router.Handlers{
		Health:       handlers.NewHealthHandler(db, log),
		Subscription: handlers.NewSubscriptionHandler(subSvc, runner, log, val),
		Cost:         handlers.NewCostHandler(costSvc, log, val),
		Budget:       handlers.NewBudgetHandler(budgetSvc, log, val),
		Anomaly:      handlers.NewAnomalyHandler(anomalySvc, cfg.Detection.WindowDays, log, val),
		Forecast:     handlers.NewForecastHandler(forecastSvc, cfg.Forecast.HorizonDays, log, val),
		Alert:        handlers.NewAlertHandler(alertSvc, log, val),
		Notification: handlers.NewNotificationHandler(notifSvc, log, val),
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.New(cfg, log, h),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(map[string]interface{}{
			"addr":        srv.Addr,
			"environment": cfg.Server.Environment,
		}).Info("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-rootCtx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// deliveryLoop drains pending webhook deliveries until the context ends.
func deliveryLoop(ctx context.Context, svc notification.Service, interval time.Duration, log *logger.Logger) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.ProcessPending(ctx)
			if err != nil {
				log.WithError(err).Error("Webhook delivery pass failed")
				continue
			}
			if n > 0 {
				log.WithFields(map[string]interface{}{"processed": n}).Debug("Processed pending deliveries")
			}
		}
	}
}
