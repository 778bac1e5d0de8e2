package services

import (
	"context"
	"time"

	"github.com/costwatch/costwatch/internal/domain/cost"
	"github.com/costwatch/costwatch/internal/domain/subscription"
	"github.com/costwatch/costwatch/internal/pkg/errors"
	"github.com/costwatch/costwatch/internal/pkg/logger"
)

// CostService implements cost.Service
type CostService struct {
	repo    cost.Repository
	subRepo subscription.Repository
	logger  *logger.Logger
}

// NewCostService creates a new cost service
func NewCostService(repo cost.Repository, subRepo subscription.Repository, log *logger.Logger) cost.Service {
	return &CostService{
		repo:    repo,
		subRepo: subRepo,
		logger:  log,
	}
}

// Ingest validates and upserts a batch of cost records. The whole batch
// lands in one transaction and the subscription's sync bookkeeping is
// updated with the outcome.
func (s *CostService) Ingest(ctx context.Context, subscriptionID string, records []cost.Record) error {
	if _, err := s.subRepo.GetByID(ctx, subscriptionID); err != nil {
		return err
	}

	for i := range records {
		rec := &records[i]
		if rec.SubscriptionID == "" {
			rec.SubscriptionID = subscriptionID
		}
		if rec.SubscriptionID != subscriptionID {
			return errors.BadRequest("Cost record subscription does not match the ingest target")
		}
		if rec.Amount < 0 {
			return errors.BadRequest("Cost record amount must not be negative")
		}
		if rec.ServiceName == "" {
			return errors.BadRequest("Cost record service name is required")
		}
		if rec.Currency == "" {
			return errors.BadRequest("Cost record currency is required")
		}
		if rec.Date.IsZero() {
			return errors.BadRequest("Cost record date is required")
		}
	}

	now := time.Now()
	if err := s.repo.Upsert(ctx, records); err != nil {
		s.logger.ErrorWithErr(err, "Failed to ingest cost records")
		if markErr := s.subRepo.MarkSyncResult(ctx, subscriptionID, now, subscription.SyncStatusFailed, err.Error()); markErr != nil {
			s.logger.ErrorWithErr(markErr, "Failed to record sync failure")
		}
		return errors.IngestionError(subscriptionID, err)
	}

	if err := s.subRepo.MarkSyncResult(ctx, subscriptionID, now, subscription.SyncStatusSuccess, ""); err != nil {
		s.logger.ErrorWithErr(err, "Failed to record sync success")
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"subscription_id": subscriptionID,
		"records":         len(records),
	}).Info("Cost records ingested")

	return nil
}

// Query retrieves cost records within a date range
func (s *CostService) Query(ctx context.Context, subscriptionID string, from, to time.Time, filter cost.Filter) ([]cost.Record, error) {
	if to.Before(from) {
		return nil, errors.BadRequest("Query range end precedes its start")
	}
	return s.repo.Query(ctx, subscriptionID, from, to, filter)
}

// DailyTotals returns summed spend per day
func (s *CostService) DailyTotals(ctx context.Context, subscriptionID string, from, to time.Time) ([]cost.DailyTotal, error) {
	if to.Before(from) {
		return nil, errors.BadRequest("Query range end precedes its start")
	}
	return s.repo.DailyTotals(ctx, subscriptionID, from, to)
}
