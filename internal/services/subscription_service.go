package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/costwatch/costwatch/internal/domain/subscription"
	"github.com/costwatch/costwatch/internal/pkg/errors"
	"github.com/costwatch/costwatch/internal/pkg/logger"
)

// SubscriptionService implements subscription.Service
type SubscriptionService struct {
	repo   subscription.Repository
	logger *logger.Logger
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(repo subscription.Repository, log *logger.Logger) subscription.Service {
	return &SubscriptionService{
		repo:   repo,
		logger: log,
	}
}

// Register creates a subscription
func (s *SubscriptionService) Register(ctx context.Context, displayName, credentialRef string) (*subscription.Subscription, error) {
	if displayName == "" {
		return nil, errors.BadRequest("Display name is required")
	}
	if credentialRef == "" {
		return nil, errors.BadRequest("Credential reference is required")
	}

	sub := &subscription.Subscription{
		ID:             uuid.NewString(),
		DisplayName:    displayName,
		CredentialRef:  credentialRef,
		IsActive:       true,
		LastSyncStatus: subscription.SyncStatusNever,
	}

	if err := s.repo.Create(ctx, sub); err != nil {
		s.logger.ErrorWithErr(err, "Failed to register subscription")
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"subscription_id": sub.ID,
		"display_name":    sub.DisplayName,
	}).Info("Subscription registered")

	return sub, nil
}

// GetByID retrieves a subscription by ID
func (s *SubscriptionService) GetByID(ctx context.Context, id string) (*subscription.Subscription, error) {
	return s.repo.GetByID(ctx, id)
}

// List retrieves subscriptions with filters
func (s *SubscriptionService) List(ctx context.Context, filter subscription.Filter) ([]*subscription.Subscription, error) {
	return s.repo.List(ctx, filter)
}

// Deactivate soft-deactivates a subscription. Cost history and alert
// history stay in place; the sync cycle simply skips inactive
// subscriptions.
func (s *SubscriptionService) Deactivate(ctx context.Context, id string) error {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !sub.IsActive {
		return nil
	}

	referenced, err := s.repo.HasReferences(ctx, id)
	if err != nil {
		return err
	}

	sub.IsActive = false
	if err := s.repo.Update(ctx, sub); err != nil {
		s.logger.ErrorWithErr(err, "Failed to deactivate subscription")
		return err
	}

	log := s.logger.WithFields(map[string]interface{}{
		"subscription_id": id,
	})
	if referenced {
		log.Warn("Subscription deactivated with budgets or alert rules still attached; they stay dormant until reactivation")
	} else {
		log.Info("Subscription deactivated")
	}

	return nil
}
