package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/costwatch/costwatch/internal/api/dto"
	"github.com/costwatch/costwatch/internal/domain/subscription"
	"github.com/costwatch/costwatch/internal/pkg/errors"
	"github.com/costwatch/costwatch/internal/pkg/logger"
	"github.com/costwatch/costwatch/internal/pkg/utils"
	"github.com/costwatch/costwatch/internal/pkg/validator"
)

// SyncTrigger starts a sync cycle for one subscription. The cycle runs
// asynchronously and records its outcome on the subscription row.
type SyncTrigger interface {
	RunCycle(ctx context.Context, subscriptionID string)
}

// SubscriptionHandler handles subscription endpoints
type SubscriptionHandler struct {
	service   subscription.Service
	syncer    SyncTrigger
	logger    *logger.Logger
	validator *validator.Validator
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(service subscription.Service, syncer SyncTrigger, log *logger.Logger, val *validator.Validator) *SubscriptionHandler {
	return &SubscriptionHandler{service: service, syncer: syncer, logger: log, validator: val}
}

// List returns subscriptions, optionally restricted to active ones
func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := subscription.Filter{
		ActiveOnly: r.URL.Query().Get("active") == "true",
		SyncStatus: r.URL.Query().Get("sync_status"),
	}

	subs, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err, "Failed to list subscriptions")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, subs)
}

// Register registers a new subscription for monitoring
func (h *SubscriptionHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}

	if errs := h.validator.Validate(req); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", errs))
		return
	}

	sub, err := h.service.Register(r.Context(), req.DisplayName, req.CredentialRef)
	if err != nil {
		writeServiceError(w, err, "Failed to register subscription")
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, sub)
}

// Get returns a single subscription by ID
func (h *SubscriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sub, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "Failed to get subscription")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, sub)
}

// SyncNow kicks off an out-of-schedule sync cycle for one subscription
func (h *SubscriptionHandler) SyncNow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sub, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "Failed to get subscription")
		return
	}
	if !sub.IsActive {
		utils.WriteError(w, errors.Conflict("Subscription is deactivated"))
		return
	}

	// Detached from the request lifetime; the cycle carries its own deadline.
	go h.syncer.RunCycle(context.Background(), id)

	h.logger.With("subscription_id", id).Info("Manual sync requested")
	utils.WriteSuccessWithMessage(w, http.StatusAccepted, "Sync started", map[string]string{
		"subscription_id": id,
	})
}

// Deactivate stops monitoring a subscription. Historical data is kept.
func (h *SubscriptionHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Deactivate(r.Context(), id); err != nil {
		writeServiceError(w, err, "Failed to deactivate subscription")
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusOK, "Subscription deactivated", map[string]string{
		"subscription_id": id,
	})
}
