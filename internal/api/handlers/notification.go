package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/costwatch/costwatch/internal/domain/notification"
	"github.com/costwatch/costwatch/internal/pkg/errors"
	"github.com/costwatch/costwatch/internal/pkg/logger"
	"github.com/costwatch/costwatch/internal/pkg/utils"
	"github.com/costwatch/costwatch/internal/pkg/validator"
)

// NotificationHandler handles webhook endpoint and delivery endpoints
type NotificationHandler struct {
	service   notification.Service
	logger    *logger.Logger
	validator *validator.Validator
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(service notification.Service, log *logger.Logger, val *validator.Validator) *NotificationHandler {
	return &NotificationHandler{service: service, logger: log, validator: val}
}

// ListEndpoints returns all registered webhook endpoints
func (h *NotificationHandler) ListEndpoints(w http.ResponseWriter, r *http.Request) {
	endpoints, err := h.service.ListEndpoints(r.Context())
	if err != nil {
		writeServiceError(w, err, "Failed to list endpoints")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, endpoints)
}

// CreateEndpoint registers a new webhook endpoint
func (h *NotificationHandler) CreateEndpoint(w http.ResponseWriter, r *http.Request) {
	var req notification.CreateEndpointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}

	if errs := h.validator.Validate(req); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", errs))
		return
	}

	endpoint, err := h.service.CreateEndpoint(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, "Failed to create endpoint")
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, endpoint)
}

// UpdateEndpoint updates a webhook endpoint's fields
func (h *NotificationHandler) UpdateEndpoint(w http.ResponseWriter, r *http.Request) {
	var req notification.UpdateEndpointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}

	if errs := h.validator.Validate(req); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", errs))
		return
	}

	endpoint, err := h.service.UpdateEndpoint(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, err, "Failed to update endpoint")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, endpoint)
}

// DeleteEndpoint removes a webhook endpoint. Queued deliveries to it are
// parked as failed on the next dispatch pass.
func (h *NotificationHandler) DeleteEndpoint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteEndpoint(r.Context(), id); err != nil {
		writeServiceError(w, err, "Failed to delete endpoint")
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusOK, "Endpoint deleted", map[string]string{
		"id": id,
	})
}

// Activate re-enables a deactivated endpoint and clears its failure count
func (h *NotificationHandler) Activate(w http.ResponseWriter, r *http.Request) {
	endpoint, err := h.service.Activate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "Failed to activate endpoint")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, endpoint)
}

// Test sends a signed test event to the endpoint synchronously
func (h *NotificationHandler) Test(w http.ResponseWriter, r *http.Request) {
	delivery, err := h.service.Test(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "Failed to test endpoint")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, delivery)
}

// ListDeliveries returns delivery attempts with pagination and filtering
func (h *NotificationHandler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	params := utils.ParsePaginationParams(r)

	filter := notification.DeliveryFilter{
		EndpointID: r.URL.Query().Get("endpoint_id"),
		Status:     r.URL.Query().Get("status"),
	}

	deliveries, total, err := h.service.ListDeliveries(r.Context(), filter, params.Page, params.PageSize)
	if err != nil {
		writeServiceError(w, err, "Failed to list deliveries")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, utils.NewPaginatedResponse(deliveries, params.Page, params.PageSize, total))
}
