package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/costwatch/costwatch/internal/api/dto"
	"github.com/costwatch/costwatch/internal/api/middleware"
	"github.com/costwatch/costwatch/internal/domain/anomaly"
	"github.com/costwatch/costwatch/internal/pkg/errors"
	"github.com/costwatch/costwatch/internal/pkg/logger"
	"github.com/costwatch/costwatch/internal/pkg/utils"
	"github.com/costwatch/costwatch/internal/pkg/validator"
)

// AnomalyHandler handles anomaly endpoints
type AnomalyHandler struct {
	service    anomaly.Service
	windowDays int
	logger     *logger.Logger
	validator  *validator.Validator
}

// NewAnomalyHandler creates a new anomaly handler. windowDays is the
// default lookback for on-demand detection.
func NewAnomalyHandler(service anomaly.Service, windowDays int, log *logger.Logger, val *validator.Validator) *AnomalyHandler {
	return &AnomalyHandler{service: service, windowDays: windowDays, logger: log, validator: val}
}

// List returns anomalies with pagination and filtering
func (h *AnomalyHandler) List(w http.ResponseWriter, r *http.Request) {
	params := utils.ParsePaginationParams(r)

	filter := anomaly.Filter{
		SubscriptionID: r.URL.Query().Get("subscription_id"),
		ServiceName:    r.URL.Query().Get("service"),
		Method:         r.URL.Query().Get("method"),
		Unacknowledged: r.URL.Query().Get("unacknowledged") == "true",
	}
	if v := r.URL.Query().Get("min_confidence"); v != "" {
		c, err := strconv.ParseFloat(v, 64)
		if err != nil || c < 0 || c > 1 {
			utils.WriteError(w, errors.BadRequest("min_confidence must be a number within [0,1]"))
			return
		}
		filter.MinConfidence = c
	}
	if from, ok, err := parseDate(r.URL.Query().Get("from")); err != nil {
		utils.WriteError(w, errors.BadRequest("Dates must use the YYYY-MM-DD form"))
		return
	} else if ok {
		filter.From = &from
	}
	if to, ok, err := parseDate(r.URL.Query().Get("to")); err != nil {
		utils.WriteError(w, errors.BadRequest("Dates must use the YYYY-MM-DD form"))
		return
	} else if ok {
		filter.To = &to
	}

	anomalies, total, err := h.service.List(r.Context(), filter, params.PageSize, params.Offset)
	if err != nil {
		writeServiceError(w, err, "Failed to list anomalies")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, utils.NewPaginatedResponse(anomalies, params.Page, params.PageSize, total))
}

// Detect runs anomaly detection on demand
func (h *AnomalyHandler) Detect(w http.ResponseWriter, r *http.Request) {
	var req dto.DetectAnomaliesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}

	if errs := h.validator.Validate(req); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", errs))
		return
	}

	to := time.Now().UTC().Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -h.windowDays+1)
	if req.From != "" {
		from, _ = time.Parse(dateLayout, req.From)
	}
	if req.To != "" {
		to, _ = time.Parse(dateLayout, req.To)
	}

	anomalies, err := h.service.Detect(r.Context(), req.SubscriptionID, from, to, req.Methods)
	if err != nil {
		writeServiceError(w, err, "Failed to detect anomalies")
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"subscription_id": req.SubscriptionID,
		"anomalies":       len(anomalies),
	}).Info("On-demand detection completed")

	utils.WriteSuccess(w, http.StatusOK, anomalies)
}

// Acknowledge marks an anomaly as reviewed by the authenticated actor
func (h *AnomalyHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		utils.WriteError(w, errors.Unauthorized("Actor identity is required"))
		return
	}

	var req dto.AcknowledgeAnomalyRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.WriteError(w, errors.BadRequest("Invalid request body"))
			return
		}
		if errs := h.validator.Validate(req); len(errs) > 0 {
			utils.WriteError(w, errors.ValidationError("Validation failed", errs))
			return
		}
	}

	id := chi.URLParam(r, "id")
	if err := h.service.Acknowledge(r.Context(), id, actor, req.Note); err != nil {
		writeServiceError(w, err, "Failed to acknowledge anomaly")
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusOK, "Anomaly acknowledged", map[string]string{
		"id": id,
	})
}
