package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/costwatch/costwatch/internal/api/dto"
	"github.com/costwatch/costwatch/internal/domain/forecast"
	"github.com/costwatch/costwatch/internal/pkg/errors"
	"github.com/costwatch/costwatch/internal/pkg/logger"
	"github.com/costwatch/costwatch/internal/pkg/utils"
	"github.com/costwatch/costwatch/internal/pkg/validator"
)

// ForecastHandler handles forecast endpoints
type ForecastHandler struct {
	service     forecast.Service
	horizonDays int
	logger      *logger.Logger
	validator   *validator.Validator
}

// NewForecastHandler creates a new forecast handler. horizonDays is the
// default horizon when a request leaves it unset.
func NewForecastHandler(service forecast.Service, horizonDays int, log *logger.Logger, val *validator.Validator) *ForecastHandler {
	return &ForecastHandler{service: service, horizonDays: horizonDays, logger: log, validator: val}
}

// List returns stored forecasts with optional filters
func (h *ForecastHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := forecast.Filter{
		SubscriptionID: r.URL.Query().Get("subscription_id"),
		ModelType:      r.URL.Query().Get("model_type"),
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

	forecasts, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err, "Failed to list forecasts")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, forecasts)
}

// Generate produces fresh forecasts on demand
func (h *ForecastHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req dto.GenerateForecastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}

	if errs := h.validator.Validate(req); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", errs))
		return
	}

	horizon := req.HorizonDays
	if horizon == 0 {
		horizon = h.horizonDays
	}

	forecasts, err := h.service.Generate(r.Context(), req.SubscriptionID, horizon, req.ModelType)
	if err != nil {
		writeServiceError(w, err, "Failed to generate forecasts")
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"subscription_id": req.SubscriptionID,
		"horizon_days":    horizon,
		"forecasts":       len(forecasts),
	}).Info("On-demand forecast completed")

	utils.WriteSuccess(w, http.StatusOK, forecasts)
}
