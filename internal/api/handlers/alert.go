package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/costwatch/costwatch/internal/api/dto"
	"github.com/costwatch/costwatch/internal/api/middleware"
	"github.com/costwatch/costwatch/internal/domain/alert"
	"github.com/costwatch/costwatch/internal/pkg/errors"
	"github.com/costwatch/costwatch/internal/pkg/logger"
	"github.com/costwatch/costwatch/internal/pkg/utils"
	"github.com/costwatch/costwatch/internal/pkg/validator"
)

// AlertHandler handles alert rule and alert lifecycle endpoints
type AlertHandler struct {
	service   alert.Service
	logger    *logger.Logger
	validator *validator.Validator
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(service alert.Service, log *logger.Logger, val *validator.Validator) *AlertHandler {
	return &AlertHandler{service: service, logger: log, validator: val}
}

func (h *AlertHandler) decodeRule(w http.ResponseWriter, r *http.Request) (*alert.Rule, bool) {
	var req dto.RuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return nil, false
	}

	if errs := h.validator.Validate(req); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", errs))
		return nil, false
	}

	rule := &alert.Rule{
		SubscriptionID: req.SubscriptionID,
		Name:           req.Name,
		RuleType:       req.RuleType,
		Severity:       req.Severity,
		Params:         req.Params,
		IsActive:       true,
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
	if req.Cadence != "" {
		cadence, err := time.ParseDuration(req.Cadence)
		if err != nil || cadence < 0 {
			utils.WriteError(w, errors.BadRequest("cadence must be a non-negative duration such as \"1h\""))
			return nil, false
		}
		rule.Cadence = cadence
	}
	return rule, true
}

// ListRules returns alert rules with optional filters
func (h *AlertHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	filter := alert.RuleFilter{
		SubscriptionID: r.URL.Query().Get("subscription_id"),
		RuleType:       r.URL.Query().Get("rule_type"),
		ActiveOnly:     r.URL.Query().Get("active") == "true",
	}

	rules, err := h.service.ListRules(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err, "Failed to list rules")
		return
	}

	resp := make([]dto.RuleResponse, len(rules))
	for i, rule := range rules {
		resp[i] = dto.NewRuleResponse(rule)
	}

	utils.WriteSuccess(w, http.StatusOK, resp)
}

// CreateRule creates a new alert rule
func (h *AlertHandler) CreateRule(w http.ResponseWriter, r *http.Request) {
	rule, ok := h.decodeRule(w, r)
	if !ok {
		return
	}

	if err := h.service.CreateRule(r.Context(), rule); err != nil {
		writeServiceError(w, err, "Failed to create rule")
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, dto.NewRuleResponse(rule))
}

// GetRule returns a single rule by ID
func (h *AlertHandler) GetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.service.GetRule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "Failed to get rule")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.NewRuleResponse(rule))
}

// UpdateRule replaces a rule's definition. The rule type is immutable.
func (h *AlertHandler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	rule, ok := h.decodeRule(w, r)
	if !ok {
		return
	}
	rule.ID = chi.URLParam(r, "id")

	if err := h.service.UpdateRule(r.Context(), rule); err != nil {
		writeServiceError(w, err, "Failed to update rule")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.NewRuleResponse(rule))
}

// DeleteRule removes a rule. Alerts it raised are kept for audit.
func (h *AlertHandler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteRule(r.Context(), id); err != nil {
		writeServiceError(w, err, "Failed to delete rule")
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusOK, "Rule deleted", map[string]string{
		"id": id,
	})
}

// Evaluate runs the rule engine on demand for one subscription
func (h *AlertHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req dto.EvaluateRulesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}

	if errs := h.validator.Validate(req); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", errs))
		return
	}

	alerts, err := h.service.Evaluate(r.Context(), req.SubscriptionID)
	if err != nil {
		writeServiceError(w, err, "Failed to evaluate rules")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, alerts)
}

// ListAlerts returns alerts with pagination and filtering
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	params := utils.ParsePaginationParams(r)

	filter := alert.Filter{
		SubscriptionID: r.URL.Query().Get("subscription_id"),
		RuleID:         r.URL.Query().Get("rule_id"),
		Status:         r.URL.Query().Get("status"),
		Severity:       r.URL.Query().Get("severity"),
		AlertType:      r.URL.Query().Get("type"),
	}

	alerts, total, err := h.service.ListAlerts(r.Context(), filter, params.PageSize, params.Offset)
	if err != nil {
		writeServiceError(w, err, "Failed to list alerts")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, utils.NewPaginatedResponse(alerts, params.Page, params.PageSize, total))
}

// GetAlert returns a single alert by ID
func (h *AlertHandler) GetAlert(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.GetAlert(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "Failed to get alert")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, a)
}

// Summary returns alert counts grouped by status
func (h *AlertHandler) Summary(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.Summary(r.Context())
	if err != nil {
		writeServiceError(w, err, "Failed to summarize alerts")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, counts)
}

// Acknowledge moves an alert to acknowledged, recording the actor
func (h *AlertHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		utils.WriteError(w, errors.Unauthorized("Actor identity is required"))
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.Acknowledge(r.Context(), id, actor); err != nil {
		writeServiceError(w, err, "Failed to acknowledge alert")
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusOK, "Alert acknowledged", map[string]string{
		"id": id,
	})
}

// Resolve moves an alert to resolved, recording the actor
func (h *AlertHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		utils.WriteError(w, errors.Unauthorized("Actor identity is required"))
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.Resolve(r.Context(), id, actor); err != nil {
		writeServiceError(w, err, "Failed to resolve alert")
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusOK, "Alert resolved", map[string]string{
		"id": id,
	})
}
