package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/costwatch/costwatch/internal/api/dto"
	"github.com/costwatch/costwatch/internal/domain/budget"
	"github.com/costwatch/costwatch/internal/pkg/errors"
	"github.com/costwatch/costwatch/internal/pkg/logger"
	"github.com/costwatch/costwatch/internal/pkg/utils"
	"github.com/costwatch/costwatch/internal/pkg/validator"
)

// BudgetHandler handles budget endpoints
type BudgetHandler struct {
	service   budget.Service
	logger    *logger.Logger
	validator *validator.Validator
}

// NewBudgetHandler creates a new budget handler
func NewBudgetHandler(service budget.Service, log *logger.Logger, val *validator.Validator) *BudgetHandler {
	return &BudgetHandler{service: service, logger: log, validator: val}
}

func (h *BudgetHandler) decodeBudget(w http.ResponseWriter, r *http.Request) (*budget.Budget, bool) {
	var req dto.BudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return nil, false
	}

	if errs := h.validator.Validate(req); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", errs))
		return nil, false
	}

	b := &budget.Budget{
		SubscriptionID: req.SubscriptionID,
		Name:           req.Name,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Period:         req.Period,
	}
	if req.PeriodStart != "" {
		start, _ := time.Parse(dateLayout, req.PeriodStart)
		b.PeriodStart = &start
	}
	if req.PeriodEnd != "" {
		end, _ := time.Parse(dateLayout, req.PeriodEnd)
		b.PeriodEnd = &end
	}
	for _, t := range req.Thresholds {
		b.Thresholds = append(b.Thresholds, budget.Threshold{
			Percentage: t.Percentage,
			Severity:   t.Severity,
		})
	}
	return b, true
}

// List returns budgets with optional subscription and status filters
func (h *BudgetHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := budget.Filter{
		SubscriptionID: r.URL.Query().Get("subscription_id"),
		Status:         r.URL.Query().Get("status"),
	}

	budgets, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err, "Failed to list budgets")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, budgets)
}

// Create creates a new budget
func (h *BudgetHandler) Create(w http.ResponseWriter, r *http.Request) {
	b, ok := h.decodeBudget(w, r)
	if !ok {
		return
	}

	if err := h.service.Create(r.Context(), b); err != nil {
		writeServiceError(w, err, "Failed to create budget")
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, b)
}

// Get returns a single budget by ID
func (h *BudgetHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "Failed to get budget")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, b)
}

// Update replaces a budget's definition. Derived spend and status are
// recomputed, not taken from the request.
func (h *BudgetHandler) Update(w http.ResponseWriter, r *http.Request) {
	b, ok := h.decodeBudget(w, r)
	if !ok {
		return
	}
	b.ID = chi.URLParam(r, "id")

	if err := h.service.Update(r.Context(), b); err != nil {
		writeServiceError(w, err, "Failed to update budget")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, b)
}

// Delete removes a budget
func (h *BudgetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err, "Failed to delete budget")
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusOK, "Budget deleted", map[string]string{
		"id": id,
	})
}

// Recompute re-derives a budget's current spend and status from cost rows
func (h *BudgetHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	status, spend, err := h.service.Recompute(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "Failed to recompute budget")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"id":            id,
		"status":        status,
		"current_spend": spend,
	})
}

// Forecast returns the budget's run-rate projection to period end
func (h *BudgetHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	fc, err := h.service.ForecastPeriodEnd(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "Failed to forecast budget period end")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, fc)
}
