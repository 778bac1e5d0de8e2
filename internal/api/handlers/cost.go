package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/costwatch/costwatch/internal/api/dto"
	"github.com/costwatch/costwatch/internal/domain/cost"
	"github.com/costwatch/costwatch/internal/pkg/errors"
	"github.com/costwatch/costwatch/internal/pkg/logger"
	"github.com/costwatch/costwatch/internal/pkg/utils"
	"github.com/costwatch/costwatch/internal/pkg/validator"
)

// CostHandler handles cost record endpoints
type CostHandler struct {
	service   cost.Service
	logger    *logger.Logger
	validator *validator.Validator
}

// NewCostHandler creates a new cost handler
func NewCostHandler(service cost.Service, log *logger.Logger, val *validator.Validator) *CostHandler {
	return &CostHandler{service: service, logger: log, validator: val}
}

// Query returns cost records for a subscription within a date range
func (h *CostHandler) Query(w http.ResponseWriter, r *http.Request) {
	subID := r.URL.Query().Get("subscription_id")
	if subID == "" {
		utils.WriteError(w, errors.BadRequest("subscription_id query parameter is required"))
		return
	}

	from, to, err := dateRangeQuery(r, 30)
	if err != nil {
		utils.WriteError(w, errors.BadRequest("Dates must use the YYYY-MM-DD form"))
		return
	}

	filter := cost.Filter{
		ServiceName:   r.URL.Query().Get("service"),
		ResourceGroup: r.URL.Query().Get("resource_group"),
		AnomaliesOnly: r.URL.Query().Get("anomalies_only") == "true",
		Currency:      r.URL.Query().Get("currency"),
	}

	records, err := h.service.Query(r.Context(), subID, from, to, filter)
	if err != nil {
		writeServiceError(w, err, "Failed to query cost records")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, records)
}

// DailyTotals returns summed spend per day for a subscription
func (h *CostHandler) DailyTotals(w http.ResponseWriter, r *http.Request) {
	subID := r.URL.Query().Get("subscription_id")
	if subID == "" {
		utils.WriteError(w, errors.BadRequest("subscription_id query parameter is required"))
		return
	}

	from, to, err := dateRangeQuery(r, 30)
	if err != nil {
		utils.WriteError(w, errors.BadRequest("Dates must use the YYYY-MM-DD form"))
		return
	}

	totals, err := h.service.DailyTotals(r.Context(), subID, from, to)
	if err != nil {
		writeServiceError(w, err, "Failed to compute daily totals")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, totals)
}

// Ingest upserts a batch of normalized cost records
func (h *CostHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req dto.IngestCostsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}

	if errs := h.validator.Validate(req); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", errs))
		return
	}

	records := make([]cost.Record, len(req.Records))
	for i, in := range req.Records {
		date, _ := time.Parse(dateLayout, in.Date)
		records[i] = cost.Record{
			SubscriptionID: req.SubscriptionID,
			Date:           date,
			ServiceName:    in.ServiceName,
			ResourceGroup:  in.ResourceGroup,
			Amount:         in.Amount,
			Currency:       in.Currency,
		}
	}

	if err := h.service.Ingest(r.Context(), req.SubscriptionID, records); err != nil {
		writeServiceError(w, err, "Failed to ingest cost records")
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"subscription_id": req.SubscriptionID,
		"records":         len(records),
	}).Info("Cost batch ingested")

	utils.WriteSuccessWithMessage(w, http.StatusCreated, "Cost records ingested", map[string]int{
		"ingested": len(records),
	})
}
