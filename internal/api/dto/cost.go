package dto

// CostRecordInput represents one cost row in an ingestion batch.
// Dates use the YYYY-MM-DD form.
type CostRecordInput struct {
	Date          string  `json:"date" validate:"required,datetime=2006-01-02"`
	ServiceName   string  `json:"service_name" validate:"required"`
	ResourceGroup string  `json:"resource_group"`
	Amount        float64 `json:"amount" validate:"gte=0"`
	Currency      string  `json:"currency" validate:"required,len=3"`
}

// IngestCostsRequest represents a batch cost ingestion request
type IngestCostsRequest struct {
	SubscriptionID string            `json:"subscription_id" validate:"required"`
	Records        []CostRecordInput `json:"records" validate:"required,min=1,dive"`
}
