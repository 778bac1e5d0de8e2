// Package client provides a typed HTTP client for the CostWatch API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is the CostWatch API client
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// Config holds the client configuration
type Config struct {
	BaseURL    string        // API base URL, e.g. "http://localhost:8080"
	Token      string        // Bearer token for mutating calls
	Timeout    time.Duration // HTTP client timeout (default: 30s)
	HTTPClient *http.Client  // Optional custom HTTP client
}

// New creates a new CostWatch API client
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
		token:      cfg.Token,
	}
}

// SetToken sets the bearer token for subsequent requests
func (c *Client) SetToken(token string) {
	c.token = token
}

// envelope is the standard API response wrapper
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *errorDetail    `json:"error"`
}

type errorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// doRequest performs a request and decodes the unwrapped data payload
// into result
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &env); err != nil {
			return fmt.Errorf("unexpected response (status %d): %s", resp.StatusCode, string(respBody))
		}
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Details = env.Error.Details
		}
		return apiErr
	}

	if result != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// Subscriptions returns the subscription service
func (c *Client) Subscriptions() *SubscriptionService {
	return &SubscriptionService{client: c}
}

// Costs returns the cost record service
func (c *Client) Costs() *CostService {
	return &CostService{client: c}
}

// Budgets returns the budget service
func (c *Client) Budgets() *BudgetService {
	return &BudgetService{client: c}
}

// Anomalies returns the anomaly service
func (c *Client) Anomalies() *AnomalyService {
	return &AnomalyService{client: c}
}

// Forecasts returns the forecast service
func (c *Client) Forecasts() *ForecastService {
	return &ForecastService{client: c}
}

// Alerts returns the alert rule and alert service
func (c *Client) Alerts() *AlertService {
	return &AlertService{client: c}
}

// Endpoints returns the webhook endpoint service
func (c *Client) Endpoints() *EndpointService {
	return &EndpointService{client: c}
}

// Health checks the API liveness probe
func (c *Client) Health(ctx context.Context) (map[string]string, error) {
	var status map[string]string
	if err := c.doRequest(ctx, http.MethodGet, "/health", nil, &status); err != nil {
		return nil, err
	}
	return status, nil
}

// Ready checks the API readiness probe
func (c *Client) Ready(ctx context.Context) (map[string]string, error) {
	var status map[string]string
	if err := c.doRequest(ctx, http.MethodGet, "/readyz", nil, &status); err != nil {
		return nil, err
	}
	return status, nil
}
