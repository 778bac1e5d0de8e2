package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/costwatch/costwatch/internal/config"
	"github.com/costwatch/costwatch/internal/domain/alert"
	"github.com/costwatch/costwatch/internal/domain/notification"
	"github.com/costwatch/costwatch/internal/pkg/errors"
	"github.com/costwatch/costwatch/internal/pkg/logger"
	"github.com/costwatch/costwatch/internal/pkg/metrics"
)

// DispatcherService implements notification.Service. Deliveries are a
// persisted retry state machine so a restart resumes the backoff
// schedule where it left off.
type DispatcherService struct {
	repo     notification.Repository
	alertSvc alert.Service
	cfg      config.DispatcherConfig
	client   *http.Client
	logger   *logger.Logger
	now      func() time.Time
}

// NewDispatcherService creates a new dispatcher service
func NewDispatcherService(repo notification.Repository, alertSvc alert.Service, cfg config.DispatcherConfig, log *logger.Logger) notification.Service {
	return &DispatcherService{
		repo:     repo,
		alertSvc: alertSvc,
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   log,
		now:      time.Now,
	}
}

// CreateEndpoint registers a new webhook endpoint
func (s *DispatcherService) CreateEndpoint(ctx context.Context, req notification.CreateEndpointRequest) (*notification.Endpoint, error) {
	e := &notification.Endpoint{
		ID:       uuid.NewString(),
		Name:     req.Name,
		URL:      req.URL,
		Secret:   req.Secret,
		IsActive: true,
	}

	if err := s.repo.CreateEndpoint(ctx, e); err != nil {
		s.logger.ErrorWithErr(err, "Failed to create webhook endpoint")
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"endpoint_id": e.ID,
		"name":        e.Name,
	}).Info("Webhook endpoint created")

	return e, nil
}

// GetEndpoint retrieves an endpoint by ID
func (s *DispatcherService) GetEndpoint(ctx context.Context, id string) (*notification.Endpoint, error) {
	return s.repo.GetEndpoint(ctx, id)
}

// UpdateEndpoint updates endpoint fields
func (s *DispatcherService) UpdateEndpoint(ctx context.Context, id string, req notification.UpdateEndpointRequest) (*notification.Endpoint, error) {
	e, err := s.repo.GetEndpoint(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		e.Name = *req.Name
	}
	if req.URL != nil {
		e.URL = *req.URL
	}
	if req.Secret != nil {
		e.Secret = *req.Secret
	}

	if err := s.repo.UpdateEndpoint(ctx, e); err != nil {
		return nil, err
	}

	return e, nil
}

// DeleteEndpoint removes an endpoint
func (s *DispatcherService) DeleteEndpoint(ctx context.Context, id string) error {
	return s.repo.DeleteEndpoint(ctx, id)
}

// ListEndpoints retrieves all endpoints
func (s *DispatcherService) ListEndpoints(ctx context.Context) ([]*notification.Endpoint, error) {
	return s.repo.ListEndpoints(ctx, false)
}

// Activate re-enables a deactivated endpoint and resets its failure
// count
func (s *DispatcherService) Activate(ctx context.Context, id string) (*notification.Endpoint, error) {
	e, err := s.repo.GetEndpoint(ctx, id)
	if err != nil {
		return nil, err
	}

	e.IsActive = true
	e.ConsecutiveFailures = 0
	if err := s.repo.UpdateEndpoint(ctx, e); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"endpoint_id": id,
	}).Info("Webhook endpoint reactivated")

	return e, nil
}

// Test sends a synthetic event to one endpoint immediately, bypassing
// the retry queue
func (s *DispatcherService) Test(ctx context.Context, id string) (*notification.Delivery, error) {
	e, err := s.repo.GetEndpoint(ctx, id)
	if err != nil {
		return nil, err
	}

	event := notification.Event{
		EventType: notification.EventEndpointTest,
		Severity:  alert.SeverityLow,
		Timestamp: s.now(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, errors.Internal("Failed to encode test event", err)
	}

	d := &notification.Delivery{
		EndpointID:    e.ID,
		EventType:     event.EventType,
		Payload:       string(payload),
		Status:        notification.DeliveryPending,
		NextAttemptAt: s.now(),
	}
	if err := s.repo.CreateDelivery(ctx, d); err != nil {
		return nil, err
	}

	s.attempt(ctx, e, d)
	return d, nil
}

// Dispatch fans an event out to every active endpoint, creating one
// pending delivery per endpoint. Attempts happen on the processing
// tick, not inline.
func (s *DispatcherService) Dispatch(ctx context.Context, event notification.Event) error {
	endpoints, err := s.repo.ListEndpoints(ctx, true)
	if err != nil {
		return err
	}
	if len(endpoints) == 0 {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Internal("Failed to encode event", err)
	}

	now := s.now()
	for _, e := range endpoints {
		d := &notification.Delivery{
			EndpointID:    e.ID,
			EventType:     event.EventType,
			Payload:       string(payload),
			Status:        notification.DeliveryPending,
			NextAttemptAt: now,
		}
		if err := s.repo.CreateDelivery(ctx, d); err != nil {
			return err
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"event_type": event.EventType,
		"endpoints":  len(endpoints),
	}).Info("Event queued for delivery")

	return nil
}

// ProcessPending attempts every delivery whose next attempt time has
// passed and returns the number attempted
func (s *DispatcherService) ProcessPending(ctx context.Context) (int, error) {
	due, err := s.repo.ListDueDeliveries(ctx, s.now(), 100)
	if err != nil {
		return 0, err
	}

	attempted := 0
	for _, d := range due {
		e, err := s.repo.GetEndpoint(ctx, d.EndpointID)
		if err != nil {
			if errors.IsNotFound(err) {
				d.Status = notification.DeliveryFailed
				d.LastError = "endpoint no longer exists"
				if err := s.repo.UpdateDelivery(ctx, d); err != nil {
					return attempted, err
				}
				continue
			}
			return attempted, err
		}

		// deactivated endpoints receive nothing; park their queue as failed
		if !e.IsActive {
			d.Status = notification.DeliveryFailed
			d.LastError = "endpoint is deactivated"
			if err := s.repo.UpdateDelivery(ctx, d); err != nil {
				return attempted, err
			}
			continue
		}

		s.attempt(ctx, e, d)
		attempted++
	}

	return attempted, nil
}

// ListDeliveries retrieves delivery history with pagination
func (s *DispatcherService) ListDeliveries(ctx context.Context, filter notification.DeliveryFilter, page, pageSize int) ([]*notification.Delivery, int64, error) {
	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListDeliveries(ctx, filter, pageSize, offset)
}

// attempt performs one HTTP delivery attempt and advances the state
// machine. Persistence errors are logged, not returned; the next tick
// picks the delivery up again.
func (s *DispatcherService) attempt(ctx context.Context, e *notification.Endpoint, d *notification.Delivery) {
	start := s.now()
	statusCode, err := s.post(ctx, e, d)
	latency := time.Since(start)

	d.Attempts++
	d.LastStatus = statusCode
	d.LastLatencyMs = latency.Milliseconds()

	if err == nil {
		now := s.now()
		d.Status = notification.DeliveryDelivered
		d.LastError = ""
		d.DeliveredAt = &now
		metrics.RecordDelivery(notification.DeliveryDelivered, latency)

		e.ConsecutiveFailures = 0
		e.LastDeliveredAt = &now
		if err := s.repo.UpdateEndpoint(ctx, e); err != nil {
			s.logger.ErrorWithErr(err, "Failed to reset endpoint failures")
		}
	} else {
		d.LastError = err.Error()
		if d.Attempts >= s.cfg.MaxAttempts {
			d.Status = notification.DeliveryFailed
			metrics.RecordDelivery(notification.DeliveryFailed, latency)
		} else {
			d.Status = notification.DeliveryRetrying
			d.NextAttemptAt = s.now().Add(s.retryDelay(d.Attempts))
			metrics.RecordDelivery(notification.DeliveryRetrying, latency)
		}

		s.recordEndpointFailure(ctx, e)
	}

	if err := s.repo.UpdateDelivery(ctx, d); err != nil {
		s.logger.ErrorWithErr(err, "Failed to persist delivery state")
	}
}

func (s *DispatcherService) post(ctx context.Context, e *notification.Endpoint, d *notification.Delivery) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, bytes.NewReader([]byte(d.Payload)))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", Sign(e.Secret, []byte(d.Payload)))
	req.Header.Set("X-Event-Type", d.EventType)
	req.Header.Set("X-Delivery-ID", d.ID)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}

	return resp.StatusCode, nil
}

// retryDelay computes the exponential backoff delay for the given
// attempt count
func (s *DispatcherService) retryDelay(attempts int) time.Duration {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.cfg.InitialBackoff
	eb.MaxInterval = s.cfg.MaxBackoff
	eb.RandomizationFactor = 0

	delay := eb.NextBackOff()
	for i := 1; i < attempts; i++ {
		delay = eb.NextBackOff()
	}
	return delay
}

// recordEndpointFailure bumps the consecutive failure count and
// deactivates the endpoint at the ceiling. The meta-alert fires exactly
// once, on the active-to-inactive edge.
func (s *DispatcherService) recordEndpointFailure(ctx context.Context, e *notification.Endpoint) {
	e.ConsecutiveFailures++

	deactivated := false
	if e.ConsecutiveFailures >= s.cfg.FailureCeiling && e.IsActive {
		e.IsActive = false
		deactivated = true
	}

	if err := s.repo.UpdateEndpoint(ctx, e); err != nil {
		s.logger.ErrorWithErr(err, "Failed to record endpoint failure")
		return
	}

	if deactivated {
		s.logger.WithFields(map[string]interface{}{
			"endpoint_id": e.ID,
			"failures":    e.ConsecutiveFailures,
		}).Warn("Webhook endpoint deactivated after consecutive failures")

		message := fmt.Sprintf("Webhook endpoint %q deactivated after %d consecutive delivery failures", e.Name, e.ConsecutiveFailures)
		if _, err := s.alertSvc.RaiseMeta(ctx, alert.SeverityHigh, message, float64(e.ConsecutiveFailures)); err != nil {
			s.logger.ErrorWithErr(err, "Failed to raise endpoint deactivation alert")
		}
	}
}

// Sign computes the hex HMAC-SHA256 signature receivers use to verify
// webhook payloads
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
