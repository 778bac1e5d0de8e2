package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientUnwrapsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/subscriptions/sub-1", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"id":           "sub-1",
				"display_name": "Production",
				"is_active":    true,
			},
		})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Token: "tok-123"})

	sub, err := c.Subscriptions().Get(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", sub.ID)
	assert.Equal(t, "Production", sub.DisplayName)
	assert.True(t, sub.IsActive)
}

func TestClientAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error": map[string]interface{}{
				"code":    "NOT_FOUND",
				"message": "Budget not found",
			},
		})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})

	_, err := c.Budgets().Get(context.Background(), "missing")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
	assert.Equal(t, "Budget not found", apiErr.Message)
	assert.True(t, apiErr.IsNotFound())
	assert.False(t, apiErr.IsConflict())
}

func TestClientPaginatedList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("page_size"))
		assert.Equal(t, "true", r.URL.Query().Get("unacknowledged"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"data": []map[string]interface{}{
					{"id": "an-1", "service_name": "Compute", "confidence": 0.9},
				},
				"page":        2,
				"page_size":   10,
				"total_items": 11,
			},
		})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})

	anomalies, total, err := c.Anomalies().List(context.Background(), &AnomalyListOptions{
		ListOptions:    ListOptions{Page: 2, PageSize: 10},
		Unacknowledged: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), total)
	require.Len(t, anomalies, 1)
	assert.Equal(t, "an-1", anomalies[0].ID)
}

func TestClientContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Subscriptions().List(ctx, false)
	require.Error(t, err)
}
