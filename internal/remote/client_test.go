package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocha/internal/models"
)

func TestFetchOrders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "venue-1", r.URL.Query().Get("venue"))
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]any{
			"orders": []map[string]any{
				{"_id": "A", "status": "pending", "total": "1500"},
				{"_id": "B", "status": "ready", "total": "2000"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok-1", time.Second, nil)
	payloads, err := c.FetchOrders(context.Background(), "venue-1")
	require.NoError(t, err)
	require.Len(t, payloads, 2)
	assert.Equal(t, "A", payloads[0].ResolveID())
	assert.Equal(t, models.StatusReady, payloads[1].Status)
}

func TestFetchOrdersNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second, nil)
	_, err := c.FetchOrders(context.Background(), "venue-1")
	assert.Error(t, err)
}

func TestUpdateStatus(t *testing.T) {
	var gotBody map[string]string
	var gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/orders/A/status", r.URL.Path)
		gotRequestID = r.Header.Get("X-Request-ID")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second, nil)
	err := c.UpdateStatus(context.Background(), "A", models.StatusReady)
	require.NoError(t, err)
	assert.Equal(t, "ready", gotBody["status"])
	assert.NotEmpty(t, gotRequestID)
}

func TestUpdateStatusFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second, nil)
	err := c.UpdateStatus(context.Background(), "missing", models.StatusReady)
	assert.Error(t, err)
}

func TestUpdateStatusTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewClient(srv.URL, "", time.Second, nil)
	err := c.UpdateStatus(context.Background(), "A", models.StatusReady)
	assert.Error(t, err)
}
