package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClientStatus(t *testing.T) {
	expiry := time.Date(2025, 9, 1, 23, 59, 59, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/licenses/1001", r.URL.Path)
		require.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(LicenseStatus{
			TenantID:         "1001",
			LicenseKey:       "DEMO-A1B2C3-D4E5F6-A7B8C9",
			ExpiryDate:       expiry,
			IsActive:         true,
			MinutesRemaining: 1440,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "1001", "tok-123")
	status, err := c.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, "1001", status.TenantID)
	require.True(t, expiry.Equal(status.ExpiryDate))
	require.Equal(t, int64(1440), status.MinutesRemaining)
}

func TestClientStatusNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "1001", "tok-123").Status(context.Background())
	require.Error(t, err)
}
