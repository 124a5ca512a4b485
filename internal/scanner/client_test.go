package scanner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkguard/internal/core"
)

func noRetryConfig(baseURL string) ClientConfig {
	cfg := DefaultClientConfig(baseURL)
	cfg.MaxRetries = 0
	cfg.CircuitBreaker = nil
	return cfg
}

func TestClientScanSuccess(t *testing.T) {
	var gotAuth string
	var gotBody map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"success": true,
			"data": {
				"status": "malicious",
				"title": "Known Phishing Site",
				"details": "Flagged by multiple engines",
				"confidence": 91,
				"url": "http://evil.example.com",
				"scanDate": "2025-06-01T12:00:00Z"
			}
		}`))
	}))
	defer server.Close()

	client := NewClient(noRetryConfig(server.URL))
	res, err := client.Scan(context.Background(), "http://evil.example.com", "tok-123")
	require.NoError(t, err)

	assert.Equal(t, core.StatusMalicious, res.Status)
	assert.Equal(t, "Known Phishing Site", res.Title)
	assert.Equal(t, 91, res.Confidence)
	assert.Equal(t, "http://evil.example.com", res.URL)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "http://evil.example.com", gotBody["url"])
}

func TestClientScanUnauthenticated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Token absence must not add an empty Authorization header.
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"success": true, "data": {"status": "safe", "confidence": 97}}`))
	}))
	defer server.Close()

	client := NewClient(noRetryConfig(server.URL))
	res, err := client.Scan(context.Background(), "http://example.com", "")
	require.NoError(t, err)
	assert.Equal(t, core.StatusSafe, res.Status)
	// The backend omitted url and scanDate; the client fills both.
	assert.Equal(t, "http://example.com", res.URL)
	assert.False(t, res.ScanDate.IsZero())
}

func TestClientScanEnvelopeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"success": false, "error": "scan quota exceeded"}`))
	}))
	defer server.Close()

	client := NewClient(noRetryConfig(server.URL))
	_, err := client.Scan(context.Background(), "http://example.com", "")
	require.Error(t, err)

	scanErr, ok := err.(*core.ScanError)
	require.True(t, ok)
	assert.Equal(t, core.ErrorTypeNetwork, scanErr.Type)
	assert.Contains(t, scanErr.Message, "scan quota exceeded")
}

func TestClientScanUnknownStatusNormalized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"success": true, "data": {"status": "weird-new-status"}}`))
	}))
	defer server.Close()

	client := NewClient(noRetryConfig(server.URL))
	res, err := client.Scan(context.Background(), "http://example.com", "")
	require.NoError(t, err)
	assert.Equal(t, core.StatusUnknown, res.Status)
}

func TestClientScanRetriesTransientErrors(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"success": true, "data": {"status": "safe", "confidence": 90}}`))
	}))
	defer server.Close()

	cfg := DefaultClientConfig(server.URL)
	cfg.MaxRetries = 1
	cfg.InitialBackoff = 0
	cfg.CircuitBreaker = nil

	client := NewClient(cfg)
	res, err := client.Scan(context.Background(), "http://example.com", "")
	require.NoError(t, err)
	assert.Equal(t, core.StatusSafe, res.Status)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestClientScanNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close() // connection refused from here on

	client := NewClient(noRetryConfig(server.URL))
	_, err := client.Scan(context.Background(), "http://example.com", "")
	require.Error(t, err)

	scanErr, ok := err.(*core.ScanError)
	require.True(t, ok)
	assert.Equal(t, core.ErrorTypeNetwork, scanErr.Type)
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	cfg := noRetryConfig(server.URL)
	cfg.CircuitBreaker = &CircuitBreakerConfig{FailureThreshold: 2, SuccessThreshold: 1, Timeout: time.Hour}

	client := NewClient(cfg)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := client.Scan(ctx, "http://example.com", "")
		require.Error(t, err)
	}

	// Circuit is now open: the next call fails fast without dialing.
	_, err := client.Scan(ctx, "http://example.com", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker")
}
