// Package scanner performs URL scans: the backend API client, the local
// fallback classifier, and the dispatch logic that coalesces concurrent
// scans of the same URL.
package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"linkguard/internal/core"
	"linkguard/internal/httpclient"
)

// APIClient submits URLs to the external scanning backend.
type APIClient interface {
	// Scan posts the URL to the backend. The auth token is advisory: an
	// empty token sends an unauthenticated request, never an error.
	Scan(ctx context.Context, rawURL, authToken string) (core.Result, error)
}

// ClientConfig holds configuration for the scan API client.
type ClientConfig struct {
	// BaseURL is the scan API base URL
	BaseURL string

	// Retry configuration
	MaxRetries     int           // Maximum number of retry attempts (default: 2)
	InitialBackoff time.Duration // Initial backoff duration (default: 500ms)
	MaxBackoff     time.Duration // Maximum backoff duration (default: 5s)
	BackoffFactor  float64       // Backoff multiplier (default: 2.0)

	// Circuit breaker configuration
	CircuitBreaker *CircuitBreakerConfig
}

// CircuitBreakerConfig holds circuit breaker settings
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of failures before opening the circuit
	FailureThreshold int
	// SuccessThreshold is the number of successes needed to close an open circuit
	SuccessThreshold int
	// Timeout is how long to wait before attempting to close an open circuit
	Timeout time.Duration
}

// DefaultClientConfig returns default scan client configuration.
// Retries stay modest: past the client timeout the dispatcher falls back to
// the local classifier anyway.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:        baseURL,
		MaxRetries:     2,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		BackoffFactor:  2.0,
		CircuitBreaker: &CircuitBreakerConfig{
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Timeout:          30 * time.Second,
		},
	}
}

// Client is the HTTP client for the scan backend.
type Client struct {
	httpClient *http.Client
	config     ClientConfig
	breaker    *circuitBreaker
}

// NewClient creates a scan API client with the given configuration.
func NewClient(config ClientConfig) *Client {
	return NewClientWithHTTPClient(httpclient.NewDefaultHTTPClient(), config)
}

// NewClientWithHTTPClient creates a scan API client with a custom HTTP client.
func NewClientWithHTTPClient(httpClient *http.Client, config ClientConfig) *Client {
	c := &Client{
		httpClient: httpClient,
		config:     config,
	}
	if config.CircuitBreaker != nil {
		c.breaker = newCircuitBreaker(
			config.CircuitBreaker.FailureThreshold,
			config.CircuitBreaker.SuccessThreshold,
			config.CircuitBreaker.Timeout,
		)
	}
	return c
}

// scanRequest is the outbound body for POST /scan.
type scanRequest struct {
	URL string `json:"url"`
}

// Scan implements APIClient against POST {baseURL}/scan. The backend answers
// with an envelope {success, data?, error?}; data is treated as a raw payload
// and picked apart field by field.
func (c *Client) Scan(ctx context.Context, rawURL, authToken string) (core.Result, error) {
	if c.breaker != nil && !c.breaker.Allow() {
		return core.Result{}, core.NewNetworkError("scan backend circuit breaker is open", nil)
	}

	body, err := c.doWithRetries(ctx, rawURL, authToken)
	if err != nil {
		return core.Result{}, err
	}

	root := gjson.ParseBytes(body)
	if !root.Get("success").Bool() {
		message := root.Get("error").String()
		if message == "" {
			message = "scan backend reported failure"
		}
		return core.Result{}, core.NewNetworkError(message, nil)
	}

	data := root.Get("data")
	status := core.Status(data.Get("status").String())
	switch status {
	case core.StatusSafe, core.StatusSuspicious, core.StatusMalicious:
	default:
		status = core.StatusUnknown
	}

	scanDate := time.Now()
	if raw := data.Get("scanDate").String(); raw != "" {
		if parsed, parseErr := time.Parse(time.RFC3339, raw); parseErr == nil {
			scanDate = parsed
		}
	}

	resultURL := data.Get("url").String()
	if resultURL == "" {
		resultURL = rawURL
	}

	return core.Result{
		Status:     status,
		Title:      data.Get("title").String(),
		Details:    data.Get("details").String(),
		Confidence: int(data.Get("confidence").Int()),
		URL:        resultURL,
		ScanDate:   scanDate,
	}, nil
}

// doWithRetries executes the POST with retries and circuit breaking,
// returning the raw response body.
func (c *Client) doWithRetries(ctx context.Context, rawURL, authToken string) ([]byte, error) {
	var lastErr error
	maxAttempts := c.config.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := c.calculateBackoff(attempt)
			select {
			case <-ctx.Done():
				return nil, core.NewNetworkError("scan cancelled while backing off", ctx.Err())
			case <-time.After(backoff):
			}
		}

		body, statusCode, err := c.doRequest(ctx, rawURL, authToken)
		if err != nil {
			lastErr = err
			c.recordFailure()
			continue
		}

		if isRetryable(statusCode) {
			lastErr = core.NewNetworkError(fmt.Sprintf("scan backend returned %d", statusCode), nil)
			c.recordFailure()
			continue
		}

		if statusCode != http.StatusOK {
			if statusCode >= 500 {
				c.recordFailure()
			}
			return nil, core.NewNetworkError(fmt.Sprintf("scan backend returned %d", statusCode), nil)
		}

		c.recordSuccess()
		return body, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, core.NewNetworkError("scan request failed after retries", nil)
}

// doRequest executes a single POST /scan without retries.
func (c *Client) doRequest(ctx context.Context, rawURL, authToken string) ([]byte, int, error) {
	payload, err := json.Marshal(scanRequest{URL: rawURL})
	if err != nil {
		return nil, 0, core.NewNetworkError("failed to marshal scan request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/scan", bytes.NewReader(payload))
	if err != nil {
		return nil, 0, core.NewNetworkError("failed to create scan request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, core.NewNetworkError("scan endpoint unreachable: "+err.Error(), err)
	}
	defer func() {
		_ = resp.Body.Close() //nolint:errcheck
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, core.NewNetworkError("failed to read scan response", err)
	}

	return body, resp.StatusCode, nil
}

func (c *Client) recordFailure() {
	if c.breaker != nil {
		c.breaker.RecordFailure()
	}
}

func (c *Client) recordSuccess() {
	if c.breaker != nil {
		c.breaker.RecordSuccess()
	}
}

// calculateBackoff calculates the backoff duration for a given attempt
func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := float64(c.config.InitialBackoff) * math.Pow(c.config.BackoffFactor, float64(attempt-1))
	if backoff > float64(c.config.MaxBackoff) {
		backoff = float64(c.config.MaxBackoff)
	}
	return time.Duration(backoff)
}

// isRetryable returns true if the status code indicates a retryable error
func isRetryable(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests ||
		statusCode == http.StatusServiceUnavailable ||
		statusCode == http.StatusBadGateway ||
		statusCode == http.StatusGatewayTimeout
}
