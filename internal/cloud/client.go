// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud provides the client for the Neon Nexus completion endpoint.
//
// CLOUD: Secure logging, client-side pacing, and response classification
package cloud

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/neonnexus/internal/model"
	"github.com/jeranaias/neonnexus/internal/telemetry"
	"github.com/jeranaias/neonnexus/internal/util"
)

// Configuration constants for the completion endpoint.
const (
	// DefaultBaseURL is where `neonnexus serve` listens by default.
	DefaultBaseURL = "http://127.0.0.1:8787"

	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion attacks.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit

	// maxErrorTextRunes caps upstream error text carried into notifications.
	maxErrorTextRunes = 512

	// userAgent identifies the console to the upstream.
	userAgent = "neonnexus/1.0"
)

// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
// Shared HTTP transport for all completion requests.
var sharedTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     90 * time.Second,
	TLSHandshakeTimeout: 10 * time.Second,
	TLSClientConfig: &tls.Config{
		MinVersion: tls.VersionTLS12,
	},
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// ChatRequest is the body of POST <base>/chat.
type ChatRequest struct {
	Message string       `json:"message"`
	Context []model.Turn `json:"context"`
}

// chatResponse is decoded leniently: message and error are kept raw so a
// wrong type is reported as malformed rather than silently coerced.
type chatResponse struct {
	ID      string          `json:"id"`
	Status  string          `json:"status"`
	Message json.RawMessage `json:"message"`
	Metrics json.RawMessage `json:"metrics"`
	Error   json.RawMessage `json:"error"`
}

// Reply is a successful completion.
type Reply struct {
	ID      string
	Text    string
	Metrics model.Metrics

	// RawMetrics is the metrics fragment as received.
	RawMetrics json.RawMessage
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to a /chat completion endpoint.
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	limiter     *rate.Limiter
	treat500    bool
	defaultWait int
}

// NewClient creates a client for baseURL. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{
			Transport: sharedTransport,
			Timeout:   DefaultTimeout,
		},
		treat500:    true,
		defaultWait: DefaultWaitSeconds,
	}
}

// WithAPIKey sends a bearer token on every request.
func (c *Client) WithAPIKey(key string) *Client {
	c.apiKey = strings.TrimSpace(key)
	return c
}

// WithTimeout sets the request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

// WithHTTPClient replaces the HTTP client. Used by tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// WithRequestsPerMinute paces outgoing requests. Zero disables pacing.
func (c *Client) WithRequestsPerMinute(rpm int) *Client {
	if rpm <= 0 {
		c.limiter = nil
		return c
	}
	c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
	return c
}

// WithTreat500AsRateLimit controls whether HTTP 500 is classified as a rate
// limit. Defaults to true.
func (c *Client) WithTreat500AsRateLimit(enabled bool) *Client {
	c.treat500 = enabled
	return c
}

// WithDefaultWait sets the cooldown used when no wait hint is available.
func (c *Client) WithDefaultWait(seconds int) *Client {
	if seconds > 0 {
		c.defaultWait = seconds
	}
	return c
}

// BaseURL returns the configured endpoint base.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// CLOUD: Request/Response Logging (without sensitive data)
// =============================================================================

// logRequest logs an API request without exposing sensitive data.
// CLOUD: Secure logging - does not log headers (may contain auth) or body (may contain sensitive data).
func logRequest(ctx context.Context, req *http.Request, turns int) {
	telemetry.LoggerFromContext(ctx).Debug("upstream request",
		"method", req.Method, "path", req.URL.Path, "context_turns", turns)
}

// logResponse logs an API response with duration.
// CLOUD: Secure logging - only logs status code and duration, no response body.
func logResponse(ctx context.Context, status int, duration time.Duration) {
	telemetry.LoggerFromContext(ctx).Debug("upstream response",
		"status", status, "duration", duration)
}

// =============================================================================
// CHAT
// =============================================================================

// Chat sends one message with its context and classifies the outcome.
// Every failure is an *Error; match kinds with errors.Is against the
// package sentinels.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*Reply, error) {
	if req.Context == nil {
		req.Context = []model.Turn{}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &Error{Kind: KindNetworkFailure, Message: "request pacing", Err: err}
		}
	}

	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, &Error{Kind: KindNetworkFailure, Message: "failed to marshal request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, &Error{Kind: KindNetworkFailure, Message: "failed to create request", Err: err}
	}
	c.setHeaders(httpReq)

	logRequest(ctx, httpReq, len(req.Context))
	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)

	// SECURITY: Clear Authorization header immediately after request to prevent logging
	httpReq.Header.Del("Authorization")

	if err != nil {
		return nil, &Error{Kind: KindNetworkFailure, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()
	logResponse(ctx, resp.StatusCode, time.Since(start))

	// SECURITY: Read response with size limit to prevent memory exhaustion
	body, err := readResponse(resp)
	if err != nil {
		return nil, &Error{Kind: KindNetworkFailure, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.handleErrorResponse(resp.StatusCode, resp.Header.Get("Retry-After"), body)
	}
	return c.handleSuccessResponse(resp.StatusCode, resp.Header.Get("Retry-After"), body)
}

// setHeaders sets the headers for completion requests.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// readResponse reads the response body with size limits to prevent memory exhaustion.
//
// SECURITY: Response size limit prevents memory exhaustion attacks.
func readResponse(resp *http.Response) ([]byte, error) {
	// Read one byte past the limit so an exactly-full body is distinguishable.
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// handleErrorResponse classifies a non-2xx response.
func (c *Client) handleErrorResponse(status int, retryAfter string, body []byte) error {
	text := errorText(body)
	if status == http.StatusTooManyRequests ||
		(status == http.StatusInternalServerError && c.treat500) ||
		IsRateLimitText(text) {
		return &Error{
			Kind:       KindRateLimited,
			Status:     status,
			Message:    text,
			RetryAfter: WaitSeconds(text, retryAfter, c.defaultWait),
		}
	}
	return &Error{Kind: KindUpstreamError, Status: status, Message: text}
}

// handleSuccessResponse decodes a 2xx body. A 2xx can still carry an error
// payload, which is classified like a failed status.
func (c *Client) handleSuccessResponse(status int, retryAfter string, body []byte) (*Reply, error) {
	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, &Error{Kind: KindMalformedResponse, Status: status, Err: err}
	}

	if hasValue(cr.Error) {
		text := rawText(cr.Error)
		if IsRateLimitText(text) {
			return nil, &Error{
				Kind:       KindRateLimited,
				Status:     status,
				Message:    text,
				RetryAfter: WaitSeconds(text, retryAfter, c.defaultWait),
			}
		}
		return nil, &Error{Kind: KindUpstreamError, Status: status, Message: text}
	}

	if !hasValue(cr.Message) {
		return nil, &Error{Kind: KindMalformedResponse, Status: status, Message: "missing message field"}
	}
	var text string
	if err := json.Unmarshal(cr.Message, &text); err != nil {
		return nil, &Error{Kind: KindMalformedResponse, Status: status, Message: "message is not a string"}
	}

	if cr.Status != "" && !strings.EqualFold(cr.Status, "success") {
		return nil, &Error{Kind: KindUpstreamError, Status: status, Message: "status " + cr.Status}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &Error{Kind: KindEmptyCompletion, Status: status}
	}

	return &Reply{
		ID:         cr.ID,
		Text:       text,
		Metrics:    model.ParseMetrics(cr.Metrics),
		RawMetrics: cr.Metrics,
	}, nil
}

// =============================================================================
// HEALTH
// =============================================================================

// Health calls GET <base>/health.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: KindNetworkFailure, Message: "health check failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return &Error{Kind: KindNetworkFailure, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return &Error{Kind: KindUpstreamError, Status: resp.StatusCode, Message: errorText(body)}
	}

	var health struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &health); err != nil {
		return &Error{Kind: KindMalformedResponse, Status: resp.StatusCode, Err: err}
	}
	if health.Status != "ok" {
		return &Error{Kind: KindUpstreamError, Status: resp.StatusCode, Message: "status " + health.Status}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// errorText extracts a human-readable message from an error body. It accepts
// {"error": "..."}, {"error": {"message": "..."}}, {"detail": "..."} and
// falls back to the raw body.
func errorText(body []byte) string {
	var payload struct {
		Error  json.RawMessage `json:"error"`
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if hasValue(payload.Error) {
			return rawText(payload.Error)
		}
		if hasValue(payload.Detail) {
			return rawText(payload.Detail)
		}
	}
	return util.TruncateRunes(strings.TrimSpace(string(body)), maxErrorTextRunes)
}

// rawText renders a JSON value as text: strings unquoted, objects by their
// "message" field, anything else verbatim.
func rawText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return strings.TrimSpace(string(raw))
}

func hasValue(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// IsRetryable reports whether err is recovered by waiting (rate limit).
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
