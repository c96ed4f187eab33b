// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// client.go - HTTP client for the issuing authority's session endpoints.
//
// SECURITY: Secure logging (no tokens, no bodies), bounded response reads,
// retry with exponential backoff for idempotent calls only.
package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"
)

// Configuration constants for the issuing authority API.
const (
	// DefaultAuthorityURL is the development default; production deployments
	// set api.base_url in config.toml.
	DefaultAuthorityURL = "http://127.0.0.1:8790"

	// DefaultTimeout bounds every request. Logout ignores the resulting
	// error but still honors the bound so the caller is never stuck.
	DefaultTimeout = 15 * time.Second

	// DefaultMaxRetries is the retry budget for idempotent requests.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay is the maximum delay for exponential backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 2 * 1024 * 1024 // 2MB

	// requestsPerSecond / requestBurst bound outbound call rate so a
	// misbehaving view loop cannot hammer the authority.
	requestsPerSecond = 5
	requestBurst      = 10
)

// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
// Shared HTTP client for all authority requests.
// SECURITY: TLS 1.2 minimum; verification is never disabled.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
	Timeout: DefaultTimeout,
}

// =============================================================================
// ERRORS
// =============================================================================

// Error taxonomy for authority calls. Callers match with errors.Is; the
// concrete HTTP detail travels alongside as a wrapped *APIError.
var (
	// ErrNotConfigured indicates no authority base URL is set.
	ErrNotConfigured = errors.New("issuing authority URL not configured")

	// ErrInvalidCredentials indicates the username/password pair was rejected.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountLocked indicates the account is locked out after repeated
	// failed attempts. Terminal for this attempt; retrying will not help.
	ErrAccountLocked = errors.New("account locked")

	// ErrSessionExpired indicates the bearer token is no longer accepted.
	ErrSessionExpired = errors.New("session expired")

	// ErrForbidden indicates the operation was refused, e.g. revoking the
	// session the client itself is running under.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates the referenced session no longer exists.
	ErrNotFound = errors.New("session not found")

	// ErrNetwork indicates a transient failure (transport error, timeout,
	// throttling or a 5xx). Safe for the caller to retry.
	ErrNetwork = errors.New("network error")
)

// APIError carries the authority's error envelope for diagnostics.
type APIError struct {
	Code    string
	Message string
	Status  int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("authority error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("authority error (HTTP %d): %s", e.Status, e.Message)
}

// IsTransient reports whether err is worth retrying (wraps ErrNetwork).
func IsTransient(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the issuing authority. It holds no session state of its
// own: tokens are passed in per call by the lifecycle manager.
type Client struct {
	baseURL    string
	maxRetries int
	timeout    time.Duration
	clientID   string
	device     string
	limiter    *rate.Limiter
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a client for the given authority base URL. An empty
// baseURL falls back to DefaultAuthorityURL.
func NewClient(baseURL string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultAuthorityURL
	}
	return &Client{
		baseURL:    strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		maxRetries: DefaultMaxRetries,
		timeout:    DefaultTimeout,
		clientID:   uuid.NewString(),
		device:     DeviceDescriptor(),
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
		httpClient: sharedHTTPClient,
		log:        zerolog.Nop(),
	}
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.timeout = timeout
	}
	return c
}

// WithMaxRetries sets the retry budget for idempotent requests.
func (c *Client) WithMaxRetries(maxRetries int) *Client {
	if maxRetries >= 0 {
		c.maxRetries = maxRetries
	}
	return c
}

// WithLogger sets the structured logger. Defaults to a no-op logger so the
// client stays silent while the TUI owns the terminal.
func (c *Client) WithLogger(log zerolog.Logger) *Client {
	c.log = log
	return c
}

// WithHTTPClient overrides the underlying HTTP client (tests).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// BaseURL returns the configured authority base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// ClientID returns the per-process client instance id sent with requests.
func (c *Client) ClientID() string { return c.clientID }

// DeviceDescriptor builds the free-text agent string the authority records
// against new sessions ("fleetwatch/0.3.0 (host; linux/amd64)").
func DeviceDescriptor() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown-host"
	}
	return fmt.Sprintf("fleetwatch/%s (%s; %s/%s)", Version, host, runtime.GOOS, runtime.GOARCH)
}

// Version is the client version reported in the User-Agent.
// Overridden at build time via -ldflags.
var Version = "0.3.0"

// =============================================================================
// OPERATIONS
// =============================================================================

// Login authenticates username/password against the authority.
//
// The entered username is NFC-normalized before transmission so visually
// identical input composes to the same byte sequence across terminals.
// Failure mapping: 401 -> ErrInvalidCredentials, 423 -> ErrAccountLocked,
// transport/5xx -> ErrNetwork. Login is never retried internally; the
// caller owns the retry affordance.
func (c *Client) Login(ctx context.Context, username, password string, remember bool) (*LoginResponse, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}
	body := LoginRequest{
		Username: norm.NFC.String(strings.TrimSpace(username)),
		Password: password,
		Remember: remember,
	}
	var out LoginResponse
	err := c.do(ctx, requestSpec{
		method: http.MethodPost,
		path:   "/login",
		body:   body,
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	if out.Token == "" || out.ExpiresIn <= 0 {
		return nil, fmt.Errorf("%w: malformed login response", ErrNetwork)
	}
	return &out, nil
}

// Logout asks the authority to invalidate the bearer session. Best-effort:
// the caller clears local state regardless of the outcome, so the only
// contract here is that the call returns within the timeout.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, requestSpec{
		method: http.MethodPost,
		path:   "/logout",
		bearer: token,
	})
}

// RefreshSession extends the bearer session's expiry.
//
// Idempotent server-side, so transient failures are retried internally with
// backoff. 401 -> ErrSessionExpired (the session is gone; the lifecycle
// manager translates that into a forced logout).
func (c *Client) RefreshSession(ctx context.Context, token string) (*RefreshResponse, error) {
	var out RefreshResponse
	err := c.do(ctx, requestSpec{
		method:  http.MethodPost,
		path:    "/refresh-session",
		bearer:  token,
		out:     &out,
		retries: c.maxRetries,
	})
	if err != nil {
		return nil, err
	}
	if out.ExpiresIn <= 0 {
		return nil, fmt.Errorf("%w: malformed refresh response", ErrNetwork)
	}
	return &out, nil
}

// ListSessions enumerates every session belonging to the principal.
// Read-only and re-fetchable on demand, so transient failures retry.
func (c *Client) ListSessions(ctx context.Context, token, principalID string) ([]Session, error) {
	if strings.TrimSpace(principalID) == "" {
		return nil, fmt.Errorf("%w: empty principal id", ErrNotFound)
	}
	var out sessionsResponse
	err := c.do(ctx, requestSpec{
		method:  http.MethodGet,
		path:    "/principals/" + url.PathEscape(principalID) + "/sessions",
		bearer:  token,
		out:     &out,
		retries: c.maxRetries,
	})
	if err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

// RevokeSession revokes the session identified by target. The caller (the
// directory) is responsible for never passing the current token here; the
// authority independently enforces the same rule with 403.
func (c *Client) RevokeSession(ctx context.Context, token, target string) error {
	if strings.TrimSpace(target) == "" {
		return fmt.Errorf("%w: empty session token", ErrNotFound)
	}
	return c.do(ctx, requestSpec{
		method: http.MethodDelete,
		path:   "/sessions/" + url.PathEscape(target),
		bearer: token,
	})
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// requestSpec describes one authority call.
type requestSpec struct {
	method  string
	path    string
	bearer  string
	body    interface{}
	out     interface{}
	retries int // additional attempts for idempotent requests (0 = single shot)
}

// do performs the request with rate limiting, bounded reads and secure
// logging. Retries apply only when spec.retries > 0 and the failure is
// transient; context cancellation always wins.
func (c *Client) do(ctx context.Context, spec requestSpec) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	var bodyBytes []byte
	if spec.body != nil {
		b, err := json.Marshal(spec.body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyBytes = b
	}

	var lastErr error
	for attempt := 0; attempt <= spec.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrNetwork, ctx.Err())
			case <-time.After(calculateBackoff(attempt - 1)):
			}
		}

		err := c.doOnce(ctx, spec, bodyBytes)
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsTransient(err) || ctx.Err() != nil {
			return err
		}
	}
	return lastErr
}

// doOnce performs a single attempt.
// SECURITY: The Authorization header is cleared immediately after the
// round-trip so request dumps can never leak the token.
func (c *Client) doOnce(ctx context.Context, spec requestSpec, bodyBytes []byte) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if bodyBytes != nil {
		reader = bytes.NewReader(bodyBytes)
	}
	req, err := http.NewRequestWithContext(reqCtx, spec.method, c.baseURL+spec.path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	c.setHeaders(req, spec.bearer, requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	req.Header.Del("Authorization")

	if err != nil {
		c.log.Warn().
			Str("request_id", requestID).
			Str("method", spec.method).
			Str("path", spec.path).
			Dur("duration", duration).
			Err(err).
			Msg("authority request failed")
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("%w: %v", ErrNetwork, err)
		}
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	// Secure logging: status and timing only, never headers or bodies.
	c.log.Debug().
		Str("request_id", requestID).
		Str("method", spec.method).
		Str("path", spec.path).
		Int("status", resp.StatusCode).
		Dur("duration", duration).
		Msg("authority request")

	body, err := readResponse(resp)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return mapStatusError(spec, resp.StatusCode, body)
	}

	if spec.out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, spec.out); err != nil {
			return fmt.Errorf("%w: failed to parse response: %v", ErrNetwork, err)
		}
	}
	return nil
}

// setHeaders sets the required headers for authority requests.
func (c *Client) setHeaders(req *http.Request, bearer, requestID string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.device)
	req.Header.Set("X-Client-Id", c.clientID)
	req.Header.Set("X-Request-Id", requestID)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
}

// readResponse reads the response body with a size limit.
// SECURITY: Response size limit prevents memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// mapStatusError converts an HTTP error response into the taxonomy.
//
// 401 is endpoint-sensitive: on /login it means the credentials were
// rejected; everywhere else it means the bearer session is gone.
func mapStatusError(spec requestSpec, statusCode int, body []byte) error {
	detail := &APIError{Status: statusCode, Message: strings.TrimSpace(string(body))}
	var envelope apiErrorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		detail.Code = envelope.Error.Code
		detail.Message = envelope.Error.Message
	}

	switch statusCode {
	case http.StatusUnauthorized:
		if spec.path == "/login" {
			return fmt.Errorf("%w: %s", ErrInvalidCredentials, detail.Message)
		}
		return fmt.Errorf("%w: %s", ErrSessionExpired, detail.Message)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrForbidden, detail.Message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, detail.Message)
	case http.StatusLocked:
		return fmt.Errorf("%w: %s", ErrAccountLocked, detail.Message)
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrNetwork, detail.Error())
	default:
		if statusCode >= 500 {
			return fmt.Errorf("%w: %s", ErrNetwork, detail.Error())
		}
		return detail
	}
}

// calculateBackoff returns the delay before the next retry attempt.
func calculateBackoff(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(attempt))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}
