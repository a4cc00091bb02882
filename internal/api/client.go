package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/klistra/client-go/internal/apierrors"
)

// Default configuration values.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
)

// defaultRetryOn lists the HTTP status codes retried when Config.RetryOn is empty.
var defaultRetryOn = []int{408, 429, 500, 502, 503, 504}

// HeaderVerifier carries the access verifier on read requests.
const HeaderVerifier = "X-Paste-Verifier"

// HeaderRequestID carries a per-call request id.
const HeaderRequestID = "X-Request-ID"

// Config configures the API client.
type Config struct {
	// BaseURL is the paste service root, e.g. "https://klistra.nu".
	BaseURL string
	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// RetryDelay is the base delay of the exponential backoff.
	RetryDelay time.Duration
	// RetryOn lists HTTP status codes that trigger a retry.
	RetryOn []int
	// Timeout is the per-attempt HTTP timeout used when HTTPClient is nil.
	Timeout time.Duration
	// Logger receives request diagnostics. Defaults to a no-op logger.
	Logger *zerolog.Logger
}

// Client is the HTTP API client. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
	retryOn    map[int]bool
	logger     zerolog.Logger
}

// NewClient creates a new API client from cfg.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: cfg.HTTPClient,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     zerolog.Nop(),
	}

	if c.httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.httpClient = &http.Client{Timeout: timeout}
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	if c.retryDelay <= 0 {
		c.retryDelay = DefaultRetryDelay
	}

	retryOn := cfg.RetryOn
	if len(retryOn) == 0 {
		retryOn = defaultRetryOn
	}
	c.retryOn = make(map[int]bool, len(retryOn))
	for _, code := range retryOn {
		c.retryOn[code] = true
	}

	if cfg.Logger != nil {
		c.logger = cfg.Logger.With().Str("component", "api").Logger()
	}

	return c, nil
}

// Option configures the API client.
type Option func(*Config)

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithRetries sets the number of retries.
func WithRetries(retries int) Option {
	return func(c *Config) {
		c.MaxRetries = retries
	}
}

// WithRetryDelay sets the base backoff delay.
func WithRetryDelay(delay time.Duration) Option {
	return func(c *Config) {
		c.RetryDelay = delay
	}
}

// WithRetryOn sets the HTTP status codes that trigger a retry.
func WithRetryOn(statusCodes []int) Option {
	return func(c *Config) {
		c.RetryOn = statusCodes
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// New creates a new API client for baseURL using functional options.
func New(baseURL string, opts ...Option) (*Client, error) {
	cfg := Config{
		BaseURL:    baseURL,
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
		Timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewClient(cfg)
}

// BaseURL returns the service root URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HTTPClient returns the underlying HTTP client.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// SetHTTPClient sets a custom HTTP client.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

func (c *Client) isRetryable(statusCode int) bool {
	return c.retryOn[statusCode]
}

func (c *Client) retryConfig() *RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxRetries = c.maxRetries
	cfg.BaseDelay = c.retryDelay
	cfg.RetryableOn = c.isRetryable
	return cfg
}

// Do sends a JSON request to path and decodes a JSON response into result.
// body and result may be nil.
func (c *Client) Do(ctx context.Context, method, path string, body, result interface{}) error {
	return c.DoWithHeaders(ctx, method, path, nil, body, result)
}

// DoWithHeaders is Do with extra request headers.
func (c *Client) DoWithHeaders(ctx context.Context, method, path string, header http.Header, body, result interface{}) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = data
	}

	h := header.Clone()
	if h == nil {
		h = make(http.Header)
	}
	h.Set("Accept", "application/json")
	if payload != nil {
		h.Set("Content-Type", "application/json")
	}

	respBody, err := c.send(ctx, method, c.baseURL+path, h, payload)
	if err != nil {
		return err
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// DoRaw sends a binary body to an absolute URL and returns the raw response body.
func (c *Client) DoRaw(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	h := make(http.Header)
	h.Set("Accept", "application/octet-stream, application/json")
	if body != nil {
		h.Set("Content-Type", "application/octet-stream")
	}
	return c.send(ctx, method, url, h, body)
}

// send performs the request with retry and returns the body of a 2xx response.
// Non-2xx responses become *apierrors.APIError; transport failures become
// *apierrors.NetworkError.
func (c *Client) send(ctx context.Context, method, url string, header http.Header, body []byte) ([]byte, error) {
	retry := c.retryConfig()
	requestID := uuid.NewString()

	for attempt := 0; ; attempt++ {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		for k, v := range header {
			req.Header[k] = v
		}
		req.Header.Set(HeaderRequestID, requestID)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Debug().Err(err).Str("method", method).Int("attempt", attempt).Msg("request failed")
			if attempt >= retry.MaxRetries {
				return nil, &apierrors.NetworkError{Err: err, URL: url, Attempt: attempt + 1}
			}
			if werr := retry.Wait(ctx, attempt); werr != nil {
				return nil, werr
			}
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if readErr != nil {
				return nil, &apierrors.NetworkError{Err: readErr, URL: url, Attempt: attempt + 1}
			}
			return respBody, nil
		}

		if retry.ShouldRetry(attempt, resp.StatusCode) {
			c.logger.Debug().
				Str("method", method).
				Int("status", resp.StatusCode).
				Int("attempt", attempt).
				Msg("retrying request")
			wait := retry.Delay(attempt)
			if ra := retryAfter(resp.Header); ra > 0 {
				wait = ra
			}
			if werr := retry.WaitFor(ctx, wait); werr != nil {
				return nil, werr
			}
			continue
		}

		return nil, parseErrorResponse(resp.StatusCode, respBody, requestID)
	}
}

func parseErrorResponse(statusCode int, body []byte, requestID string) error {
	var errResp struct {
		Error     string `json:"error"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	}

	apiErr := &apierrors.APIError{StatusCode: statusCode, RequestID: requestID}
	if err := json.Unmarshal(body, &errResp); err == nil && (errResp.Error != "" || errResp.Message != "") {
		apiErr.Message = errResp.Error
		if apiErr.Message == "" {
			apiErr.Message = errResp.Message
		}
		if errResp.RequestID != "" {
			apiErr.RequestID = errResp.RequestID
		}
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(body))
	return apiErr
}

// IsNetworkError reports whether err originated in the transport.
func IsNetworkError(err error) bool {
	var netErr *apierrors.NetworkError
	return errors.As(err, &netErr)
}
