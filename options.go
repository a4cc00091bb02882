package klistra

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://klistra.nu"
	defaultTimeout = 30 * time.Second

	// DefaultMaxConcurrentUploads bounds simultaneous file uploads per paste.
	DefaultMaxConcurrentUploads = 4
	// DefaultMaxConcurrentDownloads bounds simultaneous file downloads per client.
	DefaultMaxConcurrentDownloads = 4
)

// Expiry limits accepted by the service.
const (
	MinExpiry     = 60 * time.Second     // 1 minute
	MaxExpiry     = 604800 * time.Second // 7 days
	DefaultExpiry = time.Hour
)

// clientConfig holds configuration for the client.
type clientConfig struct {
	baseURL      string
	httpClient   *http.Client
	timeout      time.Duration
	retries      int
	retriesSet   bool
	retryOn      []int
	logger       zerolog.Logger
	blobs        BlobStore
	maxUploads   int
	maxDownloads int
}

// createConfig holds configuration for paste creation.
type createConfig struct {
	expiry     time.Duration
	password   string
	language   string
	onProgress func(UploadProgress)
}

// Option configures the client.
type Option func(*clientConfig)

// CreateOption configures paste creation.
type CreateOption func(*createConfig)

// WithBaseURL sets the service base URL.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithRetries sets the number of retries for API calls. Zero disables retries.
func WithRetries(count int) Option {
	return func(c *clientConfig) {
		c.retries = count
		c.retriesSet = true
	}
}

// WithRetryOn sets the HTTP status codes that trigger a retry.
// Default: [408, 429, 500, 502, 503, 504]
func WithRetryOn(statusCodes []int) Option {
	return func(c *clientConfig) {
		c.retryOn = statusCodes
	}
}

// WithLogger sets the diagnostics logger. Passwords, keys and verifiers are
// never logged. Default: disabled.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithBlobStore replaces the service's file endpoints as the store for
// encrypted file blobs.
func WithBlobStore(store BlobStore) Option {
	return func(c *clientConfig) {
		c.blobs = store
	}
}

// WithMaxConcurrentUploads bounds simultaneous file seal-and-upload tasks
// within one CreatePaste call. Values below 1 are ignored.
// Default: 4
func WithMaxConcurrentUploads(n int) Option {
	return func(c *clientConfig) {
		if n > 0 {
			c.maxUploads = n
		}
	}
}

// WithMaxConcurrentDownloads bounds simultaneous file downloads across the
// client. Values below 1 are ignored.
// Default: 4
func WithMaxConcurrentDownloads(n int) Option {
	return func(c *clientConfig) {
		if n > 0 {
			c.maxDownloads = n
		}
	}
}

// WithExpiry sets how long the paste lives. It is truncated to whole seconds
// and must lie within [MinExpiry, MaxExpiry].
// Default: 1 hour
func WithExpiry(d time.Duration) CreateOption {
	return func(c *createConfig) {
		c.expiry = d
	}
}

// WithPassword protects the paste. The encryption key is derived from the
// password and only an access verifier is sent to the service.
func WithPassword(password string) CreateOption {
	return func(c *createConfig) {
		c.password = password
	}
}

// WithLanguage sets the syntax highlighting hint. It is stored unencrypted.
func WithLanguage(tag string) CreateOption {
	return func(c *createConfig) {
		c.language = tag
	}
}

// WithUploadProgress registers a callback for per-file progress. Calls are
// serialized but events from different files interleave in no fixed order.
func WithUploadProgress(fn func(UploadProgress)) CreateOption {
	return func(c *createConfig) {
		c.onProgress = fn
	}
}
