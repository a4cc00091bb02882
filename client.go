package klistra

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/klistra/client-go/internal/api"
)

// BlobStore stores encrypted file envelopes. It only ever sees ciphertext
// and generated names.
type BlobStore interface {
	// Put stores data and returns a URL from which Get can fetch it.
	Put(ctx context.Context, name string, data []byte) (string, error)
	// Get fetches the blob stored at url.
	Get(ctx context.Context, url string) ([]byte, error)
}

// serviceBlobStore stores blobs through the paste service's file endpoints.
type serviceBlobStore struct {
	api *api.Client
}

func (s serviceBlobStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	return s.api.UploadBlob(ctx, name, data)
}

func (s serviceBlobStore) Get(ctx context.Context, url string) ([]byte, error) {
	return s.api.DownloadBlob(ctx, url)
}

// ServerInfo contains the service limits.
type ServerInfo struct {
	MinExpiry     time.Duration
	MaxExpiry     time.Duration
	DefaultExpiry time.Duration
	MaxFileSize   int64
	Algs          string
}

// PasteStatus describes a paste without its content.
type PasteStatus struct {
	ID        string
	Protected bool
	ExpiresAt time.Time
}

// CreatedPaste is the result of a successful CreatePaste.
type CreatedPaste struct {
	ID        string
	URL       string
	ExpiresAt time.Time
	Protected bool
	Files     []FileInfo
}

// Client is the Klistra client for creating and reading encrypted pastes.
// It is safe for concurrent use.
type Client struct {
	apiClient  *api.Client
	blobs      BlobStore
	logger     zerolog.Logger
	maxUploads int
	downloads  *semaphore.Weighted

	mu     sync.RWMutex
	closed bool
}

// buildAPIClient creates and configures an API client from the given config.
func buildAPIClient(cfg *clientConfig) (*api.Client, error) {
	apiOpts := []api.Option{
		api.WithLogger(&cfg.logger),
	}
	if cfg.timeout > 0 {
		apiOpts = append(apiOpts, api.WithTimeout(cfg.timeout))
	}
	if cfg.retriesSet {
		apiOpts = append(apiOpts, api.WithRetries(cfg.retries))
	}
	if len(cfg.retryOn) > 0 {
		apiOpts = append(apiOpts, api.WithRetryOn(cfg.retryOn))
	}
	if cfg.httpClient != nil {
		apiOpts = append(apiOpts, api.WithHTTPClient(cfg.httpClient))
	}

	return api.New(cfg.baseURL, apiOpts...)
}

// New creates a new Klistra client. No network request is made.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		baseURL:      defaultBaseURL,
		timeout:      defaultTimeout,
		logger:       zerolog.Nop(),
		maxUploads:   DefaultMaxConcurrentUploads,
		maxDownloads: DefaultMaxConcurrentDownloads,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	apiClient, err := buildAPIClient(cfg)
	if err != nil {
		return nil, err
	}

	blobs := cfg.blobs
	if blobs == nil {
		blobs = serviceBlobStore{api: apiClient}
	}

	return &Client{
		apiClient:  apiClient,
		blobs:      blobs,
		logger:     cfg.logger.With().Str("component", "klistra").Logger(),
		maxUploads: cfg.maxUploads,
		downloads:  semaphore.NewWeighted(int64(cfg.maxDownloads)),
	}, nil
}

// checkClosed returns ErrClientClosed if the client has been closed.
func (c *Client) checkClosed() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}
	return nil
}

// BaseURL returns the service base URL.
func (c *Client) BaseURL() string {
	return c.apiClient.BaseURL()
}

// PasteURL returns the shareable link for a paste id.
func (c *Client) PasteURL(id string) string {
	return c.apiClient.BaseURL() + "/" + id
}

// CreatePaste encrypts draft and stores it. Exactly one key is resolved for
// the paste; text and files are all sealed with it. Files are sealed and
// uploaded concurrently and the paste record is submitted only after every
// upload succeeded. If any step fails or ctx is canceled first, no paste
// record is created.
func (c *Client) CreatePaste(ctx context.Context, draft Draft, opts ...CreateOption) (*CreatedPaste, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	cfg := &createConfig{expiry: DefaultExpiry}
	for _, opt := range opts {
		opt(cfg)
	}

	if draft.Text == "" && len(draft.Files) == 0 {
		return nil, ErrEmptyPaste
	}
	if err := draft.validate(cfg); err != nil {
		return nil, err
	}

	km, err := provisionKeys(cfg.password)
	if err != nil {
		return nil, err
	}

	req, err := c.sealDraft(ctx, &draft, km, cfg)
	if err != nil {
		return nil, err
	}

	// Barrier passed; a cancellation here still must not submit.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := c.apiClient.CreatePaste(ctx, req)
	if err != nil {
		return nil, wrapError(err)
	}

	expiresAt := resp.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = unixTime(resp.TimeoutUnix)
	}

	created := &CreatedPaste{
		ID:        resp.ID,
		URL:       c.PasteURL(resp.ID),
		ExpiresAt: expiresAt,
		Protected: km.protected,
	}
	for _, f := range req.Files {
		created.Files = append(created.Files, FileInfo{Name: f.Name, Size: f.Size})
	}

	c.logger.Debug().
		Str("paste_id", created.ID).
		Bool("protected", created.Protected).
		Int("files", len(created.Files)).
		Msg("paste created")

	return created, nil
}

// OpenPaste fetches a paste by id without a credential. Unprotected pastes
// are ready to decrypt; protected pastes are returned locked and must be
// unlocked with [Paste.Unlock].
func (c *Client) OpenPaste(ctx context.Context, id string) (*Paste, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	resp, err := c.apiClient.GetPaste(ctx, id, "")
	if err != nil {
		return nil, wrapError(err)
	}
	return newPaste(c, resp)
}

// ReadPaste opens a paste and, if it is protected, unlocks it with password.
// A protected paste read with an empty password returns ErrPasteLocked.
func (c *Client) ReadPaste(ctx context.Context, id, password string) (*Paste, error) {
	p, err := c.OpenPaste(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Locked() {
		return p, nil
	}
	if password == "" {
		return nil, ErrPasteLocked
	}
	if err := p.Unlock(ctx, password); err != nil {
		return nil, err
	}
	return p, nil
}

// PasteStatus reports whether a paste exists and is protected.
func (c *Client) PasteStatus(ctx context.Context, id string) (*PasteStatus, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	resp, err := c.apiClient.GetPasteStatus(ctx, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &PasteStatus{
		ID:        resp.ID,
		Protected: resp.Protected,
		ExpiresAt: unixTime(resp.TimeoutUnix),
	}, nil
}

// ServerInfo fetches the service limits.
func (c *Client) ServerInfo(ctx context.Context) (*ServerInfo, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	info, err := c.apiClient.GetServerInfo(ctx)
	if err != nil {
		return nil, wrapError(err)
	}
	return &ServerInfo{
		MinExpiry:     time.Duration(info.MinExpiry) * time.Second,
		MaxExpiry:     time.Duration(info.MaxExpiry) * time.Second,
		DefaultExpiry: time.Duration(info.DefaultExpiry) * time.Second,
		MaxFileSize:   info.MaxFileSize,
		Algs:          info.Algs,
	}, nil
}

// Close marks the client closed. Later calls return ErrClientClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return nil
}

func unixTime(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func (p *CreatedPaste) String() string {
	return fmt.Sprintf("%s (expires %s)", p.URL, p.ExpiresAt.Format(time.RFC3339))
}
