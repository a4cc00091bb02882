package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/klistra/client-go/internal/apierrors"
)

// GetServerInfo retrieves service limits and the ciphersuite identifier.
func (c *Client) GetServerInfo(ctx context.Context) (*ServerInfo, error) {
	var result ServerInfo
	if err := c.Do(ctx, http.MethodGet, "/api/server-info", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreatePaste submits a sealed paste record.
func (c *Client) CreatePaste(ctx context.Context, req *CreatePasteRequest) (*CreatePasteResponse, error) {
	var result CreatePasteResponse
	if err := c.Do(ctx, http.MethodPost, "/api/pastes", req, &result); err != nil {
		return nil, err
	}
	if result.ID == "" {
		return nil, fmt.Errorf("create paste: response missing id")
	}
	return &result, nil
}

// GetPaste fetches a paste record. verifier is the base64url access verifier;
// pass "" to fetch metadata only.
func (c *Client) GetPaste(ctx context.Context, id, verifier string) (*PasteResponse, error) {
	path := fmt.Sprintf("/api/pastes/%s", url.PathEscape(id))

	var header http.Header
	if verifier != "" {
		header = http.Header{HeaderVerifier: []string{verifier}}
	}

	var result PasteResponse
	if err := c.DoWithHeaders(ctx, http.MethodGet, path, header, nil, &result); err != nil {
		return nil, apierrors.WithResourceType(err, apierrors.ResourcePaste)
	}
	return &result, nil
}

// GetPasteStatus reports whether a paste exists and is protected, without
// returning content.
func (c *Client) GetPasteStatus(ctx context.Context, id string) (*PasteStatus, error) {
	path := fmt.Sprintf("/api/pastes/%s/status", url.PathEscape(id))

	var result PasteStatus
	if err := c.Do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, apierrors.WithResourceType(err, apierrors.ResourcePaste)
	}
	return &result, nil
}

// UploadBlob stores an opaque encrypted blob and returns its retrieval URL.
func (c *Client) UploadBlob(ctx context.Context, name string, data []byte) (string, error) {
	path := fmt.Sprintf("%s/api/files/%s", c.baseURL, url.PathEscape(name))

	body, err := c.DoRaw(ctx, http.MethodPost, path, data)
	if err != nil {
		return "", apierrors.WithResourceType(err, apierrors.ResourceFile)
	}

	var result UploadResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if result.URL == "" {
		return "", fmt.Errorf("upload %s: response missing url", name)
	}
	return c.resolve(result.URL), nil
}

// DownloadBlob fetches a blob by the URL returned from UploadBlob. Relative
// URLs are resolved against the base URL.
func (c *Client) DownloadBlob(ctx context.Context, blobURL string) ([]byte, error) {
	body, err := c.DoRaw(ctx, http.MethodGet, c.resolve(blobURL), nil)
	if err != nil {
		return nil, apierrors.WithResourceType(err, apierrors.ResourceFile)
	}
	return body, nil
}

func (c *Client) resolve(u string) string {
	if strings.HasPrefix(u, "/") {
		return c.baseURL + u
	}
	return u
}
