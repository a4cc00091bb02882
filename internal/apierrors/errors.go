// Package apierrors provides shared error types for the Klistra client and
// the reference paste service.
package apierrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrPasteNotFound is returned when no live paste has the requested id.
	ErrPasteNotFound = errors.New("paste not found")

	// ErrFileNotFound is returned when a file blob does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrPasteExpired is returned when the paste existed but its expiry has passed.
	ErrPasteExpired = errors.New("paste has expired")

	// ErrCredentialRejected is returned when the server rejects the access verifier.
	ErrCredentialRejected = errors.New("incorrect password")

	// ErrRateLimited is returned when the API rate limit is exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInvalidRequest is returned when the server rejects a malformed request.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrPayloadTooLarge is returned when an upload exceeds the server limit.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrFileExists is returned when an upload names a blob that already exists.
	ErrFileExists = errors.New("file already exists")
)

// ResourceType indicates which type of resource an error relates to.
type ResourceType string

const (
	// ResourceUnknown indicates the resource type is not specified.
	ResourceUnknown ResourceType = ""
	// ResourcePaste indicates the error relates to a paste record.
	ResourcePaste ResourceType = "paste"
	// ResourceFile indicates the error relates to a file blob.
	ResourceFile ResourceType = "file"
)

// APIError represents an HTTP error from the paste service.
type APIError struct {
	StatusCode   int
	Message      string
	RequestID    string
	ResourceType ResourceType
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		if e.Message != "" {
			return fmt.Sprintf("API error %d: %s (request_id: %s)", e.StatusCode, e.Message, e.RequestID)
		}
		return fmt.Sprintf("API error %d (request_id: %s)", e.StatusCode, e.RequestID)
	}
	if e.Message != "" {
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error %d", e.StatusCode)
}

// Is implements errors.Is for sentinel error matching.
func (e *APIError) Is(target error) bool {
	switch e.StatusCode {
	case 400:
		return target == ErrInvalidRequest
	case 401, 403:
		return target == ErrCredentialRejected
	case 404:
		switch e.ResourceType {
		case ResourcePaste:
			return target == ErrPasteNotFound
		case ResourceFile:
			return target == ErrFileNotFound
		default:
			return target == ErrPasteNotFound || target == ErrFileNotFound
		}
	case 409:
		return target == ErrFileExists
	case 410:
		return target == ErrPasteExpired
	case 413:
		return target == ErrPayloadTooLarge
	case 429:
		return target == ErrRateLimited
	}
	return false
}

// WithResourceType returns a copy of the error with the resource type set.
// If the error is not an *APIError, it is returned unchanged.
func WithResourceType(err error, rt ResourceType) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return &APIError{
			StatusCode:   apiErr.StatusCode,
			Message:      apiErr.Message,
			RequestID:    apiErr.RequestID,
			ResourceType: rt,
		}
	}
	return err
}

// NetworkError represents a network-level failure.
type NetworkError struct {
	Err     error
	URL     string
	Attempt int
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}
