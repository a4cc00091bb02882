package api

import "github.com/klistra/client-go/internal/apierrors"

// Aliases so callers of this package need not import apierrors directly.
type (
	// APIError is an HTTP error returned by the paste service.
	APIError = apierrors.APIError
	// NetworkError is a transport-level failure.
	NetworkError = apierrors.NetworkError
)

// Common API errors that can be checked with errors.Is.
var (
	ErrPasteNotFound      = apierrors.ErrPasteNotFound
	ErrFileNotFound       = apierrors.ErrFileNotFound
	ErrPasteExpired       = apierrors.ErrPasteExpired
	ErrCredentialRejected = apierrors.ErrCredentialRejected
	ErrRateLimited        = apierrors.ErrRateLimited
	ErrInvalidRequest     = apierrors.ErrInvalidRequest
	ErrPayloadTooLarge    = apierrors.ErrPayloadTooLarge
)
