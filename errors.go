package klistra

import (
	"errors"
	"fmt"

	"github.com/klistra/client-go/internal/api"
	"github.com/klistra/client-go/internal/apierrors"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrIncorrectPassword is matched by every failure on the password path:
	// local derivation failure, server-side verifier rejection and
	// authentication failure of protected content.
	ErrIncorrectPassword = errors.New("incorrect password")

	// ErrDecryptionFailed is returned when an envelope fails authentication.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrPasteNotFound is returned when no live paste has the requested id.
	ErrPasteNotFound = apierrors.ErrPasteNotFound

	// ErrPasteExpired is returned when the paste has passed its expiry.
	ErrPasteExpired = apierrors.ErrPasteExpired

	// ErrFileNotFound is returned when a file blob no longer exists.
	ErrFileNotFound = apierrors.ErrFileNotFound

	// ErrRateLimited is returned when the service rate limit is exceeded.
	ErrRateLimited = apierrors.ErrRateLimited

	// ErrPayloadTooLarge is returned when a file exceeds the service limit.
	ErrPayloadTooLarge = apierrors.ErrPayloadTooLarge

	// ErrEmptyPaste is returned when a draft has neither text nor files.
	ErrEmptyPaste = errors.New("paste has no text and no files")

	// ErrPasteLocked is returned when protected content is requested before Unlock.
	ErrPasteLocked = errors.New("paste is password protected")

	// ErrInvalidExpiry is returned when the expiry is outside [MinExpiry, MaxExpiry].
	ErrInvalidExpiry = errors.New("invalid expiry")

	// ErrClientClosed is returned when operations are attempted on a closed client.
	ErrClientClosed = errors.New("client has been closed")

	// ErrInvalidImportData is returned when an exported receipt is invalid.
	ErrInvalidImportData = errors.New("invalid import data")
)

// KlistraError is implemented by all SDK errors.
type KlistraError interface {
	error
	KlistraError() // marker method
}

// DerivationError reports that keys could not be derived from a password,
// for example because the password is empty or the stored salt is malformed.
// It prints the same message as a rejected password.
type DerivationError struct {
	Err error
}

func (e *DerivationError) Error() string {
	return ErrIncorrectPassword.Error()
}

// Unwrap returns the underlying error.
func (e *DerivationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *DerivationError) Is(target error) bool {
	return target == ErrIncorrectPassword
}

// KlistraError implements the KlistraError interface.
func (e *DerivationError) KlistraError() {}

// CredentialRejectedError reports that the service rejected the access
// verifier. No detail beyond the rejection is available.
type CredentialRejectedError struct {
	RequestID string
}

func (e *CredentialRejectedError) Error() string {
	return ErrIncorrectPassword.Error()
}

// Is implements errors.Is for sentinel error matching.
func (e *CredentialRejectedError) Is(target error) bool {
	return target == ErrIncorrectPassword
}

// KlistraError implements the KlistraError interface.
func (e *CredentialRejectedError) KlistraError() {}

// AuthenticationError reports that an envelope failed AEAD verification:
// the key is wrong or the ciphertext was altered. Target names the content
// ("text" or a file name). For protected pastes it prints the same message
// as a rejected password.
type AuthenticationError struct {
	Target    string
	Protected bool
}

func (e *AuthenticationError) Error() string {
	if e.Protected {
		return ErrIncorrectPassword.Error()
	}
	return fmt.Sprintf("%s: %s could not be authenticated", ErrDecryptionFailed, e.Target)
}

// Is implements errors.Is for sentinel error matching.
func (e *AuthenticationError) Is(target error) bool {
	if target == ErrDecryptionFailed {
		return true
	}
	return e.Protected && target == ErrIncorrectPassword
}

// KlistraError implements the KlistraError interface.
func (e *AuthenticationError) KlistraError() {}

// TransportError reports a failed upload or download. Op is "upload",
// "download" or "request"; File is set for file transfers.
type TransportError struct {
	Op      string
	File    string
	URL     string
	Attempt int
	Err     error
}

func (e *TransportError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.File, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// KlistraError implements the KlistraError interface.
func (e *TransportError) KlistraError() {}

// APIError represents an HTTP error from the paste service.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string // if returned by server

	resource apierrors.ResourceType
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
	inner := apierrors.APIError{StatusCode: e.StatusCode, ResourceType: e.resource}
	return inner.Is(target)
}

// KlistraError implements the KlistraError interface.
func (e *APIError) KlistraError() {}

// ValidationError reports invalid caller input.
type ValidationError struct {
	Errors []string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Errors)
}

// Unwrap returns the sentinel describing the failure, if any.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// KlistraError implements the KlistraError interface.
func (e *ValidationError) KlistraError() {}

// wrapError converts internal API errors to public errors.
// This ensures that errors.Is() checks work with public sentinel errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 401 || apiErr.StatusCode == 403 {
			return &CredentialRejectedError{RequestID: apiErr.RequestID}
		}
		return &APIError{
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.Message,
			RequestID:  apiErr.RequestID,
			resource:   apiErr.ResourceType,
		}
	}

	var netErr *api.NetworkError
	if errors.As(err, &netErr) {
		return &TransportError{
			Op:      "request",
			URL:     netErr.URL,
			Attempt: netErr.Attempt,
			Err:     netErr.Err,
		}
	}

	return err
}

// transferError wraps a blob store failure for one file.
func transferError(op, file string, err error) error {
	wrapped := wrapError(err)
	if te, ok := wrapped.(*TransportError); ok {
		te.Op = op
		te.File = file
		return te
	}
	return &TransportError{Op: op, File: file, Err: wrapped}
}
