// Package api provides the HTTP client for the Klistra paste service. It
// handles request/response serialization and automatic retry with exponential
// backoff for transient failures.
//
// The service is an opaque store: every value this package sends is either
// ciphertext, a salt, an access verifier or plaintext metadata (file names,
// sizes, expiry). Nothing here encrypts or decrypts.
//
// # Client Creation
//
//   - [NewClient]: struct-based configuration.
//   - [New]: functional options.
//
// # Retry Behavior
//
// Requests are retried up to 3 times for these HTTP status codes:
//
//   - 408 Request Timeout
//   - 429 Too Many Requests
//   - 500 Internal Server Error
//   - 502 Bad Gateway
//   - 503 Service Unavailable
//   - 504 Gateway Timeout
//
// The delay doubles with each attempt (1s, 2s, 4s, ...). A Retry-After header
// given in seconds overrides the computed delay. Every attempt of one call
// carries the same X-Request-ID.
//
// # Error Handling
//
// Non-2xx responses are returned as [*APIError], which matches the sentinels
// [ErrPasteNotFound], [ErrFileNotFound], [ErrPasteExpired],
// [ErrCredentialRejected], [ErrRateLimited], [ErrInvalidRequest] and
// [ErrPayloadTooLarge] through errors.Is. Transport failures are returned as
// [*NetworkError].
//
// # Thread Safety
//
// [Client] is safe for concurrent use.
package api
