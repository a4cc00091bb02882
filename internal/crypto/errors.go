package crypto

import "errors"

var (
	// ErrInvalidKeySize is returned when key material has the wrong length.
	ErrInvalidKeySize = errors.New("invalid key size")

	// ErrInvalidNonceSize is returned when the nonce size is invalid.
	ErrInvalidNonceSize = errors.New("invalid nonce size")

	// ErrAuthenticationFailed is returned when an envelope fails AEAD
	// verification: wrong key, truncated envelope, or tampered bytes.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrDerivationFailed is returned when key derivation cannot produce
	// key material. It is always joined with a more specific cause.
	ErrDerivationFailed = errors.New("key derivation failed")

	// ErrEmptyPassword is returned when derivation is asked to run on an
	// empty password.
	ErrEmptyPassword = errors.New("password is empty")

	// ErrInvalidSalt is returned when the salt is missing or too short.
	ErrInvalidSalt = errors.New("invalid salt")

	// ErrInvalidEncoding is returned when a transport-encoded value cannot
	// be decoded.
	ErrInvalidEncoding = errors.New("invalid encoding")
)
