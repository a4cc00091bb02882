package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
)

// randReader is the random source used for keys, salts, and nonces.
// It defaults to nil (which uses crypto/rand) but can be overridden for testing.
var randReader io.Reader

func random() io.Reader {
	if randReader != nil {
		return randReader
	}
	return rand.Reader
}

// Key is a 256-bit symmetric paste key. One Key encrypts the text and every
// file of a single paste; it is never shared between pastes.
//
// Keys are raw bytes inside the module. Encode and KeyFromEncoded exist only
// for the wire boundary.
type Key [KeySize]byte

// GenerateKey returns a new random key from the cryptographic RNG.
func GenerateKey() (Key, error) {
	var k Key
	if _, err := io.ReadFull(random(), k[:]); err != nil {
		return Key{}, fmt.Errorf("failed to generate key: %w", err)
	}
	return k, nil
}

// KeyFromBytes copies b into a Key. b must be exactly KeySize bytes.
func KeyFromBytes(b []byte) (Key, error) {
	var k Key
	if len(b) != KeySize {
		return k, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(b), KeySize)
	}
	copy(k[:], b)
	return k, nil
}

// KeyFromEncoded decodes a base64 (url or standard, padded or not) key.
func KeyFromEncoded(s string) (Key, error) {
	b, err := DecodeBase64(s)
	if err != nil {
		return Key{}, fmt.Errorf("%w: key: %v", ErrInvalidEncoding, err)
	}
	return KeyFromBytes(b)
}

// Bytes returns a copy of the raw key bytes.
func (k Key) Bytes() []byte {
	b := make([]byte, KeySize)
	copy(b, k[:])
	return b
}

// Encode returns the key as URL-safe base64 without padding.
func (k Key) Encode() string {
	return ToBase64URL(k[:])
}

// IsZero reports whether k is the all-zero key, which is never produced by
// GenerateKey or Derive and marks an unset key.
func (k Key) IsZero() bool {
	var zero Key
	return subtle.ConstantTimeCompare(k[:], zero[:]) == 1
}

// GenerateSalt returns a fresh random salt of SaltSize bytes.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(random(), salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// VerifierEqual compares two access verifiers in constant time.
func VerifierEqual(a, b []byte) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
