package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"io"
)

func newGCM(key Key) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Seal encrypts plaintext under key with AES-256-GCM and a fresh random nonce.
// Returns: nonce (12 bytes) || ciphertext || tag (16 bytes)
func Seal(key Key, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(random(), nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return SealWithNonce(key, plaintext, nonce)
}

// SealWithNonce encrypts plaintext with a caller-supplied nonce.
// The nonce MUST NOT have been used with key before.
// Returns: nonce (12 bytes) || ciphertext || tag (16 bytes)
func SealWithNonce(key Key, plaintext, nonce []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidNonceSize, len(nonce), NonceSize)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	envelope := make([]byte, NonceSize, NonceSize+len(plaintext)+TagSize)
	copy(envelope, nonce)
	return gcm.Seal(envelope, nonce, plaintext, nil), nil
}

// Open decrypts an envelope produced by Seal.
// The envelope format is: nonce (12 bytes) || ciphertext || tag (16 bytes)
//
// Every failure after key setup, including a truncated envelope, returns
// ErrAuthenticationFailed and a nil plaintext.
func Open(key Key, envelope []byte) ([]byte, error) {
	if len(envelope) < EnvelopeOverhead {
		return nil, fmt.Errorf("%w: envelope too short (%d bytes)", ErrAuthenticationFailed, len(envelope))
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := envelope[:NonceSize]
	ciphertextWithTag := envelope[NonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertextWithTag, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}

// SealText seals a text payload and returns the envelope in its
// transport encoding (base64url, no padding).
func SealText(key Key, text string) (string, error) {
	envelope, err := Seal(key, []byte(text))
	if err != nil {
		return "", err
	}
	return ToBase64URL(envelope), nil
}

// OpenText reverses SealText.
func OpenText(key Key, encoded string) (string, error) {
	envelope, err := DecodeBase64(encoded)
	if err != nil {
		// Undecodable transport text is indistinguishable from tampering.
		return "", fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	plaintext, err := Open(key, envelope)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
