package crypto

import (
	"crypto/sha512"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

// KDFParams holds the Argon2id cost parameters.
type KDFParams struct {
	Time    uint32 // Number of iterations
	Memory  uint32 // Memory usage in KiB
	Threads uint8  // Degree of parallelism
}

// DefaultKDFParams are the fixed production costs. Every client must use
// the same values to reproduce keys for existing pastes.
var DefaultKDFParams = KDFParams{
	Time:    Argon2Time,
	Memory:  Argon2Memory,
	Threads: Argon2Threads,
}

// kdfParams is the active parameter set; only tests change it.
var kdfParams = DefaultKDFParams

// DerivedKeys is the output of Derive for one (password, salt) pair.
type DerivedKeys struct {
	// EncryptionKey seals and opens every artifact of the paste.
	// It never leaves the client.
	EncryptionKey Key
	// Verifier is the bearer credential the server compares by equality.
	Verifier []byte
}

// Derive turns a password and salt into an encryption key and an access
// verifier.
//
// The derivation:
//  1. Argon2id(password, salt) with the fixed KDFParams → 32-byte master
//  2. HKDF-SHA-512(master, salt, HKDFKeyContext) → encryption key
//  3. HKDF-SHA-512(master, salt, HKDFVerifierContext) → verifier
//
// The verifier and key are independent HKDF outputs, so a leaked verifier
// does not reveal the key. Derive is deterministic and never retries.
func Derive(password, salt []byte) (*DerivedKeys, error) {
	if len(password) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, ErrEmptyPassword)
	}
	if len(salt) < MinSaltSize {
		return nil, fmt.Errorf("%w: %w: got %d bytes, want at least %d",
			ErrDerivationFailed, ErrInvalidSalt, len(salt), MinSaltSize)
	}

	p := kdfParams
	master := argon2.IDKey(password, salt, p.Time, p.Memory, p.Threads, argon2MasterSize)
	defer clear(master)

	keyBytes, err := expand(master, salt, HKDFKeyContext, KeySize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, err)
	}
	defer clear(keyBytes)

	verifier, err := expand(master, salt, HKDFVerifierContext, VerifierSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, err)
	}

	key, err := KeyFromBytes(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, err)
	}

	return &DerivedKeys{
		EncryptionKey: key,
		Verifier:      verifier,
	}, nil
}

// expand performs HKDF-SHA-512 with the given info string.
func expand(secret, salt []byte, info string, length int) ([]byte, error) {
	reader := hkdf.New(sha512.New, secret, salt, []byte(info))
	out := make([]byte, length)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, fmt.Errorf("failed to expand %q: %w", info, err)
	}
	return out, nil
}
