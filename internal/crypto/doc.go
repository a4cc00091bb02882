// Package crypto provides the cryptographic primitives of the Klistra paste
// protocol: password-based key derivation, the access verifier, and the
// authenticated encryption applied to paste text and files.
//
// # Algorithm Suite
//
//   - Argon2id (RFC 9106): memory-hard password hash. Fixed costs of
//     t=3, m=64 MiB, p=4 produce a 32-byte master secret from
//     (password, salt).
//
//   - HKDF-SHA-512 (RFC 5869): expands the master secret twice with distinct
//     info strings, yielding the encryption key and the access verifier.
//
//   - AES-256-GCM: authenticated encryption for the paste text and for each
//     attached file.
//
// # Envelope Layout
//
// Every sealed artifact is a single byte string with fixed offsets:
//
//	nonce (12 bytes) || ciphertext || tag (16 bytes)
//
// Text envelopes travel as URL-safe base64 without padding. File envelopes
// travel as raw bytes.
//
// # Security Model
//
//   - Confidentiality: for protected pastes only a password holder can derive
//     the key. The server stores the verifier, which it compares by equality
//     and which cannot be turned back into the key.
//   - Integrity: any modified, truncated, or wrongly keyed envelope fails
//     [Open] with [ErrAuthenticationFailed]. No partial plaintext is ever
//     returned.
//   - Unprotected pastes use a random key that the server hands to any reader
//     of the paste id. They are opaque at rest but not password-gated.
//
// AES-GCM nonces MUST be unique for each encryption with the same key.
// [Seal] always draws a fresh random nonce.
//
// # Base64 Encoding
//
//   - [ToBase64URL]/[FromBase64URL]: URL-safe base64 without padding (RFC 4648 §5).
//     Used for all protocol values (keys, salts, verifiers, text envelopes).
//
//   - [ToBase64]/[FromBase64]: Standard base64 with padding (RFC 4648 §4).
package crypto
