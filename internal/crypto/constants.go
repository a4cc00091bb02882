package crypto

const (
	// HKDFKeyContext is the HKDF info string used to derive the paste
	// encryption key from the Argon2id master secret.
	HKDFKeyContext = "klistra:paste:key:v1"

	// HKDFVerifierContext is the HKDF info string used to derive the access
	// verifier. It must differ from HKDFKeyContext.
	HKDFVerifierContext = "klistra:paste:verifier:v1"

	// KeySize is the size of an AES-256 key in bytes.
	KeySize = 32
	// NonceSize is the size of an AES-GCM nonce in bytes.
	NonceSize = 12
	// TagSize is the size of an AES-GCM authentication tag in bytes.
	TagSize = 16
	// EnvelopeOverhead is the number of bytes Seal adds to a plaintext.
	EnvelopeOverhead = NonceSize + TagSize

	// SaltSize is the size of a freshly generated paste salt in bytes.
	SaltSize = 16
	// MinSaltSize is the shortest salt Derive accepts.
	MinSaltSize = 16

	// VerifierSize is the size of the access verifier in bytes.
	VerifierSize = 32

	// Argon2id cost parameters. Changing any of these breaks every
	// password-protected paste created before the change.
	Argon2Time    = 3
	Argon2Memory  = 64 * 1024 // KiB
	Argon2Threads = 4
	// argon2MasterSize is the length of the Argon2id output fed to HKDF.
	argon2MasterSize = 32
)

// AlgsCiphersuite is the canonical string representation of the algorithm suite.
var AlgsCiphersuite = "ARGON2ID:HKDF-SHA-512:AES-256-GCM"
