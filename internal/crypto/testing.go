package crypto

import "io"

// SetRandReaderForTesting sets the random reader used for keys, salts, and nonces.
// This is intended for testing only. Returns a function to restore the original reader.
// Since this package is internal, this function cannot be accessed by external code.
func SetRandReaderForTesting(r io.Reader) func() {
	original := randReader
	randReader = r
	return func() { randReader = original }
}

// SetKDFParamsForTesting lowers the Argon2id costs so tests run quickly.
// Returns a function to restore the original parameters.
func SetKDFParamsForTesting(p KDFParams) func() {
	original := kdfParams
	kdfParams = p
	return func() { kdfParams = original }
}

// FastKDFParams are cheap Argon2id costs for tests.
var FastKDFParams = KDFParams{Time: 1, Memory: 64, Threads: 1}
