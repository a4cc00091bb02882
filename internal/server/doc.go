// Package server implements the Klistra paste service: an opaque store for
// sealed paste records and encrypted file blobs.
//
// The service never sees plaintext or, for protected pastes, encryption keys.
// It stores the access verifier of a protected paste and releases the
// ciphertext only to requests presenting an equal verifier in the
// X-Paste-Verifier header. Unprotected pastes are returned, embedded key
// included, to anyone who knows the id.
//
// Records live in a [Store]: [MemoryStore] for tests and single-process use,
// [BadgerStore] for persistence with native per-entry TTL.
package server
