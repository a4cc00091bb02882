// Package klistra provides a Go client SDK for Klistra, a temporary paste
// service with end-to-end encryption.
//
// The service stores only ciphertext. Every paste is encrypted with a single
// AES-256-GCM key shared by its text and all of its files. For a protected
// paste the key is derived from a password with Argon2id and HKDF-SHA-512,
// and the service receives only an access verifier derived alongside it.
// For an unprotected paste the key is random and stored with the paste, so
// the paste id alone is enough to read it.
//
// Basic usage:
//
//	client, err := klistra.New(klistra.WithBaseURL("https://klistra.nu"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	created, err := client.CreatePaste(ctx, klistra.Draft{Text: "Hello World"},
//	    klistra.WithPassword("secret"),
//	    klistra.WithExpiry(time.Hour),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	paste, err := client.ReadPaste(ctx, created.ID, "secret")
//	if errors.Is(err, klistra.ErrIncorrectPassword) {
//	    // ask again
//	}
//	text, err := paste.Text()
//
// Derivation failures, rejected verifiers and authentication failures of
// protected content all report "incorrect password" and all match
// [ErrIncorrectPassword]; the concrete types [DerivationError],
// [CredentialRejectedError] and [AuthenticationError] remain available to
// errors.As.
package klistra
