package klistra

import (
	"github.com/klistra/client-go/internal/api"
	"github.com/klistra/client-go/internal/crypto"
)

// keyMaterial is the result of resolving the single encryption key for one
// paste. Every envelope of the paste (text and all files) is sealed with key.
type keyMaterial struct {
	key       crypto.Key
	protected bool
	salt      []byte
	verifier  []byte
}

// provisionKeys resolves the paste key.
//
// With a password the key is derived from it and only the verifier leaves
// the client. Without one a random key is generated and embedded in the
// paste record, so anyone holding the paste id can decrypt it: unprotected
// confidentiality rests entirely on the id being unguessable.
func provisionKeys(password string) (*keyMaterial, error) {
	salt, err := crypto.GenerateSalt()
	if err != nil {
		return nil, err
	}

	if password == "" {
		key, err := crypto.GenerateKey()
		if err != nil {
			return nil, err
		}
		return &keyMaterial{key: key, salt: salt}, nil
	}

	derived, err := crypto.Derive([]byte(password), salt)
	if err != nil {
		return nil, &DerivationError{Err: err}
	}
	return &keyMaterial{
		key:       derived.EncryptionKey,
		protected: true,
		salt:      salt,
		verifier:  derived.Verifier,
	}, nil
}

// apply copies the key-dependent fields into a create request.
func (m *keyMaterial) apply(req *api.CreatePasteRequest) {
	req.Protected = m.protected
	req.Salt = crypto.ToBase64URL(m.salt)
	if m.protected {
		req.Verifier = crypto.ToBase64URL(m.verifier)
		return
	}
	req.Key = m.key.Encode()
}

// unlockKeys re-derives the key and verifier for an existing protected paste.
func unlockKeys(password string, salt []byte) (*crypto.DerivedKeys, error) {
	derived, err := crypto.Derive([]byte(password), salt)
	if err != nil {
		return nil, &DerivationError{Err: err}
	}
	return derived, nil
}
