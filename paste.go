package klistra

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/klistra/client-go/internal/api"
	"github.com/klistra/client-go/internal/crypto"
)

// Paste is a fetched paste. Text and files are decrypted on demand and
// independently: a failure on one file does not affect the text or the
// other files.
type Paste struct {
	client    *Client
	id        string
	protected bool
	language  string
	expiresAt time.Time
	salt      []byte

	mu       sync.RWMutex
	unlocked bool
	key      crypto.Key
	text     *string
	files    []*File
}

// File is an encrypted attachment of a Paste.
type File struct {
	paste *Paste
	name  string
	size  int64
	url   string
}

func newPaste(c *Client, resp *api.PasteResponse) (*Paste, error) {
	p := &Paste{
		client:    c,
		id:        resp.ID,
		protected: resp.Protected,
		language:  resp.Language,
		expiresAt: unixTime(resp.TimeoutUnix),
	}

	if resp.Protected {
		salt, err := crypto.DecodeBase64(resp.Salt)
		if err != nil || len(salt) < crypto.MinSaltSize {
			return nil, &DerivationError{Err: crypto.ErrInvalidSalt}
		}
		p.salt = salt
		if !resp.Locked() {
			return nil, fmt.Errorf("%w: protected paste %s returned content without a verifier", ErrDecryptionFailed, resp.ID)
		}
		return p, nil
	}

	key, err := crypto.KeyFromEncoded(resp.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: paste %s has no usable key: %v", ErrDecryptionFailed, resp.ID, err)
	}
	p.setContent(key, resp)
	return p, nil
}

// setContent stores the key and the encrypted content. Callers hold p.mu or
// own p exclusively.
func (p *Paste) setContent(key crypto.Key, resp *api.PasteResponse) {
	p.key = key
	p.unlocked = true
	p.text = resp.Text
	p.files = make([]*File, 0, len(resp.Files))
	for _, f := range resp.Files {
		p.files = append(p.files, &File{paste: p, name: f.Name, size: f.Size, url: f.URL})
	}
}

// ID returns the paste id.
func (p *Paste) ID() string {
	return p.id
}

// Protected reports whether the paste is password protected.
func (p *Paste) Protected() bool {
	return p.protected
}

// Language returns the syntax highlighting hint, if any.
func (p *Paste) Language() string {
	return p.language
}

// ExpiresAt returns when the service will delete the paste.
func (p *Paste) ExpiresAt() time.Time {
	return p.expiresAt
}

// Locked reports whether the paste still needs Unlock.
func (p *Paste) Locked() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.unlocked
}

// Unlock derives the key and access verifier from password and re-reads the
// paste with the verifier. A verifier rejected by the service returns a
// *CredentialRejectedError; there is no automatic retry. Unlock on an
// unlocked paste is a no-op.
func (p *Paste) Unlock(ctx context.Context, password string) error {
	if !p.Locked() {
		return nil
	}
	if err := p.client.checkClosed(); err != nil {
		return err
	}

	derived, err := unlockKeys(password, p.salt)
	if err != nil {
		return err
	}

	resp, err := p.client.apiClient.GetPaste(ctx, p.id, crypto.ToBase64URL(derived.Verifier))
	if err != nil {
		return wrapError(err)
	}
	if resp.Locked() {
		return &CredentialRejectedError{}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.unlocked {
		p.setContent(derived.EncryptionKey, resp)
	}
	return nil
}

// HasText reports whether the paste carries a text body. It returns false
// while the paste is locked.
func (p *Paste) HasText() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.text != nil && *p.text != ""
}

// Text decrypts the paste body. A paste without text returns "".
func (p *Paste) Text() (string, error) {
	p.mu.RLock()
	unlocked, key, text := p.unlocked, p.key, p.text
	p.mu.RUnlock()

	if !unlocked {
		return "", ErrPasteLocked
	}
	if text == nil || *text == "" {
		return "", nil
	}

	plain, err := crypto.OpenText(key, *text)
	if err != nil {
		if errors.Is(err, crypto.ErrAuthenticationFailed) {
			return "", &AuthenticationError{Target: "text", Protected: p.protected}
		}
		return "", err
	}
	return plain, nil
}

// Files returns the attachments. It returns nil while the paste is locked.
func (p *Paste) Files() []*File {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.unlocked {
		return nil
	}
	out := make([]*File, len(p.files))
	copy(out, p.files)
	return out
}

// Name returns the file name.
func (f *File) Name() string {
	return f.name
}

// Size returns the plaintext size in bytes as recorded at creation.
func (f *File) Size() int64 {
	return f.size
}

// Decrypt downloads and decrypts the file. Downloads are bounded per client;
// Decrypt blocks until a slot is free or ctx is done.
func (f *File) Decrypt(ctx context.Context) ([]byte, error) {
	p := f.paste
	c := p.client
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	if err := c.downloads.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	envelope, err := c.blobs.Get(ctx, f.url)
	c.downloads.Release(1)
	if err != nil {
		return nil, transferError("download", f.name, err)
	}

	p.mu.RLock()
	key := p.key
	p.mu.RUnlock()

	plain, err := crypto.Open(key, envelope)
	if err != nil {
		c.logger.Debug().Str("paste_id", p.id).Str("file", f.name).Msg("file failed authentication")
		return nil, &AuthenticationError{Target: f.name, Protected: p.protected}
	}
	return plain, nil
}
