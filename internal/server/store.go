package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/klistra/client-go/internal/api"
	"github.com/klistra/client-go/internal/apierrors"
)

var (
	// ErrIDTaken is returned by CreatePaste when the id is already in use.
	ErrIDTaken = errors.New("paste id already in use")
	// ErrBlobExists is returned by PutBlob when a live blob already has the
	// name. Blobs are write-once.
	ErrBlobExists = errors.New("blob already exists")
)

// Record is a stored paste. Text is a base64url envelope; Verifier is raw.
type Record struct {
	ID        string          `json:"id"`
	Text      string          `json:"text,omitempty"`
	Protected bool            `json:"protected"`
	Verifier  []byte          `json:"verifier,omitempty"`
	Salt      string          `json:"salt,omitempty"`
	Key       string          `json:"key,omitempty"`
	Language  string          `json:"language,omitempty"`
	Files     []api.FileEntry `json:"files,omitempty"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// Expired reports whether the record has passed its expiry at now.
func (r *Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Store persists paste records and blobs. Missing records return
// apierrors.ErrPasteNotFound and missing blobs apierrors.ErrFileNotFound.
// Implementations may return expired records; callers check Expired.
type Store interface {
	CreatePaste(ctx context.Context, rec *Record) error
	GetPaste(ctx context.Context, id string) (*Record, error)
	DeletePaste(ctx context.Context, id string) error
	// PutBlob stores data under name. It returns ErrBlobExists if a live
	// blob already has that name.
	PutBlob(ctx context.Context, name string, data []byte, ttl time.Duration) error
	GetBlob(ctx context.Context, name string) ([]byte, error)
	// Sweep removes everything expired at now and returns how many entries
	// were removed.
	Sweep(ctx context.Context, now time.Time) (int, error)
	Close() error
}

type memoryBlob struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.RWMutex
	pastes map[string]*Record
	blobs  map[string]memoryBlob
	now    func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pastes: make(map[string]*Record),
		blobs:  make(map[string]memoryBlob),
		now:    time.Now,
	}
}

// SetClock replaces the clock used for blob expiry.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MemoryStore) CreatePaste(ctx context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pastes[rec.ID]; ok {
		return ErrIDTaken
	}
	cp := *rec
	m.pastes[rec.ID] = &cp
	return nil
}

func (m *MemoryStore) GetPaste(ctx context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.pastes[id]
	if !ok {
		return nil, apierrors.ErrPasteNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *MemoryStore) DeletePaste(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pastes, id)
	return nil
}

func (m *MemoryStore) PutBlob(ctx context.Context, name string, data []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if b, ok := m.blobs[name]; ok && now.Before(b.expiresAt) {
		return ErrBlobExists
	}
	m.blobs[name] = memoryBlob{
		data:      append([]byte(nil), data...),
		expiresAt: now.Add(ttl),
	}
	return nil
}

func (m *MemoryStore) GetBlob(ctx context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[name]
	if !ok || !m.now().Before(b.expiresAt) {
		return nil, apierrors.ErrFileNotFound
	}
	return append([]byte(nil), b.data...), nil
}

// CorruptBlob flips one bit of a stored blob. It reports whether the blob
// existed.
func (m *MemoryStore) CorruptBlob(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[name]
	if !ok || len(b.data) == 0 {
		return false
	}
	b.data[len(b.data)-1] ^= 0x80
	return true
}

func (m *MemoryStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, rec := range m.pastes {
		if rec.Expired(now) {
			delete(m.pastes, id)
			removed++
		}
	}
	for name, b := range m.blobs {
		if !now.Before(b.expiresAt) {
			delete(m.blobs, name)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
