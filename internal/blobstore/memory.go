// Package blobstore provides an in-process blob store for tests and local
// tooling. Blobs are opaque byte slices addressed by URL.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/klistra/client-go/internal/apierrors"
)

// ErrInjected is returned by Put for names registered with FailPut.
var ErrInjected = errors.New("blobstore: injected failure")

// Memory is a concurrency-safe in-memory blob store.
type Memory struct {
	prefix string

	mu      sync.RWMutex
	blobs   map[string][]byte
	failPut map[string]error
	failAny error
	onPut   func(ctx context.Context) error
	puts    int
	gets    int
}

// NewMemory returns an empty store whose URLs start with prefix.
func NewMemory(prefix string) *Memory {
	if prefix == "" {
		prefix = "mem://blobs/"
	}
	return &Memory{
		prefix:  prefix,
		blobs:   make(map[string][]byte),
		failPut: make(map[string]error),
	}
}

// Put stores a copy of data under name and returns its URL.
func (m *Memory) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.RLock()
	hook := m.onPut
	m.mu.RUnlock()
	if hook != nil {
		if err := hook(ctx); err != nil {
			return "", err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.puts++
	if m.failAny != nil {
		return "", m.failAny
	}
	if err, ok := m.failPut[name]; ok {
		return "", err
	}

	url := m.prefix + name
	m.blobs[url] = append([]byte(nil), data...)
	return url, nil
}

// Get returns a copy of the blob stored at url.
func (m *Memory) Get(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.gets++
	data, ok := m.blobs[url]
	if !ok {
		return nil, fmt.Errorf("%s: %w", url, apierrors.ErrFileNotFound)
	}
	return append([]byte(nil), data...), nil
}

// FailPut makes every later Put of name fail with ErrInjected.
func (m *Memory) FailPut(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPut[name] = ErrInjected
}

// FailAllPuts makes every later Put fail with err. A nil err clears it.
func (m *Memory) FailAllPuts(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAny = err
}

// OnPut installs a hook run at the start of every Put, outside the lock.
// A non-nil return aborts that Put.
func (m *Memory) OnPut(hook func(ctx context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onPut = hook
}

// Corrupt flips one bit of the stored blob at url. It reports whether a
// blob was found.
func (m *Memory) Corrupt(url string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[url]
	if !ok || len(data) == 0 {
		return false
	}
	data[len(data)/2] ^= 0x01
	return true
}

// Delete removes the blob at url.
func (m *Memory) Delete(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, url)
}

// Len returns the number of stored blobs.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}

// URLs returns the URLs of all stored blobs in no particular order.
func (m *Memory) URLs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	urls := make([]string, 0, len(m.blobs))
	for u := range m.blobs {
		urls = append(urls, u)
	}
	return urls
}

// Stats returns the number of Put and Get calls seen so far.
func (m *Memory) Stats() (puts, gets int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts, m.gets
}
