package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/klistra/client-go/internal/apierrors"
)

const (
	pastePrefix = "paste/"
	blobPrefix  = "blob/"
)

// BadgerStore is a Store backed by badger. Entries carry a badger TTL equal
// to their expiry, so expired records disappear without a sweep.
type BadgerStore struct {
	db  *badger.DB
	now func() time.Time
}

// OpenBadgerStore opens (or creates) a store in dir. An empty dir opens an
// in-memory database.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil
	opts.ValueLogFileSize = 1024 * 1024 * 100

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	return &BadgerStore{db: db, now: time.Now}, nil
}

// SetClock replaces the clock used to turn expiry times into TTLs.
func (s *BadgerStore) SetClock(now func() time.Time) {
	s.now = now
}

func (s *BadgerStore) ttlUntil(t time.Time) time.Duration {
	ttl := t.Sub(s.now())
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

func (s *BadgerStore) CreatePaste(ctx context.Context, rec *Record) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	key := []byte(pastePrefix + rec.ID)

	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return ErrIDTaken
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.SetEntry(badger.NewEntry(key, value).WithTTL(s.ttlUntil(rec.ExpiresAt)))
	})
}

func (s *BadgerStore) GetPaste(ctx context.Context, id string) (*Record, error) {
	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(pastePrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, apierrors.ErrPasteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read paste %s: %w", id, err)
	}
	return &rec, nil
}

func (s *BadgerStore) DeletePaste(ctx context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(pastePrefix + id))
	})
}

func (s *BadgerStore) PutBlob(ctx context.Context, name string, data []byte, ttl time.Duration) error {
	key := []byte(blobPrefix + name)

	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return ErrBlobExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.SetEntry(badger.NewEntry(key, data).WithTTL(ttl))
	})
}

func (s *BadgerStore) GetBlob(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(blobPrefix + name))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, apierrors.ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", name, err)
	}
	return data, nil
}

// Sweep reclaims value log space. Expiry itself is enforced by badger TTLs,
// so the removed count is always 0.
func (s *BadgerStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	err := s.db.RunValueLogGC(0.5)
	if err != nil && !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrGCInMemoryMode) {
		return 0, fmt.Errorf("value log gc: %w", err)
	}
	return 0, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
