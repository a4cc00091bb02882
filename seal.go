package klistra

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/klistra/client-go/internal/api"
	"github.com/klistra/client-go/internal/crypto"
)

// Draft is the plaintext content of a paste to be created.
type Draft struct {
	// Text is the paste body. Empty means no text envelope is produced.
	Text string
	// Files are attachments, sealed and uploaded concurrently.
	Files []DraftFile
}

// DraftFile is one plaintext attachment.
type DraftFile struct {
	// Name is stored unencrypted in the paste record.
	Name    string
	Content []byte
}

// UploadStage identifies a step of a file's seal-and-upload task.
type UploadStage string

const (
	// StageSealed means the file envelope has been produced.
	StageSealed UploadStage = "sealed"
	// StageUploaded means the blob store accepted the envelope.
	StageUploaded UploadStage = "uploaded"
)

// UploadProgress reports one step of one file during CreatePaste.
type UploadProgress struct {
	// Index is the file's position in Draft.Files.
	Index int
	Name  string
	Stage UploadStage
	// Bytes is the envelope size.
	Bytes int
}

// FileInfo is the unencrypted metadata of an attached file.
type FileInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

func (d *Draft) validate(cfg *createConfig) error {
	var errs []string
	if cfg.expiry < MinExpiry || cfg.expiry > MaxExpiry {
		errs = append(errs, fmt.Sprintf("expiry %v outside [%v, %v]", cfg.expiry, MinExpiry, MaxExpiry))
	}
	for i, f := range d.Files {
		if f.Name == "" {
			errs = append(errs, fmt.Sprintf("file %d has no name", i))
		}
	}
	if len(errs) == 0 {
		return nil
	}

	verr := &ValidationError{Errors: errs}
	if cfg.expiry < MinExpiry || cfg.expiry > MaxExpiry {
		verr.Err = ErrInvalidExpiry
	}
	return verr
}

// sealDraft encrypts the draft under km.key and uploads every file, returning
// a create request that is complete only if every file task succeeded. Any
// failure or cancellation aborts the remaining tasks; blobs already uploaded
// by sibling tasks are left orphaned in the store.
func (c *Client) sealDraft(ctx context.Context, draft *Draft, km *keyMaterial, cfg *createConfig) (*api.CreatePasteRequest, error) {
	req := &api.CreatePasteRequest{
		Expiry:   int(cfg.expiry / time.Second),
		Language: cfg.language,
	}
	km.apply(req)

	if draft.Text != "" {
		text, err := crypto.SealText(km.key, draft.Text)
		if err != nil {
			return nil, fmt.Errorf("seal text: %w", err)
		}
		req.Text = text
	}

	if len(draft.Files) == 0 {
		return req, nil
	}

	var progressMu sync.Mutex
	report := func(p UploadProgress) {
		if cfg.onProgress == nil {
			return
		}
		progressMu.Lock()
		defer progressMu.Unlock()
		cfg.onProgress(p)
	}

	entries := make([]api.FileEntry, len(draft.Files))
	var uploadedMu sync.Mutex
	var uploaded []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxUploads)

	for i, f := range draft.Files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			envelope, err := crypto.Seal(km.key, f.Content)
			if err != nil {
				return fmt.Errorf("seal %s: %w", f.Name, err)
			}
			report(UploadProgress{Index: i, Name: f.Name, Stage: StageSealed, Bytes: len(envelope)})

			url, err := c.blobs.Put(gctx, uuid.NewString()+".bin", envelope)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return transferError("upload", f.Name, err)
			}

			uploadedMu.Lock()
			uploaded = append(uploaded, url)
			uploadedMu.Unlock()

			entries[i] = api.FileEntry{Name: f.Name, Size: int64(len(f.Content)), URL: url}
			report(UploadProgress{Index: i, Name: f.Name, Stage: StageUploaded, Bytes: len(envelope)})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if len(uploaded) > 0 {
			c.logger.Warn().
				Int("orphaned", len(uploaded)).
				Int("files", len(draft.Files)).
				Err(err).
				Msg("paste creation aborted; uploaded blobs left orphaned")
		}
		return nil, err
	}

	req.Files = entries
	return req, nil
}
