package klistra

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"github.com/klistra/client-go/internal/api"
	"github.com/klistra/client-go/internal/blobstore"
	"github.com/klistra/client-go/internal/crypto"
)

func TestScenario_UnprotectedText(t *testing.T) {
	svc := newTestService(t)
	client := newTestClient(t, svc)
	ctx := context.Background()

	created, err := client.CreatePaste(ctx, Draft{Text: "Hello World"}, WithExpiry(3600*time.Second))
	if err != nil {
		t.Fatalf("CreatePaste() error = %v", err)
	}
	if created.Protected {
		t.Error("Protected = true for paste without password")
	}
	if want := svc.clock.Now().Add(time.Hour); !created.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", created.ExpiresAt, want)
	}

	paste, err := client.OpenPaste(ctx, created.ID)
	if err != nil {
		t.Fatalf("OpenPaste() error = %v", err)
	}
	if paste.Locked() {
		t.Fatal("unprotected paste is locked")
	}
	text, err := paste.Text()
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if text != "Hello World" {
		t.Errorf("Text() = %q, want %q", text, "Hello World")
	}
	if len(paste.Files()) != 0 {
		t.Errorf("Files() = %d entries, want 0", len(paste.Files()))
	}
}

func TestScenario_ProtectedText(t *testing.T) {
	svc := newTestService(t)
	client := newTestClient(t, svc)
	ctx := context.Background()

	created, err := client.CreatePaste(ctx, Draft{Text: "data"}, WithPassword("secret"))
	if err != nil {
		t.Fatalf("CreatePaste() error = %v", err)
	}
	if !created.Protected {
		t.Fatal("Protected = false for paste with password")
	}

	paste, err := client.OpenPaste(ctx, created.ID)
	if err != nil {
		t.Fatalf("OpenPaste() error = %v", err)
	}
	if !paste.Protected() || !paste.Locked() {
		t.Fatalf("Protected() = %v, Locked() = %v, want both true", paste.Protected(), paste.Locked())
	}
	if _, err := paste.Text(); !errors.Is(err, ErrPasteLocked) {
		t.Errorf("Text() on locked paste error = %v, want ErrPasteLocked", err)
	}
	if paste.Files() != nil {
		t.Error("Files() on locked paste is not nil")
	}

	err = paste.Unlock(ctx, "wrong")
	if !errors.Is(err, ErrIncorrectPassword) {
		t.Fatalf("Unlock(wrong) error = %v, want ErrIncorrectPassword", err)
	}
	var rejected *CredentialRejectedError
	if !errors.As(err, &rejected) {
		t.Errorf("Unlock(wrong) error type = %T, want *CredentialRejectedError", err)
	}
	if err.Error() != "incorrect password" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !paste.Locked() {
		t.Fatal("paste unlocked by wrong password")
	}

	if err := paste.Unlock(ctx, "secret"); err != nil {
		t.Fatalf("Unlock(secret) error = %v", err)
	}
	text, err := paste.Text()
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if text != "data" {
		t.Errorf("Text() = %q, want %q", text, "data")
	}
}

func TestScenario_TwoFilesIndependent(t *testing.T) {
	svc := newTestService(t)
	mem := blobstore.NewMemory("")
	client := newTestClient(t, svc, WithBlobStore(mem))
	ctx := context.Background()

	small := []byte("0123456789")
	large := make([]byte, 1<<20)
	if _, err := rand.Read(large); err != nil {
		t.Fatal(err)
	}

	created, err := client.CreatePaste(ctx, Draft{Files: []DraftFile{
		{Name: "a.txt", Content: small},
		{Name: "b.bin", Content: large},
	}})
	if err != nil {
		t.Fatalf("CreatePaste() error = %v", err)
	}
	if len(created.Files) != 2 || created.Files[0].Size != 10 || created.Files[1].Size != 1<<20 {
		t.Errorf("created.Files = %+v", created.Files)
	}

	paste, err := client.OpenPaste(ctx, created.ID)
	if err != nil {
		t.Fatalf("OpenPaste() error = %v", err)
	}
	if paste.HasText() {
		t.Error("HasText() = true for file-only paste")
	}
	if text, err := paste.Text(); err != nil || text != "" {
		t.Errorf("Text() = %q, %v, want empty", text, err)
	}

	files := paste.Files()
	if len(files) != 2 {
		t.Fatalf("Files() = %d, want 2", len(files))
	}
	byName := map[string]*File{}
	for _, f := range files {
		byName[f.Name()] = f
	}

	for name, want := range map[string][]byte{"a.txt": small, "b.bin": large} {
		got, err := byName[name].Decrypt(ctx)
		if err != nil {
			t.Fatalf("Decrypt(%s) error = %v", name, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("Decrypt(%s) content differs", name)
		}
	}

	if !mem.Corrupt(byName["a.txt"].url) {
		t.Fatal("Corrupt() found no blob for a.txt")
	}

	_, err = byName["a.txt"].Decrypt(ctx)
	if !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Decrypt(a.txt) after corruption error = %v, want ErrDecryptionFailed", err)
	}
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) || authErr.Target != "a.txt" {
		t.Errorf("error = %#v, want *AuthenticationError for a.txt", err)
	}

	got, err := byName["b.bin"].Decrypt(ctx)
	if err != nil {
		t.Fatalf("Decrypt(b.bin) after a.txt corruption error = %v", err)
	}
	if !bytes.Equal(got, large) {
		t.Error("b.bin content differs after a.txt corruption")
	}
}

func TestUnprotectedDisclosure(t *testing.T) {
	svc := newTestService(t)
	mem := blobstore.NewMemory("")
	client := newTestClient(t, svc, WithBlobStore(mem))
	ctx := context.Background()

	created, err := client.CreatePaste(ctx, Draft{
		Text:  "anyone with the id",
		Files: []DraftFile{{Name: "f.txt", Content: []byte("file body")}},
	})
	if err != nil {
		t.Fatalf("CreatePaste() error = %v", err)
	}

	// A reader holding only the id, using the raw API without this SDK.
	raw, err := api.New(svc.URL)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := raw.GetPaste(ctx, created.ID, "")
	if err != nil {
		t.Fatalf("GetPaste() error = %v", err)
	}
	key, err := crypto.KeyFromEncoded(resp.Key)
	if err != nil {
		t.Fatalf("embedded key unusable: %v", err)
	}

	text, err := crypto.OpenText(key, *resp.Text)
	if err != nil || text != "anyone with the id" {
		t.Errorf("OpenText() = %q, %v", text, err)
	}

	// The same key opens every envelope of the paste.
	envelope, err := mem.Get(ctx, resp.Files[0].URL)
	if err != nil {
		t.Fatal(err)
	}
	body, err := crypto.Open(key, envelope)
	if err != nil || string(body) != "file body" {
		t.Errorf("Open(file) = %q, %v", body, err)
	}
}

func TestProtectedPaste_KeyNeverSent(t *testing.T) {
	svc := newTestService(t)
	client := newTestClient(t, svc)
	ctx := context.Background()

	created, err := client.CreatePaste(ctx, Draft{Text: "hidden"}, WithPassword("pw"))
	if err != nil {
		t.Fatal(err)
	}

	rec, err := svc.store.GetPaste(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Key != "" {
		t.Error("protected paste record carries a key")
	}
	if len(rec.Verifier) != crypto.VerifierSize {
		t.Errorf("verifier length = %d", len(rec.Verifier))
	}

	salt, _ := crypto.DecodeBase64(rec.Salt)
	derived, err := crypto.Derive([]byte("pw"), salt)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(rec.Verifier, derived.EncryptionKey.Bytes()) {
		t.Error("stored verifier equals the encryption key")
	}
}

func TestReadPaste(t *testing.T) {
	svc := newTestService(t)
	client := newTestClient(t, svc)
	ctx := context.Background()

	protected, err := client.CreatePaste(ctx, Draft{Text: "p"}, WithPassword("pw"))
	if err != nil {
		t.Fatal(err)
	}
	open, err := client.CreatePaste(ctx, Draft{Text: "o"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		id       string
		password string
		wantText string
		wantErr  error
	}{
		{"protected with password", protected.ID, "pw", "p", nil},
		{"protected without password", protected.ID, "", "", ErrPasteLocked},
		{"protected wrong password", protected.ID, "nope", "", ErrIncorrectPassword},
		{"unprotected ignores password", open.ID, "whatever", "o", nil},
		{"missing", "no-such-paste", "", "", ErrPasteNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := client.ReadPaste(ctx, tt.id, tt.password)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ReadPaste() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadPaste() error = %v", err)
			}
			text, err := p.Text()
			if err != nil || text != tt.wantText {
				t.Errorf("Text() = %q, %v, want %q", text, err, tt.wantText)
			}
		})
	}
}

func TestUnlock_EmptyPasswordIsDerivationError(t *testing.T) {
	svc := newTestService(t)
	client := newTestClient(t, svc)
	ctx := context.Background()

	created, err := client.CreatePaste(ctx, Draft{Text: "x"}, WithPassword("pw"))
	if err != nil {
		t.Fatal(err)
	}
	paste, err := client.OpenPaste(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}

	err = paste.Unlock(ctx, "")
	var derr *DerivationError
	if !errors.As(err, &derr) {
		t.Fatalf("Unlock(\"\") error = %T %v, want *DerivationError", err, err)
	}
	if !errors.Is(err, ErrIncorrectPassword) || err.Error() != "incorrect password" {
		t.Errorf("DerivationError does not present as incorrect password: %v", err)
	}
}

func TestUnlock_TamperedProtectedText(t *testing.T) {
	svc := newTestService(t)
	client := newTestClient(t, svc)
	ctx := context.Background()

	created, err := client.CreatePaste(ctx, Draft{Text: "original"}, WithPassword("pw"))
	if err != nil {
		t.Fatal(err)
	}

	rec, _ := svc.store.GetPaste(ctx, created.ID)
	envelope, _ := crypto.DecodeBase64(rec.Text)
	envelope[len(envelope)-1] ^= 0x01
	rec.Text = crypto.ToBase64URL(envelope)
	_ = svc.store.DeletePaste(ctx, created.ID)
	if err := svc.store.CreatePaste(ctx, rec); err != nil {
		t.Fatal(err)
	}

	paste, err := client.ReadPaste(ctx, created.ID, "pw")
	if err != nil {
		t.Fatalf("ReadPaste() error = %v", err)
	}
	_, err = paste.Text()

	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("Text() error = %T, want *AuthenticationError", err)
	}
	if !errors.Is(err, ErrIncorrectPassword) || !errors.Is(err, ErrDecryptionFailed) {
		t.Error("AuthenticationError on protected text must match both sentinels")
	}
	var rejected *CredentialRejectedError
	if errors.As(err, &rejected) {
		t.Error("authentication failure reported as credential rejection")
	}
}

func TestOpenPaste_UnusableSaltIsDerivationError(t *testing.T) {
	tests := []struct {
		name string
		salt string
	}{
		{"missing", ""},
		{"too short", crypto.ToBase64URL([]byte("short"))},
		{"not base64", "!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t)
			client := newTestClient(t, svc)
			ctx := context.Background()

			created, err := client.CreatePaste(ctx, Draft{Text: "x"}, WithPassword("pw"))
			if err != nil {
				t.Fatal(err)
			}
			rec, _ := svc.store.GetPaste(ctx, created.ID)
			rec.Salt = tt.salt
			_ = svc.store.DeletePaste(ctx, created.ID)
			if err := svc.store.CreatePaste(ctx, rec); err != nil {
				t.Fatal(err)
			}

			_, err = client.ReadPaste(ctx, created.ID, "pw")
			var derr *DerivationError
			if !errors.As(err, &derr) {
				t.Fatalf("ReadPaste() error = %T %v, want *DerivationError", err, err)
			}
			if !errors.Is(err, crypto.ErrInvalidSalt) || err.Error() != "incorrect password" {
				t.Errorf("error = %v, want incorrect password wrapping ErrInvalidSalt", err)
			}
		})
	}
}

func TestTamperedUnprotectedText(t *testing.T) {
	svc := newTestService(t)
	client := newTestClient(t, svc)
	ctx := context.Background()

	created, err := client.CreatePaste(ctx, Draft{Text: "original"})
	if err != nil {
		t.Fatal(err)
	}

	rec, _ := svc.store.GetPaste(ctx, created.ID)
	envelope, _ := crypto.DecodeBase64(rec.Text)
	envelope[crypto.NonceSize] ^= 0x40
	rec.Text = crypto.ToBase64URL(envelope)
	_ = svc.store.DeletePaste(ctx, created.ID)
	_ = svc.store.CreatePaste(ctx, rec)

	paste, err := client.OpenPaste(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	_, err = paste.Text()
	if !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Text() error = %v, want ErrDecryptionFailed", err)
	}
	if errors.Is(err, ErrIncorrectPassword) {
		t.Error("unprotected tamper reported as incorrect password")
	}
}

func TestOpenPaste_Expired(t *testing.T) {
	svc := newTestService(t)
	client := newTestClient(t, svc)
	ctx := context.Background()

	created, err := client.CreatePaste(ctx, Draft{Text: "brief"}, WithExpiry(MinExpiry))
	if err != nil {
		t.Fatal(err)
	}
	svc.clock.Advance(MinExpiry + time.Second)

	_, err = client.OpenPaste(ctx, created.ID)
	if !errors.Is(err, ErrPasteExpired) {
		t.Errorf("OpenPaste() error = %v, want ErrPasteExpired", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 410 {
		t.Errorf("error = %#v, want *APIError 410", err)
	}
}

func TestFileDecrypt_MissingBlobIsScoped(t *testing.T) {
	svc := newTestService(t)
	mem := blobstore.NewMemory("")
	client := newTestClient(t, svc, WithBlobStore(mem))
	ctx := context.Background()

	created, err := client.CreatePaste(ctx, Draft{
		Text: "still readable",
		Files: []DraftFile{
			{Name: "gone.txt", Content: []byte("1")},
			{Name: "kept.txt", Content: []byte("2")},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	paste, err := client.OpenPaste(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}

	files := paste.Files()
	mem.Delete(files[0].url)

	_, err = files[0].Decrypt(ctx)
	var te *TransportError
	if !errors.As(err, &te) || te.Op != "download" || te.File != "gone.txt" {
		t.Errorf("Decrypt(gone) error = %#v, want download TransportError", err)
	}
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("Decrypt(gone) error = %v, want ErrFileNotFound", err)
	}

	if got, err := files[1].Decrypt(ctx); err != nil || string(got) != "2" {
		t.Errorf("Decrypt(kept) = %q, %v", got, err)
	}
	if text, err := paste.Text(); err != nil || text != "still readable" {
		t.Errorf("Text() = %q, %v", text, err)
	}
}

func TestFileDecrypt_ThroughService(t *testing.T) {
	svc := newTestService(t)
	client := newTestClient(t, svc)
	ctx := context.Background()

	created, err := client.CreatePaste(ctx, Draft{
		Files: []DraftFile{{Name: "notes.md", Content: []byte("# notes")}},
	}, WithPassword("pw"), WithLanguage("markdown"))
	if err != nil {
		t.Fatalf("CreatePaste() error = %v", err)
	}

	paste, err := client.ReadPaste(ctx, created.ID, "pw")
	if err != nil {
		t.Fatalf("ReadPaste() error = %v", err)
	}
	if paste.Language() != "markdown" {
		t.Errorf("Language() = %q", paste.Language())
	}
	files := paste.Files()
	if len(files) != 1 || files[0].Size() != 7 {
		t.Fatalf("Files() = %+v", files)
	}
	got, err := files[0].Decrypt(ctx)
	if err != nil || string(got) != "# notes" {
		t.Errorf("Decrypt() = %q, %v", got, err)
	}
}
