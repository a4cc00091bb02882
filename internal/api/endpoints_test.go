package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/klistra/client-go/internal/apierrors"
)

func TestCreatePaste(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/pastes" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		var req CreatePasteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !req.Protected || req.Verifier == "" || req.Key != "" {
			t.Errorf("unexpected protected request: %+v", req)
		}
		if len(req.Files) != 1 || req.Files[0].Name != "notes.txt" {
			t.Errorf("Files = %+v", req.Files)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(CreatePasteResponse{ID: "calm-river-0a1b2c", TimeoutUnix: 1700000000})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 0)

	resp, err := client.CreatePaste(context.Background(), &CreatePasteRequest{
		Text:      "ciphertext",
		Expiry:    3600,
		Protected: true,
		Verifier:  "verifier",
		Salt:      "salt",
		Files:     []FileEntry{{Name: "notes.txt", Size: 5, URL: "/api/files/x.bin"}},
	})
	if err != nil {
		t.Fatalf("CreatePaste() error = %v", err)
	}
	if resp.ID != "calm-river-0a1b2c" {
		t.Errorf("ID = %q", resp.ID)
	}
}

func TestCreatePaste_MissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 0)
	if _, err := client.CreatePaste(context.Background(), &CreatePasteRequest{Expiry: 60}); err == nil {
		t.Error("expected error for response without id")
	}
}

func TestGetPaste_VerifierHeader(t *testing.T) {
	tests := []struct {
		name     string
		verifier string
	}{
		{"metadata only", ""},
		{"with verifier", "dmVyaWZpZXI"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/pastes/calm-river-0a1b2c" {
					t.Errorf("path = %s", r.URL.Path)
				}
				got, present := r.Header[http.CanonicalHeaderKey(HeaderVerifier)]
				if tt.verifier == "" && present {
					t.Errorf("verifier header sent: %v", got)
				}
				if tt.verifier != "" && r.Header.Get(HeaderVerifier) != tt.verifier {
					t.Errorf("verifier = %q, want %q", r.Header.Get(HeaderVerifier), tt.verifier)
				}
				w.Write([]byte(`{"id":"calm-river-0a1b2c","protected":true,"text":null,"files":null,"salt":"c2FsdA"}`))
			}))
			defer server.Close()

			client := newTestClient(t, server.URL, 0)
			resp, err := client.GetPaste(context.Background(), "calm-river-0a1b2c", tt.verifier)
			if err != nil {
				t.Fatalf("GetPaste() error = %v", err)
			}
			if !resp.Locked() {
				t.Error("Locked() = false for protected response without content")
			}
		})
	}
}

func TestGetPaste_NotFoundIsPasteScoped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"paste not found"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 0)
	_, err := client.GetPaste(context.Background(), "missing", "")
	if !errors.Is(err, apierrors.ErrPasteNotFound) {
		t.Errorf("error = %v, want ErrPasteNotFound", err)
	}
	if errors.Is(err, apierrors.ErrFileNotFound) {
		t.Error("paste 404 should not match ErrFileNotFound")
	}
}

func TestPasteResponse_Locked(t *testing.T) {
	text := "abc"
	tests := []struct {
		name string
		resp PasteResponse
		want bool
	}{
		{"protected without content", PasteResponse{Protected: true}, true},
		{"protected with text", PasteResponse{Protected: true, Text: &text}, false},
		{"protected with files only", PasteResponse{Protected: true, Files: []FileEntry{}}, false},
		{"unprotected", PasteResponse{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resp.Locked(); got != tt.want {
				t.Errorf("Locked() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetPasteStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pastes/abc/status" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"id":"abc","protected":true,"timeoutUnix":42}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 0)
	status, err := client.GetPasteStatus(context.Background(), "abc")
	if err != nil {
		t.Fatalf("GetPasteStatus() error = %v", err)
	}
	if !status.Protected || status.TimeoutUnix != 42 {
		t.Errorf("status = %+v", status)
	}
}

func TestUploadAndDownloadBlob(t *testing.T) {
	blobs := map[string][]byte{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/files/{name}", func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		blobs[r.PathValue("name")] = data
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(UploadResponse{URL: "/api/files/" + r.PathValue("name")})
	})
	mux.HandleFunc("GET /api/files/{name}", func(w http.ResponseWriter, r *http.Request) {
		data, ok := blobs[r.PathValue("name")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(data)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL, 0)
	ctx := context.Background()

	url, err := client.UploadBlob(ctx, "blob-1.bin", []byte("sealed bytes"))
	if err != nil {
		t.Fatalf("UploadBlob() error = %v", err)
	}
	if url != server.URL+"/api/files/blob-1.bin" {
		t.Errorf("url = %q, want absolute url", url)
	}

	data, err := client.DownloadBlob(ctx, url)
	if err != nil {
		t.Fatalf("DownloadBlob() error = %v", err)
	}
	if string(data) != "sealed bytes" {
		t.Errorf("DownloadBlob() = %q", data)
	}

	_, err = client.DownloadBlob(ctx, "/api/files/missing.bin")
	if !errors.Is(err, apierrors.ErrFileNotFound) {
		t.Errorf("missing blob error = %v, want ErrFileNotFound", err)
	}
}

func TestGetServerInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"minExpiry":60,"maxExpiry":604800,"defaultExpiry":3600,"maxFileSize":33554432,"algs":"ARGON2ID:HKDF-SHA-512:AES-256-GCM"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 0)
	info, err := client.GetServerInfo(context.Background())
	if err != nil {
		t.Fatalf("GetServerInfo() error = %v", err)
	}
	if info.MinExpiry != 60 || info.MaxExpiry != 604800 || info.MaxFileSize != 32<<20 {
		t.Errorf("info = %+v", info)
	}
}
