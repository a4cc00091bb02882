package api

import "time"

// ServerInfo represents the /api/server-info response.
type ServerInfo struct {
	MinExpiry     int    `json:"minExpiry"`
	MaxExpiry     int    `json:"maxExpiry"`
	DefaultExpiry int    `json:"defaultExpiry"`
	MaxFileSize   int64  `json:"maxFileSize"`
	Algs          string `json:"algs"`
}

// FileEntry references one encrypted file blob. Name and Size describe the
// plaintext file and are stored unencrypted.
type FileEntry struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

// CreatePasteRequest represents the POST /api/pastes request.
//
// Text is a base64url text envelope. Protected pastes carry Verifier and Salt
// and never Key; unprotected pastes carry Key.
type CreatePasteRequest struct {
	Text      string      `json:"text,omitempty"`
	Expiry    int         `json:"expiry"`
	Protected bool        `json:"protected"`
	Verifier  string      `json:"verifier,omitempty"`
	Salt      string      `json:"salt,omitempty"`
	Key       string      `json:"key,omitempty"`
	Language  string      `json:"language,omitempty"`
	Files     []FileEntry `json:"files,omitempty"`
}

// CreatePasteResponse represents the POST /api/pastes response.
type CreatePasteResponse struct {
	ID          string    `json:"id"`
	ExpiresAt   time.Time `json:"expiresAt"`
	TimeoutUnix int64     `json:"timeoutUnix"`
}

// PasteResponse represents the GET /api/pastes/{id} response.
//
// For a protected paste read without a valid verifier, Text and Files are nil
// and only Salt is populated.
type PasteResponse struct {
	ID          string      `json:"id"`
	Protected   bool        `json:"protected"`
	Text        *string     `json:"text"`
	Files       []FileEntry `json:"files"`
	Salt        string      `json:"salt,omitempty"`
	Key         string      `json:"key,omitempty"`
	TimeoutUnix int64       `json:"timeoutUnix"`
	Language    string      `json:"language,omitempty"`
}

// Locked reports whether the response withheld content pending a verifier.
func (p *PasteResponse) Locked() bool {
	return p.Protected && p.Text == nil && p.Files == nil
}

// PasteStatus represents the GET /api/pastes/{id}/status response.
type PasteStatus struct {
	ID          string `json:"id"`
	Protected   bool   `json:"protected"`
	TimeoutUnix int64  `json:"timeoutUnix"`
}

// UploadResponse represents the POST /api/files/{name} response.
type UploadResponse struct {
	URL string `json:"url"`
}

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}
