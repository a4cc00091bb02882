package klistra

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// ExportVersion is the current receipt format version.
const ExportVersion = 1

// ExportedPaste is a creation receipt. It holds no key material: the paste
// id alone opens an unprotected paste, and a protected one also needs the
// password.
type ExportedPaste struct {
	// Version is the receipt format version. MUST be 1.
	Version int `json:"version"`
	// ID is the paste id. Non-empty, no whitespace.
	ID string `json:"id"`
	// URL is the shareable link.
	URL string `json:"url"`
	// ExpiresAt is the paste expiration timestamp (ISO 8601).
	ExpiresAt time.Time `json:"expiresAt"`
	// Protected indicates whether a password is needed to read the paste.
	Protected bool `json:"protected"`
	// Files lists the unencrypted file metadata.
	Files []FileInfo `json:"files,omitempty"`
	// ExportedAt is the export timestamp (ISO 8601). Informational only.
	ExportedAt time.Time `json:"exportedAt"`
}

// Validate checks that the receipt is well formed.
func (e *ExportedPaste) Validate() error {
	if e.Version != ExportVersion {
		return fmt.Errorf("%w: unsupported version %d, expected %d", ErrInvalidImportData, e.Version, ExportVersion)
	}
	if e.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidImportData)
	}
	if strings.ContainsAny(e.ID, " \t\r\n/") {
		return fmt.Errorf("%w: id %q contains invalid characters", ErrInvalidImportData, e.ID)
	}
	if e.ExpiresAt.IsZero() {
		return fmt.Errorf("%w: expiresAt is required", ErrInvalidImportData)
	}
	for i, f := range e.Files {
		if f.Name == "" {
			return fmt.Errorf("%w: file %d has no name", ErrInvalidImportData, i)
		}
		if f.Size < 0 {
			return fmt.Errorf("%w: file %s has negative size", ErrInvalidImportData, f.Name)
		}
	}
	return nil
}

// Export returns the receipt for a created paste.
func (p *CreatedPaste) Export() *ExportedPaste {
	return &ExportedPaste{
		Version:    ExportVersion,
		ID:         p.ID,
		URL:        p.URL,
		ExpiresAt:  p.ExpiresAt,
		Protected:  p.Protected,
		Files:      append([]FileInfo(nil), p.Files...),
		ExportedAt: time.Now().UTC(),
	}
}

// ExportPasteToFile writes the receipt of a created paste to a JSON file
// with owner-only permissions (0600).
func ExportPasteToFile(p *CreatedPaste, filePath string) error {
	if p == nil {
		return fmt.Errorf("paste is nil")
	}

	jsonData, err := json.MarshalIndent(p.Export(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal paste receipt: %w", err) //coverage:ignore
	}

	if err := os.WriteFile(filePath, jsonData, 0600); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// ImportPasteFromFile reads and validates a receipt written by
// ExportPasteToFile.
func ImportPasteFromFile(filePath string) (*ExportedPaste, error) {
	jsonData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var data ExportedPaste
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("%w: parse receipt: %v", ErrInvalidImportData, err)
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}
	return &data, nil
}
