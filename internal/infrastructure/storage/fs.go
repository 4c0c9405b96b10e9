// Package storage persists downloaded archives and embedded documents on the
// local filesystem, keyed by a relative path stored on the owning record.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore writes attachments under a fixed root directory.
type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root %s: %w", root, err)
	}
	return &FileStore{root: root}, nil
}

// Save writes data under the given relative name and returns the stored
// relative path. Path traversal in the name is rejected.
func (s *FileStore) Save(name string, data []byte) (string, error) {
	clean := filepath.Clean(name)
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("storage: invalid attachment name %q", name)
	}
	full := filepath.Join(s.root, clean)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("storage: create dir for %s: %w", clean, err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write %s: %w", clean, err)
	}
	return clean, nil
}

// Load reads a previously stored attachment.
func (s *FileStore) Load(name string) ([]byte, error) {
	clean := filepath.Clean(name)
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil, fmt.Errorf("storage: invalid attachment name %q", name)
	}
	data, err := os.ReadFile(filepath.Join(s.root, clean))
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", clean, err)
	}
	return data, nil
}
