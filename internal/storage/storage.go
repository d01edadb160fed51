// Package storage persists uploaded document files on local disk under
// content-addressed paths, so repeated uploads of the same bytes share a
// single file and paths never collide.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrTooLarge is returned when an upload exceeds the configured size cap.
var ErrTooLarge = errors.New("storage: file exceeds maximum upload size")

// FileStore writes files beneath a root directory, named by the SHA-256 of
// their content with a two-character fan-out prefix (ab/abc123....pdf).
type FileStore struct {
	root     string
	maxBytes int64
}

// NewFileStore creates the root directory if needed and returns a store.
// maxBytes of zero means no size cap.
func NewFileStore(root string, maxBytes int64) (*FileStore, error) {
	if root == "" {
		return nil, errors.New("storage: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &FileStore{root: root, maxBytes: maxBytes}, nil
}

// Save streams r to disk and returns the path of the stored file, relative
// to the store root. The extension of filename is preserved so downstream
// extraction can pick a strategy from the stored path alone.
func (s *FileStore) Save(filename string, r io.Reader) (string, error) {
	tmp, err := os.CreateTemp(s.root, "upload-*")
	if err != nil {
		return "", fmt.Errorf("storage: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	limit := r
	if s.maxBytes > 0 {
		limit = io.LimitReader(r, s.maxBytes+1)
	}

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(tmp, hasher), limit)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("storage: write upload: %w", err)
	}
	if s.maxBytes > 0 && written > s.maxBytes {
		return "", ErrTooLarge
	}

	digest := hex.EncodeToString(hasher.Sum(nil))
	relPath := filepath.Join(digest[:2], digest+strings.ToLower(filepath.Ext(filename)))

	finalPath := filepath.Join(s.root, relPath)
	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: create shard dir: %w", err)
	}
	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		return "", fmt.Errorf("storage: place upload: %w", err)
	}
	return relPath, nil
}

// Path resolves a stored relative path to an absolute filesystem path.
func (s *FileStore) Path(relPath string) string {
	return filepath.Join(s.root, relPath)
}
