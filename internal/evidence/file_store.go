// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package evidence

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tomtom215/paysync/internal/models"
)

// FileStore keeps evidence under a local directory.
type FileStore struct {
	baseDir string
	baseURL string
	limits  Limits
	mu      sync.RWMutex
}

// NewFileStore creates the directory if needed.
func NewFileStore(baseDir, baseURL string, limits Limits) (*FileStore, error) {
	if baseDir == "" {
		return nil, errors.New("evidence directory is required")
	}
	//nolint:gosec // G301: directory is served read-only to support staff
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create evidence dir: %w", err)
	}
	return &FileStore{baseDir: baseDir, baseURL: baseURL, limits: limits}, nil
}

// Backend returns "local".
func (s *FileStore) Backend() string { return "local" }

// Put writes data through a temp file and rename.
func (s *FileStore) Put(ctx context.Context, orderID, name string, data []byte) (models.Evidence, error) {
	if err := ctx.Err(); err != nil {
		return models.Evidence{}, err
	}
	if _, err := s.limits.Check(data); err != nil {
		return models.Evidence{}, err
	}

	key := ObjectKey("", orderID, name, data)
	ref := models.Evidence{Key: key, Name: SanitizeName(name), Size: int64(len(data)), URL: publicURL(s.baseURL, key)}

	s.mu.Lock()
	defer s.mu.Unlock()

	full, err := s.path(key)
	if err != nil {
		return models.Evidence{}, err
	}
	if _, err := os.Stat(full); err == nil {
		return ref, nil
	}
	//nolint:gosec // G301: see NewFileStore
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return models.Evidence{}, fmt.Errorf("create evidence dir: %w", err)
	}

	tmp := full + ".tmp"
	//nolint:gosec // G306: evidence is readable by support tooling
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return models.Evidence{}, fmt.Errorf("write evidence: %w", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp) //nolint:errcheck // best effort cleanup
		return models.Evidence{}, fmt.Errorf("commit evidence: %w", err)
	}
	return ref, nil
}

// Get reads the bytes for key.
func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	full, err := s.path(key)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(full) //nolint:gosec // path is confined by s.path
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read evidence: %w", err)
	}
	return data, nil
}

// path maps key into baseDir and refuses anything that escapes it.
func (s *FileStore) path(key string) (string, error) {
	full := filepath.Join(s.baseDir, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.baseDir, full)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("invalid evidence key %q", key)
	}
	return full, nil
}
