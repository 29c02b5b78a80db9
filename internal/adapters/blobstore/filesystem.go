// Package blobstore provides the filesystem-backed payload store for
// uploaded audio content.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/b0vik/subgencluster-api-server/internal/errors"
)

// FilesystemStore stores payloads under a base directory keyed by their
// content-derived storage key. Storing identical content under the same key
// is a safe overwrite, so deduplicated uploads need no existence check.
type FilesystemStore struct {
	baseDir string
	logger  *slog.Logger
}

// NewFilesystemStore creates the base directory if needed and returns a store.
func NewFilesystemStore(baseDir string, logger *slog.Logger) (*FilesystemStore, error) {
	if baseDir == "" {
		return nil, errors.New("base directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create payload directory: %w", err)
	}

	if logger != nil {
		logger = logger.With("component", "blobstore")
	}

	return &FilesystemStore{baseDir: baseDir, logger: logger}, nil
}

// Store persists the payload under key and returns the locator clients use
// to reference it. Writes go through a temp file and rename so a concurrent
// reader never observes a partial payload.
func (s *FilesystemStore) Store(ctx context.Context, key string, payload []byte) (string, error) {
	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.baseDir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp payload: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err = tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write payload: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("close payload: %w", err)
	}

	if err = os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("store payload: %w", err)
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "payload stored", "key", key, "bytes", len(payload))
	}

	return key, nil
}

// Fetch returns the payload stored under locator.
func (s *FilesystemStore) Fetch(ctx context.Context, locator string) ([]byte, error) {
	path, err := s.resolve(locator)
	if err != nil {
		return nil, err
	}

	payload, err := os.ReadFile(path) // #nosec G304 - path is confined to baseDir by resolve
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperrors.NotFoundf("payload %s not found", locator)
	}
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return payload, nil
}

// resolve maps a storage key to a path inside the base directory, rejecting
// traversal attempts.
func (s *FilesystemStore) resolve(key string) (string, error) {
	if key == "" {
		return "", apperrors.Validation("storage key is required")
	}
	if strings.Contains(key, "/") || strings.Contains(key, "..") || filepath.Base(key) != key {
		return "", apperrors.Validationf("invalid storage key %q", key)
	}
	return filepath.Join(s.baseDir, key), nil
}
