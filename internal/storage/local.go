package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	domainerrors "github.com/quillpost/quillpost-server/internal/errors"
)

// LocalStore writes objects under a directory served at the site root.
type LocalStore struct {
	root   string
	logger *slog.Logger
}

// NewLocalStore creates a store rooted at root.
func NewLocalStore(root string, logger *slog.Logger) *LocalStore {
	if root == "" {
		root = "public"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LocalStore{root: root, logger: logger}
}

// Name returns the provider name.
func (s *LocalStore) Name() string { return ProviderLocal }

// Root returns the directory objects are written to.
func (s *LocalStore) Root() string { return s.root }

// Put writes data to {root}/{key} and returns "/{key}".
func (s *LocalStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := Validate(contentType, len(data)); err != nil {
		return "", err
	}
	if !filepath.IsLocal(filepath.FromSlash(key)) {
		return "", domainerrors.Validation("Invalid object key.")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dst := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", domainerrors.Backend(fmt.Errorf("create upload directory: %w", err), "Upload failed.")
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return "", domainerrors.Backend(fmt.Errorf("write upload: %w", err), "Upload failed.")
	}

	s.logger.Debug("stored upload", "provider", ProviderLocal, "key", key, "size", len(data))
	return "/" + key, nil
}
