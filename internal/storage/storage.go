// Package storage persists uploaded media and returns a public URL for it.
package storage

import (
	"context"
	"log/slog"
	"strings"

	domainerrors "github.com/quillpost/quillpost-server/internal/errors"
)

// MaxUploadSize is the largest accepted object, in bytes.
const MaxUploadSize = 5 << 20

// Provider names.
const (
	ProviderLocal = "local"
	ProviderS3    = "s3"
	ProviderOSS   = "oss"
)

var allowedTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
}

// Backend stores an object under key and returns its resolvable URL.
type Backend interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Name() string
}

// Config selects and configures a backend.
type Config struct {
	Provider        string
	PublicRoot      string
	Region          string
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	PublicBaseURL   string
	UsePathStyle    bool
}

// AllowedType reports whether contentType may be uploaded.
func AllowedType(contentType string) bool {
	return allowedTypes[strings.ToLower(strings.TrimSpace(contentType))]
}

// Validate checks type and size. Backends call it before touching storage.
func Validate(contentType string, size int) error {
	if !AllowedType(contentType) {
		return domainerrors.Validation("Unsupported file type. Use png/jpeg/webp/gif.")
	}
	if size > MaxUploadSize {
		return domainerrors.Validation("Image too large. Max size is 5MB.")
	}
	if size == 0 {
		return domainerrors.Validation("No file uploaded.")
	}
	return nil
}

// New selects the backend named by cfg.Provider. Unknown names fall back to
// the local filesystem, as does an empty provider.
func New(cfg Config, logger *slog.Logger) Backend {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case ProviderS3, ProviderOSS:
		return NewRemoteStore(provider, cfg, logger)
	case "", ProviderLocal:
	default:
		logger.Warn("unknown storage provider, using local", "provider", cfg.Provider)
	}
	return NewLocalStore(cfg.PublicRoot, logger)
}
