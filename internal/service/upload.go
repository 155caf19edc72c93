package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/quillpost/quillpost-server/internal/domain"
	domainerrors "github.com/quillpost/quillpost-server/internal/errors"
	"github.com/quillpost/quillpost-server/internal/media/images"
	"github.com/quillpost/quillpost-server/internal/storage"
)

// UploadService stores operator-uploaded images.
type UploadService struct {
	backend storage.Backend
	keys    *storage.KeyBuilder
	logger  *slog.Logger
}

// NewUploadService creates an upload service writing to backend.
func NewUploadService(backend storage.Backend, keys *storage.KeyBuilder, logger *slog.Logger) *UploadService {
	if keys == nil {
		keys = storage.NewKeyBuilder()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &UploadService{
		backend: backend,
		keys:    keys,
		logger:  logger,
	}
}

// UploadRequest is one uploaded file.
type UploadRequest struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Upload checks the file, stores it under a fresh object key and returns
// where it landed. Nothing is written unless every check passes.
func (s *UploadService) Upload(ctx context.Context, req UploadRequest) (*domain.StoredObject, error) {
	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	if contentType == "image/jpg" {
		contentType = "image/jpeg"
	}

	if err := storage.Validate(contentType, len(req.Data)); err != nil {
		return nil, err
	}
	if !images.Matches(req.Data, contentType) {
		s.logger.Warn("upload content does not match declared type",
			"declared", contentType,
			"detected", images.Sniff(req.Data),
		)
		return nil, domainerrors.Validation("Unsupported file type.")
	}

	key := s.keys.Build(req.Filename)
	url, err := s.backend.Put(ctx, key, req.Data, contentType)
	if err != nil {
		s.logger.Error("upload failed", "provider", s.backend.Name(), "key", key, "error", err)
		return nil, err
	}

	obj := &domain.StoredObject{
		URL:         url,
		Provider:    s.backend.Name(),
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(req.Data)),
	}

	// The placeholder is optional; an undecodable image still uploads.
	if hash, err := images.BlurHash(req.Data); err == nil {
		obj.BlurHash = hash
	} else {
		s.logger.Debug("blurhash skipped", "key", key, "error", err)
	}

	s.logger.Info("image uploaded", "provider", obj.Provider, "key", key, "size", obj.Size)
	return obj, nil
}
