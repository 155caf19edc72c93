package api

import (
	"errors"
	"io"
	"net/http"

	domainerrors "github.com/quillpost/quillpost-server/internal/errors"
	"github.com/quillpost/quillpost-server/internal/http/response"
	"github.com/quillpost/quillpost-server/internal/service"
	"github.com/quillpost/quillpost-server/internal/storage"
)

// multipartOverhead is the slack allowed on top of MaxUploadSize for the
// multipart framing around the file.
const multipartOverhead = 1 << 20

var (
	errNoFile  = domainerrors.Validation("No file uploaded.")
	errTooBig  = domainerrors.Validation("Image too large. Max size is 5MB.")
	errBadForm = domainerrors.Validation("Failed to parse form data.")
)

// UploadResponse describes a stored image. Key and ObjectKey are the same
// value; ObjectKey is kept for editors that read the older name.
type UploadResponse struct {
	URL       string `json:"url"`
	Provider  string `json:"provider"`
	Key       string `json:"key"`
	ObjectKey string `json:"objectKey"`
	BlurHash  string `json:"blurhash,omitempty"`
}

// handleUpload stores an image for use in article content.
// POST /api/admin/upload
// Content-Type: multipart/form-data with "file" field
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, err := GetPrincipal(ctx); err != nil {
		response.Error(w, err, s.logger)
		return
	}

	const limit = storage.MaxUploadSize + multipartOverhead
	if r.ContentLength > limit {
		response.Error(w, errTooBig, s.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(w, errTooBig, s.logger)
			return
		}
		response.Error(w, errBadForm, s.logger)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		response.Error(w, errNoFile, s.logger)
		return
	}
	defer file.Close()

	// One byte past the limit is enough for the size check to reject it.
	data, err := io.ReadAll(io.LimitReader(file, storage.MaxUploadSize+1))
	if err != nil {
		s.logger.Error("Failed to read uploaded file", "error", err, "filename", header.Filename)
		response.Error(w, domainerrors.Backend(err, "Failed to read uploaded file."), s.logger)
		return
	}

	obj, err := s.services.Upload.Upload(ctx, service.UploadRequest{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		response.Error(w, err, s.logger)
		return
	}

	response.Success(w, UploadResponse{
		URL:       obj.URL,
		Provider:  obj.Provider,
		Key:       obj.Key,
		ObjectKey: obj.Key,
		BlurHash:  obj.BlurHash,
	}, s.logger)
}
