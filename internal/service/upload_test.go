package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/quillpost/quillpost-server/internal/errors"
	"github.com/quillpost/quillpost-server/internal/storage"
)

type recordingBackend struct {
	puts []string
	err  error
}

func (b *recordingBackend) Name() string { return "recording" }

func (b *recordingBackend) Put(_ context.Context, key string, _ []byte, _ string) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	b.puts = append(b.puts, key)
	return "https://cdn.example.com/" + key, nil
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for x := range 32 {
		for y := range 24 {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 10), B: 120, A: 255})
		}
	}
	return img
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))
	return buf.Bytes()
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(), nil))
	return buf.Bytes()
}

func TestUploadService_LocalBackend(t *testing.T) {
	root := t.TempDir()
	svc := NewUploadService(storage.NewLocalStore(root, nil), nil, nil)

	obj, err := svc.Upload(context.Background(), UploadRequest{
		Filename:    "Cover Photo.PNG",
		ContentType: "image/png",
		Data:        pngBytes(t),
	})
	require.NoError(t, err)

	assert.Equal(t, storage.ProviderLocal, obj.Provider)
	assert.True(t, strings.HasPrefix(obj.URL, "/uploads/"), obj.URL)
	assert.Equal(t, "/"+obj.Key, obj.URL)
	assert.Contains(t, obj.Key, "-cover-photo-")
	assert.True(t, strings.HasSuffix(obj.Key, ".png"))
	assert.Equal(t, "image/png", obj.ContentType)
	assert.NotEmpty(t, obj.BlurHash)

	written, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(obj.Key)))
	require.NoError(t, err)
	assert.Equal(t, obj.Size, int64(len(written)))
}

func TestUploadService_JPGAlias(t *testing.T) {
	backend := &recordingBackend{}
	svc := NewUploadService(backend, nil, nil)

	obj, err := svc.Upload(context.Background(), UploadRequest{
		Filename:    "photo.jpg",
		ContentType: "image/jpg",
		Data:        jpegBytes(t),
	})
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", obj.ContentType)
	assert.Equal(t, "recording", obj.Provider)
	assert.Len(t, backend.puts, 1)
}

func TestUploadService_RejectsBeforeWrite(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		data        func(t *testing.T) []byte
		message     string
	}{
		{
			name:        "unsupported type",
			contentType: "image/svg+xml",
			data:        func(*testing.T) []byte { return []byte("<svg/>") },
			message:     "Unsupported file type. Use png/jpeg/webp/gif.",
		},
		{
			name:        "too large",
			contentType: "image/png",
			data: func(t *testing.T) []byte {
				return append(pngBytes(t), make([]byte, 6<<20)...)
			},
			message: "Image too large. Max size is 5MB.",
		},
		{
			name:        "empty",
			contentType: "image/png",
			data:        func(*testing.T) []byte { return nil },
			message:     "No file uploaded.",
		},
		{
			name:        "declared type does not match body",
			contentType: "image/jpeg",
			data:        pngBytes,
			message:     "Unsupported file type.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &recordingBackend{}
			svc := NewUploadService(backend, nil, nil)

			_, err := svc.Upload(context.Background(), UploadRequest{
				Filename:    "file.png",
				ContentType: tt.contentType,
				Data:        tt.data(t),
			})
			require.Error(t, err)
			assert.True(t, errors.Is(err, domainerrors.ErrValidation))
			assert.Equal(t, tt.message, err.Error())
			assert.Empty(t, backend.puts)
		})
	}
}

func TestUploadService_BackendFailure(t *testing.T) {
	backend := &recordingBackend{err: storage.ErrRemoteNotConfigured}
	svc := NewUploadService(backend, nil, nil)

	_, err := svc.Upload(context.Background(), UploadRequest{
		Filename:    "a.png",
		ContentType: "image/png",
		Data:        pngBytes(t),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrConfiguration))
}
