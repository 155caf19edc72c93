package providers

import (
	"github.com/samber/do/v2"

	"github.com/quillpost/quillpost-server/internal/config"
	"github.com/quillpost/quillpost-server/internal/logger"
	"github.com/quillpost/quillpost-server/internal/storage"
)

// ProvideStorageBackend provides the upload backend selected by STORAGE_PROVIDER.
// Remote credentials are checked per upload, not here.
func ProvideStorageBackend(i do.Injector) (storage.Backend, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	sc := cfg.Storage
	backend := storage.New(storage.Config{
		Provider:        sc.Provider,
		PublicRoot:      sc.PublicRoot,
		Region:          sc.Region,
		Endpoint:        sc.Endpoint,
		AccessKeyID:     sc.AccessKeyID,
		AccessKeySecret: sc.AccessKeySecret,
		Bucket:          sc.Bucket,
		PublicBaseURL:   sc.PublicBaseURL,
		UsePathStyle:    sc.UsePathStyle,
	}, log.Logger)

	log.Info("Upload storage initialized", "provider", backend.Name())

	return backend, nil
}

// ProvideKeyBuilder provides the object key generator for uploads.
func ProvideKeyBuilder(i do.Injector) (*storage.KeyBuilder, error) {
	return storage.NewKeyBuilder(), nil
}
