package providers

import (
	"github.com/samber/do/v2"

	"github.com/quillpost/quillpost-server/internal/auth"
	"github.com/quillpost/quillpost-server/internal/logger"
	"github.com/quillpost/quillpost-server/internal/ratelimit"
	"github.com/quillpost/quillpost-server/internal/service"
	"github.com/quillpost/quillpost-server/internal/storage"
)

// ProvideArticleService provides the article service.
func ProvideArticleService(i do.Injector) (*service.ArticleService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	cacheHandle := do.MustInvoke[*ListingCacheHandle](i)
	publisherHandle := do.MustInvoke[*PublisherHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewArticleService(
		storeHandle.ArticleStore,
		indexHandle.SearchIndex,
		cacheHandle.ListingCache,
		publisherHandle.Publisher,
		log.Logger,
	), nil
}

// ProvideUploadService provides the image upload service.
func ProvideUploadService(i do.Injector) (*service.UploadService, error) {
	backend := do.MustInvoke[storage.Backend](i)
	keys := do.MustInvoke[*storage.KeyBuilder](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewUploadService(backend, keys, log.Logger), nil
}

// ProvideAuthService provides the operator login service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	operator := do.MustInvoke[*auth.Operator](i)
	credential := do.MustInvoke[*auth.SessionCredential](i)
	limiter := do.MustInvoke[*ratelimit.KeyedRateLimiter](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(operator, credential, limiter, log.Logger), nil
}
