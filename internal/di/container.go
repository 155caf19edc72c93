// Package di provides dependency injection configuration for the Quillpost server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/quillpost/quillpost-server/internal/auth"
	"github.com/quillpost/quillpost-server/internal/config"
	"github.com/quillpost/quillpost-server/internal/di/providers"
	"github.com/quillpost/quillpost-server/internal/logger"
	"github.com/quillpost/quillpost-server/internal/ratelimit"
	"github.com/quillpost/quillpost-server/internal/service"
	"github.com/quillpost/quillpost-server/internal/storage"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Persistence
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideListingCache)
	do.Provide(injector, providers.ProvidePublisher)

	// Uploads
	do.Provide(injector, providers.ProvideStorageBackend)
	do.Provide(injector, providers.ProvideKeyBuilder)

	// Auth layer
	do.Provide(injector, providers.ProvideSessionCredential)
	do.Provide(injector, providers.ProvideOperator)
	do.Provide(injector, providers.ProvideLoginLimiter)

	// Business services
	do.Provide(injector, providers.ProvideArticleService)
	do.Provide(injector, providers.ProvideUploadService)
	do.Provide(injector, providers.ProvideAuthService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and starts the HTTP server.
// Providers are lazy; this invokes each one so startup errors surface here.
func Bootstrap(injector *do.RootScope) error {
	steps := []func() error{
		invoke[*config.Config](injector),
		invoke[*logger.Logger](injector),
		invoke[*providers.StoreHandle](injector),
		invoke[*providers.SearchIndexHandle](injector),
		invoke[*providers.ListingCacheHandle](injector),
		invoke[*providers.PublisherHandle](injector),
		invoke[storage.Backend](injector),
		invoke[*storage.KeyBuilder](injector),
		invoke[*auth.SessionCredential](injector),
		invoke[*auth.Operator](injector),
		invoke[*ratelimit.KeyedRateLimiter](injector),
		invoke[*service.ArticleService](injector),
		invoke[*service.UploadService](injector),
		invoke[*service.AuthService](injector),
		invoke[*providers.HTTPServerHandle](injector),
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}

func invoke[T any](injector do.Injector) func() error {
	return func() error {
		_, err := do.Invoke[T](injector)
		return err
	}
}
