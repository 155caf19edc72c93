package providers

import (
	"context"
	"io"

	"github.com/samber/do/v2"

	"github.com/quillpost/quillpost-server/internal/cache"
	"github.com/quillpost/quillpost-server/internal/config"
	"github.com/quillpost/quillpost-server/internal/events"
	"github.com/quillpost/quillpost-server/internal/logger"
)

// ListingCacheHandle wraps the listing cache with shutdown capability.
type ListingCacheHandle struct {
	cache.ListingCache
}

// Shutdown implements do.Shutdownable.
func (h *ListingCacheHandle) Shutdown() error {
	if c, ok := h.ListingCache.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ProvideListingCache connects to Redis when REDIS_URL is set. Without it, or
// when Redis is unreachable, listings are read from the store every time.
func ProvideListingCache(i do.Injector) (*ListingCacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Redis.URL == "" {
		log.Info("Listing cache disabled")
		return &ListingCacheHandle{ListingCache: cache.Noop{}}, nil
	}

	r, err := cache.NewRedis(context.Background(), cfg.Redis.URL, cfg.Redis.TTL, log.Logger)
	if err != nil {
		log.Warn("Listing cache unavailable, continuing without it", "error", err)
		return &ListingCacheHandle{ListingCache: cache.Noop{}}, nil
	}

	log.Info("Listing cache connected", "ttl", cfg.Redis.TTL)
	return &ListingCacheHandle{ListingCache: r}, nil
}

// PublisherHandle wraps the article event publisher with shutdown capability.
type PublisherHandle struct {
	events.Publisher
}

// Shutdown implements do.Shutdownable.
func (h *PublisherHandle) Shutdown() error {
	if c, ok := h.Publisher.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ProvidePublisher connects to RabbitMQ when AMQP_URL is set. Article writes
// never depend on it, so a failed connection only disables events.
func ProvidePublisher(i do.Injector) (*PublisherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.AMQP.URL == "" {
		log.Info("Article events disabled")
		return &PublisherHandle{Publisher: events.Noop{}}, nil
	}

	p, err := events.NewRabbitMQ(events.Config{
		URL:        cfg.AMQP.URL,
		Exchange:   cfg.AMQP.Exchange,
		RoutingKey: cfg.AMQP.RoutingKey,
	}, log.Logger)
	if err != nil {
		log.Warn("Article events unavailable, continuing without them", "error", err)
		return &PublisherHandle{Publisher: events.Noop{}}, nil
	}

	return &PublisherHandle{Publisher: p}, nil
}
