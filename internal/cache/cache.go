// Package cache holds the public article listing in Redis between writes.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quillpost/quillpost-server/internal/domain"
)

// PublishedKey is the Redis key for the public listing.
const PublishedKey = "quillpost:articles:published"

// ListingCache caches the published article listing. Implementations log
// their own failures; a failed Get is a miss.
type ListingCache interface {
	GetPublished(ctx context.Context) ([]*domain.Article, bool)
	SetPublished(ctx context.Context, articles []*domain.Article)
	Invalidate(ctx context.Context)
}

// Noop is used when no Redis URL is configured.
type Noop struct{}

func (Noop) GetPublished(context.Context) ([]*domain.Article, bool) { return nil, false }
func (Noop) SetPublished(context.Context, []*domain.Article)        {}
func (Noop) Invalidate(context.Context)                             {}

// commands is the subset of the Redis client the cache uses.
type commands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Redis is a ListingCache backed by Redis.
type Redis struct {
	client commands
	closer func() error
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedis connects to url and checks the connection.
func NewRedis(ctx context.Context, url string, ttl time.Duration, logger *slog.Logger) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return newRedis(client, client.Close, ttl, logger), nil
}

func newRedis(client commands, closer func() error, ttl time.Duration, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if closer == nil {
		closer = func() error { return nil }
	}
	return &Redis{client: client, closer: closer, ttl: ttl, logger: logger}
}

// GetPublished returns the cached listing.
func (r *Redis) GetPublished(ctx context.Context) ([]*domain.Article, bool) {
	raw, err := r.client.Get(ctx, PublishedKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		r.logger.Warn("listing cache read failed", "error", err)
		return nil, false
	}

	var articles []*domain.Article
	if err := json.Unmarshal(raw, &articles); err != nil {
		r.logger.Warn("listing cache entry is corrupt", "error", err)
		return nil, false
	}
	return articles, true
}

// SetPublished stores the listing for the configured TTL.
func (r *Redis) SetPublished(ctx context.Context, articles []*domain.Article) {
	raw, err := json.Marshal(articles)
	if err != nil {
		r.logger.Warn("listing cache encode failed", "error", err)
		return
	}
	if err := r.client.Set(ctx, PublishedKey, raw, r.ttl).Err(); err != nil {
		r.logger.Warn("listing cache write failed", "error", err)
	}
}

// Invalidate drops the cached listing.
func (r *Redis) Invalidate(ctx context.Context) {
	if err := r.client.Del(ctx, PublishedKey).Err(); err != nil {
		r.logger.Warn("listing cache invalidation failed", "error", err)
	}
}

// Close closes the Redis client.
func (r *Redis) Close() error {
	return r.closer()
}
