// Package store defines the article persistence contract shared by the
// SQLite and Postgres backends.
package store

import (
	"context"

	"github.com/quillpost/quillpost-server/internal/domain"
)

// ArticleStore persists articles. Implementations must be safe for
// concurrent use, including from several processes sharing one database:
// slug uniqueness is enforced by a database constraint and reported as
// ErrAlreadyExists, never by a read-then-write check.
type ArticleStore interface {
	// CreateArticle inserts a new article. PublishedAt is set to now.
	CreateArticle(ctx context.Context, fields *domain.ArticleFields) (*domain.Article, error)

	// UpdateArticle replaces every writable field of article id.
	// Returns ErrNotFound if id does not exist.
	UpdateArticle(ctx context.Context, id int64, fields *domain.ArticleFields) (*domain.Article, error)

	GetArticle(ctx context.Context, id int64) (*domain.Article, error)
	GetArticleBySlug(ctx context.Context, slug string) (*domain.Article, error)

	// ListPublishedArticles returns published articles, newest first.
	ListPublishedArticles(ctx context.Context) ([]*domain.Article, error)

	// ListRelatedArticles returns up to limit published articles other than slug, newest first.
	ListRelatedArticles(ctx context.Context, slug string, limit int) ([]*domain.Article, error)

	// ListArticles returns every article including drafts, newest first.
	ListArticles(ctx context.Context) ([]*domain.Article, error)

	CountArticles(ctx context.Context) (domain.ArticleStats, error)

	Ping(ctx context.Context) error
	Close() error
}

// UpsertArticle creates an article when id is nil and replaces article *id
// otherwise. The bool result reports whether a new row was created.
func UpsertArticle(ctx context.Context, s ArticleStore, id *int64, fields *domain.ArticleFields) (*domain.Article, bool, error) {
	if id == nil {
		a, err := s.CreateArticle(ctx, fields)
		return a, true, err
	}
	a, err := s.UpdateArticle(ctx, *id, fields)
	return a, false, err
}
