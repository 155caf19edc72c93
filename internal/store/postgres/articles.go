package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/quillpost/quillpost-server/internal/domain"
	"github.com/quillpost/quillpost-server/internal/store"
)

// uniqueViolation is the SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

const articleColumns = `id, title, slug, category, tags, source_type, source_detail,
	excerpt, content, published, published_at, created_at, updated_at`

const newestFirst = ` ORDER BY published_at DESC, id DESC`

type articleRow struct {
	ID           int64          `db:"id"`
	Title        string         `db:"title"`
	Slug         string         `db:"slug"`
	Category     string         `db:"category"`
	Tags         sql.NullString `db:"tags"`
	SourceType   string         `db:"source_type"`
	SourceDetail sql.NullString `db:"source_detail"`
	Excerpt      string         `db:"excerpt"`
	Content      string         `db:"content"`
	Published    bool           `db:"published"`
	PublishedAt  time.Time      `db:"published_at"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (r *articleRow) toDomain() *domain.Article {
	return &domain.Article{
		ID:           r.ID,
		Title:        r.Title,
		Slug:         r.Slug,
		Category:     r.Category,
		Tags:         store.DecodeTags(r.Tags),
		SourceType:   domain.SourceType(r.SourceType),
		SourceDetail: store.StringPtr(r.SourceDetail),
		Excerpt:      r.Excerpt,
		Content:      r.Content,
		Published:    r.Published,
		PublishedAt:  r.PublishedAt.UTC(),
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// CreateArticle inserts a new article.
// Returns store.ErrAlreadyExists when the slug is taken.
func (s *Store) CreateArticle(ctx context.Context, f *domain.ArticleFields) (*domain.Article, error) {
	tags, err := store.EncodeTags(f.Tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}

	var row articleRow
	err = s.db.GetContext(ctx, &row, `
		INSERT INTO articles (title, slug, category, tags, source_type, source_detail,
			excerpt, content, published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+articleColumns,
		f.Title,
		f.Slug,
		f.Category,
		tags,
		string(f.SourceType),
		store.NullableString(f.SourceDetail),
		f.Excerpt,
		f.Content,
		f.Published,
	)
	if isUniqueViolation(err) {
		return nil, store.ErrAlreadyExists.WithMessage(fmt.Sprintf("slug %q already exists", f.Slug))
	}
	if err != nil {
		return nil, fmt.Errorf("insert article: %w", err)
	}
	return row.toDomain(), nil
}

// UpdateArticle replaces the writable fields of article id.
func (s *Store) UpdateArticle(ctx context.Context, id int64, f *domain.ArticleFields) (*domain.Article, error) {
	tags, err := store.EncodeTags(f.Tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}

	var row articleRow
	err = s.db.GetContext(ctx, &row, `
		UPDATE articles SET
			title = $1, slug = $2, category = $3, tags = $4, source_type = $5,
			source_detail = $6, excerpt = $7, content = $8, published = $9,
			updated_at = now()
		WHERE id = $10
		RETURNING `+articleColumns,
		f.Title,
		f.Slug,
		f.Category,
		tags,
		string(f.SourceType),
		store.NullableString(f.SourceDetail),
		f.Excerpt,
		f.Content,
		f.Published,
		id,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, store.ErrNotFound.WithMessage(fmt.Sprintf("article %d not found", id))
	case isUniqueViolation(err):
		return nil, store.ErrAlreadyExists.WithMessage(fmt.Sprintf("slug %q already exists", f.Slug))
	case err != nil:
		return nil, fmt.Errorf("update article %d: %w", id, err)
	}
	return row.toDomain(), nil
}

// GetArticle retrieves an article by id.
func (s *Store) GetArticle(ctx context.Context, id int64) (*domain.Article, error) {
	return s.getOne(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = $1`, id)
}

// GetArticleBySlug retrieves an article by slug regardless of publish state.
func (s *Store) GetArticleBySlug(ctx context.Context, slug string) (*domain.Article, error) {
	return s.getOne(ctx, `SELECT `+articleColumns+` FROM articles WHERE slug = $1`, slug)
}

func (s *Store) getOne(ctx context.Context, query string, arg any) (*domain.Article, error) {
	var row articleRow
	err := s.db.GetContext(ctx, &row, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// ListPublishedArticles returns published articles, newest first.
func (s *Store) ListPublishedArticles(ctx context.Context) ([]*domain.Article, error) {
	return s.list(ctx, `SELECT `+articleColumns+` FROM articles WHERE published`+newestFirst)
}

// ListRelatedArticles returns up to limit other published articles, newest first.
func (s *Store) ListRelatedArticles(ctx context.Context, slug string, limit int) ([]*domain.Article, error) {
	return s.list(ctx, `SELECT `+articleColumns+` FROM articles
		WHERE published AND slug <> $1`+newestFirst+` LIMIT $2`, slug, limit)
}

// ListArticles returns all articles including drafts, newest first.
func (s *Store) ListArticles(ctx context.Context) ([]*domain.Article, error) {
	return s.list(ctx, `SELECT `+articleColumns+` FROM articles`+newestFirst)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]*domain.Article, error) {
	var rows []articleRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}

	articles := make([]*domain.Article, 0, len(rows))
	for i := range rows {
		articles = append(articles, rows[i].toDomain())
	}
	return articles, nil
}

// CountArticles returns total and published counts.
func (s *Store) CountArticles(ctx context.Context) (domain.ArticleStats, error) {
	var counts struct {
		Total     int `db:"total"`
		Published int `db:"published"`
	}
	err := s.db.GetContext(ctx, &counts,
		`SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE published) AS published FROM articles`)
	if err != nil {
		return domain.ArticleStats{}, fmt.Errorf("count articles: %w", err)
	}
	return domain.NewArticleStats(counts.Total, counts.Published), nil
}
