package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/quillpost/quillpost-server/internal/domain"
	"github.com/quillpost/quillpost-server/internal/store"
)

// articleColumns must match the scan order in scanArticle.
const articleColumns = `id, title, slug, category, tags, source_type, source_detail,
	excerpt, content, published, published_at, created_at, updated_at`

// newestFirst is the ordering for every list query.
const newestFirst = ` ORDER BY published_at DESC, id DESC`

func scanArticle(scanner interface{ Scan(dest ...any) error }) (*domain.Article, error) {
	var (
		a            domain.Article
		tags         sql.NullString
		sourceType   string
		sourceDetail sql.NullString
		publishedAt  string
		createdAt    string
		updatedAt    string
	)

	err := scanner.Scan(
		&a.ID,
		&a.Title,
		&a.Slug,
		&a.Category,
		&tags,
		&sourceType,
		&sourceDetail,
		&a.Excerpt,
		&a.Content,
		&a.Published,
		&publishedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Tags = store.DecodeTags(tags)
	a.SourceType = domain.SourceType(sourceType)
	a.SourceDetail = store.StringPtr(sourceDetail)

	if a.PublishedAt, err = parseTime(publishedAt); err != nil {
		return nil, fmt.Errorf("parse published_at: %w", err)
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &a, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateArticle inserts a new article.
// Returns store.ErrAlreadyExists when the slug is taken.
func (s *Store) CreateArticle(ctx context.Context, f *domain.ArticleFields) (*domain.Article, error) {
	tags, err := store.EncodeTags(f.Tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}
	now := formatTime(s.now())

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO articles (title, slug, category, tags, source_type, source_detail,
			excerpt, content, published, published_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
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
		now,
		now,
		now,
	)

	a, err := scanArticle(row)
	if isUniqueViolation(err) {
		return nil, store.ErrAlreadyExists.WithMessage(fmt.Sprintf("slug %q already exists", f.Slug))
	}
	if err != nil {
		return nil, fmt.Errorf("insert article: %w", err)
	}
	return a, nil
}

// UpdateArticle replaces the writable fields of article id.
// Returns store.ErrNotFound for an unknown id and store.ErrAlreadyExists
// when the new slug belongs to another article.
func (s *Store) UpdateArticle(ctx context.Context, id int64, f *domain.ArticleFields) (*domain.Article, error) {
	tags, err := store.EncodeTags(f.Tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE articles SET
			title = ?, slug = ?, category = ?, tags = ?, source_type = ?, source_detail = ?,
			excerpt = ?, content = ?, published = ?, updated_at = ?
		WHERE id = ?
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
		formatTime(s.now()),
		id,
	)

	a, err := scanArticle(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, store.ErrNotFound.WithMessage(fmt.Sprintf("article %d not found", id))
	case isUniqueViolation(err):
		return nil, store.ErrAlreadyExists.WithMessage(fmt.Sprintf("slug %q already exists", f.Slug))
	case err != nil:
		return nil, fmt.Errorf("update article %d: %w", id, err)
	}
	return a, nil
}

// GetArticle retrieves an article by id.
func (s *Store) GetArticle(ctx context.Context, id int64) (*domain.Article, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = ?`, id)
	return s.getOne(row)
}

// GetArticleBySlug retrieves an article by slug regardless of publish state.
func (s *Store) GetArticleBySlug(ctx context.Context, slug string) (*domain.Article, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE slug = ?`, slug)
	return s.getOne(row)
}

func (s *Store) getOne(row *sql.Row) (*domain.Article, error) {
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListPublishedArticles returns published articles, newest first.
func (s *Store) ListPublishedArticles(ctx context.Context) ([]*domain.Article, error) {
	return s.list(ctx, `SELECT `+articleColumns+` FROM articles WHERE published = 1`+newestFirst)
}

// ListRelatedArticles returns up to limit other published articles, newest first.
func (s *Store) ListRelatedArticles(ctx context.Context, slug string, limit int) ([]*domain.Article, error) {
	return s.list(ctx, `SELECT `+articleColumns+` FROM articles
		WHERE published = 1 AND slug <> ?`+newestFirst+` LIMIT ?`, slug, limit)
}

// ListArticles returns all articles including drafts, newest first.
func (s *Store) ListArticles(ctx context.Context) ([]*domain.Article, error) {
	return s.list(ctx, `SELECT `+articleColumns+` FROM articles`+newestFirst)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]*domain.Article, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	articles := []*domain.Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return articles, nil
}

// CountArticles returns total and published counts.
func (s *Store) CountArticles(ctx context.Context) (domain.ArticleStats, error) {
	var total, published int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(published), 0) FROM articles`).Scan(&total, &published)
	if err != nil {
		return domain.ArticleStats{}, fmt.Errorf("count articles: %w", err)
	}
	return domain.NewArticleStats(total, published), nil
}
