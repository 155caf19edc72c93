package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillpost/quillpost-server/internal/domain"
	"github.com/quillpost/quillpost-server/internal/store"
)

var rowColumns = []string{
	"id", "title", "slug", "category", "tags", "source_type", "source_detail",
	"excerpt", "content", "published", "published_at", "created_at", "updated_at",
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "postgres"), nil), mock
}

func sampleFields() *domain.ArticleFields {
	return &domain.ArticleFields{
		Title:      "Hello",
		Slug:       "hello",
		Category:   "Ops",
		Tags:       []string{"go"},
		SourceType: domain.SourceOriginal,
		Excerpt:    "e",
		Content:    "c",
		Published:  true,
	}
}

func sampleRow(rows *sqlmock.Rows, id int64, slug string, at time.Time) *sqlmock.Rows {
	return rows.AddRow(id, "Hello", slug, "Ops", []byte(`["go", 1, ""]`), "ORIGINAL", nil,
		"e", "c", true, at, at, at)
}

func TestCreateArticle(t *testing.T) {
	s, mock := newMockStore(t)
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO articles").
		WithArgs("Hello", "hello", "Ops", `["go"]`, "ORIGINAL", nil, "e", "c", true).
		WillReturnRows(sampleRow(sqlmock.NewRows(rowColumns), 7, "hello", at))

	a, err := s.CreateArticle(context.Background(), sampleFields())
	require.NoError(t, err)

	assert.Equal(t, int64(7), a.ID)
	assert.Equal(t, []string{"go"}, a.Tags)
	assert.Nil(t, a.SourceDetail)
	assert.Equal(t, at, a.PublishedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateArticle_DuplicateSlug(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO articles").
		WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: "articles_slug_key"})

	_, err := s.CreateArticle(context.Background(), sampleFields())
	assert.True(t, errors.Is(err, store.ErrAlreadyExists))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateArticle_OtherError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO articles").WillReturnError(sql.ErrConnDone)

	_, err := s.CreateArticle(context.Background(), sampleFields())
	require.Error(t, err)
	assert.False(t, errors.Is(err, store.ErrAlreadyExists))
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestUpdateArticle_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("UPDATE articles SET").
		WillReturnRows(sqlmock.NewRows(rowColumns))

	_, err := s.UpdateArticle(context.Background(), 99, sampleFields())
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateArticle_SlugTaken(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("UPDATE articles SET").
		WillReturnError(&pq.Error{Code: uniqueViolation})

	_, err := s.UpdateArticle(context.Background(), 3, sampleFields())
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestGetArticleBySlug_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT .+ FROM articles WHERE slug = \\$1").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(rowColumns))

	_, err := s.GetArticleBySlug(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListRelatedArticles(t *testing.T) {
	s, mock := newMockStore(t)
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(rowColumns)
	sampleRow(rows, 3, "c", at)
	sampleRow(rows, 2, "b", at.Add(-time.Hour))

	mock.ExpectQuery("WHERE published AND slug <> \\$1 ORDER BY published_at DESC, id DESC LIMIT \\$2").
		WithArgs("a", 3).
		WillReturnRows(rows)

	got, err := s.ListRelatedArticles(context.Background(), "a", 3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].Slug)
	assert.Equal(t, "b", got[1].Slug)
}

func TestListArticles_Empty(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT .+ FROM articles ORDER BY").
		WillReturnRows(sqlmock.NewRows(rowColumns))

	got, err := s.ListArticles(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCountArticles(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"total", "published"}).AddRow(5, 3))

	stats, err := s.CountArticles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.ArticleStats{Total: 5, Published: 3, Drafts: 2}, stats)
}
