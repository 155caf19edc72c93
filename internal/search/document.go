package search

import (
	"strconv"
	"time"

	"github.com/quillpost/quillpost-server/internal/domain"
)

// ArticleDocument is the indexed form of a published article.
type ArticleDocument struct {
	ID          string
	Slug        string
	Title       string
	Excerpt     string
	Content     string
	Category    string
	Tags        []string
	PublishedAt time.Time
}

// DocumentID returns the index id for an article id.
func DocumentID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// NewArticleDocument converts an article for indexing.
func NewArticleDocument(a *domain.Article) *ArticleDocument {
	return &ArticleDocument{
		ID:          DocumentID(a.ID),
		Slug:        a.Slug,
		Title:       a.Title,
		Excerpt:     a.Excerpt,
		Content:     a.Content,
		Category:    a.Category,
		Tags:        a.Tags,
		PublishedAt: a.PublishedAt,
	}
}

// ToMap converts the document to the field names used by the mapping.
func (d *ArticleDocument) ToMap() map[string]any {
	m := map[string]any{
		"slug":         d.Slug,
		"title":        d.Title,
		"excerpt":      d.Excerpt,
		"content":      d.Content,
		"category":     d.Category,
		"published_at": d.PublishedAt,
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}
	return m
}
