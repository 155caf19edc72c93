// Package domain contains the core types shared by the store, services and API.
package domain

import "time"

// SourceType records where an article's content came from.
type SourceType string

// Recognized source types. Anything else normalizes to SourceOriginal.
const (
	SourceOriginal   SourceType = "ORIGINAL"
	SourceCrawler    SourceType = "CRAWLER"
	SourceTranscript SourceType = "TRANSCRIPT"
)

// Valid reports whether t is one of the recognized source types.
func (t SourceType) Valid() bool {
	switch t {
	case SourceOriginal, SourceCrawler, SourceTranscript:
		return true
	}
	return false
}

// DefaultCategory is assigned when an article has no category.
const DefaultCategory = "未分类"

// Article is a stored blog article.
type Article struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Slug         string     `json:"slug"`
	Category     string     `json:"category"`
	Tags         []string   `json:"tags"`
	SourceType   SourceType `json:"sourceType"`
	SourceDetail *string    `json:"sourceDetail"`
	Excerpt      string     `json:"excerpt"`
	Content      string     `json:"content"`
	Published    bool       `json:"published"`
	PublishedAt  time.Time  `json:"publishedAt"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// ArticleFields is the normalized, writable part of an article.
// An update replaces every field; PublishedAt is kept from creation.
type ArticleFields struct {
	Title        string
	Slug         string
	Category     string
	Tags         []string
	SourceType   SourceType
	SourceDetail *string
	Excerpt      string
	Content      string
	Published    bool
}

// ArticleStats summarizes the article table for the operator dashboard.
type ArticleStats struct {
	Total     int
	Published int
	Drafts    int
}

// NewArticleStats derives draft count from the totals. Drafts never goes negative.
func NewArticleStats(total, published int) ArticleStats {
	return ArticleStats{
		Total:     total,
		Published: published,
		Drafts:    max(0, total-published),
	}
}
