package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Result limits.
const (
	DefaultLimit = 10
	MaxLimit     = 50
)

// Hit is a single matching article.
type Hit struct {
	ID       int64   `json:"id"`
	Slug     string  `json:"slug"`
	Title    string  `json:"title"`
	Excerpt  string  `json:"excerpt"`
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// Result is the outcome of a search.
type Result struct {
	Query string `json:"query"`
	Total uint64 `json:"total"`
	Hits  []Hit  `json:"hits"`
}

// ClampLimit applies DefaultLimit and MaxLimit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

// Search returns published articles matching q, best match first.
func (s *SearchIndex) Search(ctx context.Context, q string, limit int) (*Result, error) {
	q = strings.TrimSpace(q)
	result := &Result{Query: q, Hits: []Hit{}}
	if q == "" {
		return result, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(buildQuery(q), ClampLimit(limit), 0, false)
	req.Fields = []string{"slug", "title", "excerpt", "category"}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	result.Total = res.Total
	for _, h := range res.Hits {
		id, err := strconv.ParseInt(h.ID, 10, 64)
		if err != nil {
			continue
		}
		result.Hits = append(result.Hits, Hit{
			ID:       id,
			Slug:     stringField(h.Fields, "slug"),
			Title:    stringField(h.Fields, "title"),
			Excerpt:  stringField(h.Fields, "excerpt"),
			Category: stringField(h.Fields, "category"),
			Score:    h.Score,
		})
	}
	return result, nil
}

// buildQuery matches prose fields by relevance, weighting the title, and
// tags or category exactly.
func buildQuery(q string) query.Query {
	title := bleve.NewMatchQuery(q)
	title.SetField("title")
	title.SetBoost(3)

	excerpt := bleve.NewMatchQuery(q)
	excerpt.SetField("excerpt")
	excerpt.SetBoost(2)

	content := bleve.NewMatchQuery(q)
	content.SetField("content")

	tag := bleve.NewTermQuery(q)
	tag.SetField("tags")
	tag.SetBoost(2)

	category := bleve.NewTermQuery(q)
	category.SetField("category")

	return bleve.NewDisjunctionQuery(title, excerpt, content, tag, category)
}

func stringField(fields map[string]any, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}
