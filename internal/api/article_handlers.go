package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/quillpost/quillpost-server/internal/domain"
	"github.com/quillpost/quillpost-server/internal/service"
)

func (s *Server) registerArticleRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listArticles",
		Method:      http.MethodGet,
		Path:        "/api/articles",
		Summary:     "List published articles",
		Description: "Returns every published article, newest first",
		Tags:        []string{"Articles"},
	}, s.handleListArticles)

	huma.Register(s.api, huma.Operation{
		OperationID:   "saveArticle",
		Method:        http.MethodPost,
		Path:          "/api/articles",
		Summary:       "Create or update an article",
		Description:   "Creates an article, or replaces article `id` when given. Responds 201 on create and 200 on update.",
		Tags:          []string{"Articles"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"session": {}}},
	}, s.handleSaveArticle)

	huma.Register(s.api, huma.Operation{
		OperationID: "getArticle",
		Method:      http.MethodGet,
		Path:        "/api/articles/{slug}",
		Summary:     "Get a published article",
		Description: "Returns a published article with related articles and its estimated read time",
		Tags:        []string{"Articles"},
	}, s.handleGetArticle)
}

// === DTOs ===

// ArticleSummary is an article as listed, without its content.
type ArticleSummary struct {
	ID           int64             `json:"id" doc:"Article ID"`
	Title        string            `json:"title" doc:"Title"`
	Slug         string            `json:"slug" doc:"URL slug"`
	Category     string            `json:"category" doc:"Category"`
	Tags         []string          `json:"tags" doc:"Tags"`
	SourceType   domain.SourceType `json:"sourceType" enum:"ORIGINAL,CRAWLER,TRANSCRIPT" doc:"Where the content came from"`
	SourceDetail *string           `json:"sourceDetail" doc:"Source URL or note"`
	Excerpt      string            `json:"excerpt" doc:"Short summary"`
	Published    bool              `json:"published" doc:"Whether the article is public"`
	PublishedAt  time.Time         `json:"publishedAt" doc:"Publication time"`
}

// ArticleDetail is a full article.
type ArticleDetail struct {
	ArticleSummary
	Content   string    `json:"content" doc:"Markdown body"`
	CreatedAt time.Time `json:"createdAt" doc:"Creation time"`
	UpdatedAt time.Time `json:"updatedAt" doc:"Last update time"`
}

func newArticleSummary(a *domain.Article) ArticleSummary {
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	return ArticleSummary{
		ID:           a.ID,
		Title:        a.Title,
		Slug:         a.Slug,
		Category:     a.Category,
		Tags:         tags,
		SourceType:   a.SourceType,
		SourceDetail: a.SourceDetail,
		Excerpt:      a.Excerpt,
		Published:    a.Published,
		PublishedAt:  a.PublishedAt,
	}
}

func newArticleSummaries(articles []*domain.Article) []ArticleSummary {
	out := make([]ArticleSummary, 0, len(articles))
	for _, a := range articles {
		out = append(out, newArticleSummary(a))
	}
	return out
}

func newArticleDetail(a *domain.Article) ArticleDetail {
	return ArticleDetail{
		ArticleSummary: newArticleSummary(a),
		Content:        a.Content,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// ListArticlesOutput wraps the public listing for Huma.
type ListArticlesOutput struct {
	Body []ArticleSummary
}

// SaveArticleRequest is the request body for creating or updating an article.
// Unknown fields are ignored so editors can send back what they received.
type SaveArticleRequest struct {
	_             struct{} `json:"-" additionalProperties:"true"`
	ID            *int64   `json:"id,omitempty" doc:"Article to replace; omit to create"`
	Title         string   `json:"title,omitempty" doc:"Title (required)"`
	Slug          string   `json:"slug,omitempty" doc:"URL slug; derived from the title when empty"`
	Category      string   `json:"category,omitempty" doc:"Category, at most 80 characters"`
	Tags          any      `json:"tags,omitempty" doc:"Array of strings, or one string separated by commas or newlines"`
	SourceType    string   `json:"sourceType,omitempty" doc:"ORIGINAL, CRAWLER or TRANSCRIPT"`
	SourceDetail  string   `json:"sourceDetail,omitempty" doc:"Source URL or note, at most 500 characters"`
	Excerpt       string   `json:"excerpt,omitempty" doc:"Short summary (required)"`
	Content       string   `json:"content,omitempty" doc:"Body (required)"`
	ContentFormat string   `json:"contentFormat,omitempty" doc:"markdown (default) or html"`
	Published     *bool    `json:"published,omitempty" doc:"Defaults to true"`
}

// SaveArticleInput wraps the save request for Huma.
type SaveArticleInput struct {
	Body SaveArticleRequest
}

// SaveArticleResponse is the stored article and whether it replaced an existing one.
type SaveArticleResponse struct {
	ID           int64             `json:"id" doc:"Article ID"`
	Title        string            `json:"title" doc:"Title"`
	Slug         string            `json:"slug" doc:"URL slug"`
	Category     string            `json:"category" doc:"Category"`
	Tags         []string          `json:"tags" doc:"Tags"`
	SourceType   domain.SourceType `json:"sourceType" doc:"Where the content came from"`
	SourceDetail *string           `json:"sourceDetail" doc:"Source URL or note"`
	Updated      bool              `json:"updated" doc:"True when an existing article was replaced"`
}

// SaveArticleOutput carries 201 on create and 200 on update.
type SaveArticleOutput struct {
	Status int
	Body   SaveArticleResponse
}

// GetArticleInput selects an article by slug.
type GetArticleInput struct {
	Slug string `path:"slug" maxLength:"200" doc:"Article slug"`
}

// ArticlePageResponse is an article with what its page shows beside it.
type ArticlePageResponse struct {
	Article  ArticleDetail    `json:"article" doc:"The article"`
	Related  []ArticleSummary `json:"related" doc:"Other recent articles"`
	ReadTime int              `json:"readTime" doc:"Estimated reading time in minutes"`
}

// GetArticleOutput wraps the article page for Huma.
type GetArticleOutput struct {
	Body ArticlePageResponse
}

// === Handlers ===

func (s *Server) handleListArticles(ctx context.Context, _ *struct{}) (*ListArticlesOutput, error) {
	articles, err := s.services.Article.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	return &ListArticlesOutput{Body: newArticleSummaries(articles)}, nil
}

func (s *Server) handleSaveArticle(ctx context.Context, input *SaveArticleInput) (*SaveArticleOutput, error) {
	if _, err := GetPrincipal(ctx); err != nil {
		return nil, err
	}

	body := input.Body
	res, err := s.services.Article.Save(ctx, service.SaveArticleRequest{
		ID:            body.ID,
		Title:         body.Title,
		Slug:          body.Slug,
		Category:      body.Category,
		Tags:          body.Tags,
		SourceType:    body.SourceType,
		SourceDetail:  body.SourceDetail,
		Excerpt:       body.Excerpt,
		Content:       body.Content,
		ContentFormat: body.ContentFormat,
		Published:     body.Published,
	})
	if err != nil {
		return nil, err
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}

	a := res.Article
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	return &SaveArticleOutput{
		Status: status,
		Body: SaveArticleResponse{
			ID:           a.ID,
			Title:        a.Title,
			Slug:         a.Slug,
			Category:     a.Category,
			Tags:         tags,
			SourceType:   a.SourceType,
			SourceDetail: a.SourceDetail,
			Updated:      !res.Created,
		},
	}, nil
}

func (s *Server) handleGetArticle(ctx context.Context, input *GetArticleInput) (*GetArticleOutput, error) {
	view, err := s.services.Article.GetPublished(ctx, input.Slug)
	if err != nil {
		return nil, err
	}

	return &GetArticleOutput{
		Body: ArticlePageResponse{
			Article:  newArticleDetail(view.Article),
			Related:  newArticleSummaries(view.Related),
			ReadTime: view.ReadTime,
		},
	}, nil
}
