package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerAdminRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "adminListArticles",
		Method:      http.MethodGet,
		Path:        "/api/admin/articles",
		Summary:     "List all articles",
		Description: "Returns every article including drafts, newest first, with totals",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"session": {}}},
	}, s.handleAdminListArticles)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminGetArticle",
		Method:      http.MethodGet,
		Path:        "/api/admin/articles/{id}",
		Summary:     "Get an article for editing",
		Description: "Returns any article by ID, draft or not",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"session": {}}},
	}, s.handleAdminGetArticle)
}

// ArticleStatsResponse summarizes the article table.
type ArticleStatsResponse struct {
	Total     int `json:"total" doc:"All articles"`
	Published int `json:"published" doc:"Published articles"`
	Drafts    int `json:"drafts" doc:"Unpublished articles"`
}

// DashboardResponse is the operator's article overview.
type DashboardResponse struct {
	Articles []ArticleSummary     `json:"articles" doc:"Every article, newest first"`
	Stats    ArticleStatsResponse `json:"stats" doc:"Totals"`
}

// DashboardOutput wraps the dashboard for Huma.
type DashboardOutput struct {
	Body DashboardResponse
}

// AdminGetArticleInput selects an article by ID.
type AdminGetArticleInput struct {
	ID int64 `path:"id" minimum:"1" doc:"Article ID"`
}

// AdminArticleOutput wraps a full article for Huma.
type AdminArticleOutput struct {
	Body ArticleDetail
}

func (s *Server) handleAdminListArticles(ctx context.Context, _ *struct{}) (*DashboardOutput, error) {
	if _, err := GetPrincipal(ctx); err != nil {
		return nil, err
	}

	dash, err := s.services.Article.Dashboard(ctx)
	if err != nil {
		return nil, err
	}

	return &DashboardOutput{
		Body: DashboardResponse{
			Articles: newArticleSummaries(dash.Articles),
			Stats: ArticleStatsResponse{
				Total:     dash.Stats.Total,
				Published: dash.Stats.Published,
				Drafts:    dash.Stats.Drafts,
			},
		},
	}, nil
}

func (s *Server) handleAdminGetArticle(ctx context.Context, input *AdminGetArticleInput) (*AdminArticleOutput, error) {
	if _, err := GetPrincipal(ctx); err != nil {
		return nil, err
	}

	article, err := s.services.Article.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &AdminArticleOutput{Body: newArticleDetail(article)}, nil
}
