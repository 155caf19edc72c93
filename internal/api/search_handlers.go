package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/quillpost/quillpost-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchArticles",
		Method:      http.MethodGet,
		Path:        "/api/search",
		Summary:     "Search published articles",
		Description: "Full-text search over titles, excerpts, content, tags and categories",
		Tags:        []string{"Search"},
	}, s.handleSearch)
}

// SearchInput contains search query parameters.
type SearchInput struct {
	Query string `query:"q" maxLength:"200" doc:"Search text"`
	Limit int    `query:"limit" minimum:"0" maximum:"50" doc:"Maximum hits (default 10)"`
}

// SearchOutput wraps search results for Huma.
type SearchOutput struct {
	Body *search.Result
}

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	result, err := s.services.Article.Search(ctx, input.Query, input.Limit)
	if err != nil {
		return nil, err
	}
	return &SearchOutput{Body: result}, nil
}
