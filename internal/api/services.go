package api

import (
	"github.com/quillpost/quillpost-server/internal/search"
	"github.com/quillpost/quillpost-server/internal/service"
	"github.com/quillpost/quillpost-server/internal/store"
)

// Services groups the business logic used by the API server.
type Services struct {
	Store   store.ArticleStore
	Auth    *service.AuthService
	Article *service.ArticleService
	Upload  *service.UploadService
	Search  *search.SearchIndex // Optional; health reports degraded without it
}
