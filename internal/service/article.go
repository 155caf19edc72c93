package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/quillpost/quillpost-server/internal/cache"
	"github.com/quillpost/quillpost-server/internal/domain"
	domainerrors "github.com/quillpost/quillpost-server/internal/errors"
	"github.com/quillpost/quillpost-server/internal/events"
	"github.com/quillpost/quillpost-server/internal/normalize"
	"github.com/quillpost/quillpost-server/internal/search"
	"github.com/quillpost/quillpost-server/internal/store"
	"github.com/quillpost/quillpost-server/internal/validation"
)

// RelatedLimit is the number of related articles shown beside an article.
const RelatedLimit = 3

// Messages returned to the client verbatim.
const (
	msgRequiredFields  = "title/excerpt/content are required."
	msgArticleNotFound = "Article not found."
	msgSaveFailed      = "Failed to save article."
)

// ArticleService implements article writes and queries.
//
// A successful write is followed by three best-effort side effects: the
// search index is synced, the cached public listing is dropped and an event
// is published. Their failures are logged and never change the outcome.
type ArticleService struct {
	store     store.ArticleStore
	index     *search.SearchIndex
	cache     cache.ListingCache
	publisher events.Publisher
	validator *validation.Validator
	logger    *slog.Logger
	now       func() time.Time

	// Bumped on every write; a listing read across a bump is not cached.
	listingGen atomic.Uint64
}

// NewArticleService creates an article service. index may be nil; a nil
// cache or publisher is replaced by its no-op.
func NewArticleService(
	s store.ArticleStore,
	index *search.SearchIndex,
	listingCache cache.ListingCache,
	publisher events.Publisher,
	logger *slog.Logger,
) *ArticleService {
	if listingCache == nil {
		listingCache = cache.Noop{}
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ArticleService{
		store:     s,
		index:     index,
		cache:     listingCache,
		publisher: publisher,
		validator: validation.New(),
		logger:    logger,
		now:       time.Now,
	}
}

// SaveArticleRequest is an article submission. Tags may be a JSON array or a
// delimited string. Published defaults to true when omitted.
type SaveArticleRequest struct {
	ID            *int64 `json:"id,omitempty"`
	Title         string `json:"title" validate:"notblank"`
	Slug          string `json:"slug,omitempty"`
	Category      string `json:"category,omitempty"`
	Tags          any    `json:"tags,omitempty"`
	SourceType    string `json:"sourceType,omitempty"`
	SourceDetail  string `json:"sourceDetail,omitempty"`
	Excerpt       string `json:"excerpt" validate:"notblank"`
	Content       string `json:"content" validate:"notblank"`
	ContentFormat string `json:"contentFormat,omitempty"`
	Published     *bool  `json:"published,omitempty"`
}

// SaveArticleResult is the stored article and whether it was newly created.
type SaveArticleResult struct {
	Article *domain.Article
	Created bool
}

// Save creates the article when req.ID is absent or not positive, and
// replaces article *req.ID otherwise.
func (s *ArticleService) Save(ctx context.Context, req SaveArticleRequest) (*SaveArticleResult, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Excerpt = strings.TrimSpace(req.Excerpt)
	req.Content = strings.TrimSpace(req.Content)

	if err := s.validator.ValidateWithMessage(req, msgRequiredFields); err != nil {
		return nil, err
	}

	fields, err := s.normalize(req)
	if err != nil {
		return nil, err
	}

	var articleID *int64
	if req.ID != nil && *req.ID > 0 {
		articleID = req.ID
	}

	article, created, err := store.UpsertArticle(ctx, s.store, articleID, fields)
	if err != nil {
		return nil, s.classifyWriteError(err, fields.Slug)
	}

	if created {
		s.logger.Info("article created", "article_id", article.ID, "slug", article.Slug)
	} else {
		s.logger.Info("article updated", "article_id", article.ID, "slug", article.Slug)
	}

	s.afterWrite(ctx, article, created)

	return &SaveArticleResult{Article: article, Created: created}, nil
}

func (s *ArticleService) normalize(req SaveArticleRequest) (*domain.ArticleFields, error) {
	content, err := normalize.Content(req.Content, req.ContentFormat)
	if err != nil {
		return nil, domainerrors.Validation("content could not be converted from HTML.").WithCause(err)
	}
	if strings.TrimSpace(content) == "" {
		return nil, domainerrors.Validation(msgRequiredFields)
	}

	published := true
	if req.Published != nil {
		published = *req.Published
	}

	return &domain.ArticleFields{
		Title:        req.Title,
		Slug:         normalize.ResolveSlug(req.Slug, req.Title, s.now()),
		Category:     normalize.Category(req.Category),
		Tags:         normalize.TagsFromAny(req.Tags),
		SourceType:   normalize.SourceType(req.SourceType),
		SourceDetail: normalize.SourceDetail(req.SourceDetail),
		Excerpt:      req.Excerpt,
		Content:      content,
		Published:    published,
	}, nil
}

func (s *ArticleService) classifyWriteError(err error, slug string) error {
	switch {
	case errors.Is(err, store.ErrAlreadyExists):
		return domainerrors.Conflictf("slug %q already exists.", slug)
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.NotFound(msgArticleNotFound)
	default:
		s.logger.Error("failed to save article", "slug", slug, "error", err)
		return domainerrors.Backend(err, msgSaveFailed)
	}
}

func (s *ArticleService) afterWrite(ctx context.Context, article *domain.Article, created bool) {
	if s.index != nil {
		if err := s.index.Sync(article); err != nil {
			s.logger.Warn("failed to sync search index", "article_id", article.ID, "error", err)
		}
	}

	s.listingGen.Add(1)
	s.cache.Invalidate(ctx)

	if err := s.publisher.PublishArticle(ctx, article, created); err != nil {
		s.logger.Warn("failed to publish article event", "article_id", article.ID, "error", err)
	}
}

// ListPublished returns published articles, newest first, served from the
// listing cache when possible.
func (s *ArticleService) ListPublished(ctx context.Context) ([]*domain.Article, error) {
	if cached, ok := s.cache.GetPublished(ctx); ok {
		return cached, nil
	}

	gen := s.listingGen.Load()
	articles, err := s.store.ListPublishedArticles(ctx)
	if err != nil {
		return nil, domainerrors.Backend(err, "Failed to load articles.")
	}

	// A write landed during the read; caching now would outlive its Invalidate.
	if s.listingGen.Load() == gen {
		s.cache.SetPublished(ctx, articles)
	}
	return articles, nil
}

// ArticleView is a published article with what its page shows beside it.
type ArticleView struct {
	Article  *domain.Article
	Related  []*domain.Article
	ReadTime int
}

// GetPublished returns a published article by slug. Drafts are not found.
func (s *ArticleService) GetPublished(ctx context.Context, slug string) (*ArticleView, error) {
	article, err := s.store.GetArticleBySlug(ctx, slug)
	if err != nil {
		return nil, s.classifyReadError(err)
	}
	if !article.Published {
		return nil, domainerrors.NotFound(msgArticleNotFound)
	}

	related, err := s.store.ListRelatedArticles(ctx, article.Slug, RelatedLimit)
	if err != nil {
		return nil, domainerrors.Backend(err, "Failed to load related articles.")
	}

	return &ArticleView{
		Article:  article,
		Related:  related,
		ReadTime: normalize.ReadTime(article.Content),
	}, nil
}

// GetByID returns any article, draft or not.
func (s *ArticleService) GetByID(ctx context.Context, id int64) (*domain.Article, error) {
	article, err := s.store.GetArticle(ctx, id)
	if err != nil {
		return nil, s.classifyReadError(err)
	}
	return article, nil
}

// GetBySlug returns any article, draft or not.
func (s *ArticleService) GetBySlug(ctx context.Context, slug string) (*domain.Article, error) {
	article, err := s.store.GetArticleBySlug(ctx, slug)
	if err != nil {
		return nil, s.classifyReadError(err)
	}
	return article, nil
}

// Dashboard is the operator's article overview.
type Dashboard struct {
	Articles []*domain.Article
	Stats    domain.ArticleStats
}

// Dashboard lists every article including drafts, with totals.
func (s *ArticleService) Dashboard(ctx context.Context) (*Dashboard, error) {
	articles, err := s.store.ListArticles(ctx)
	if err != nil {
		return nil, domainerrors.Backend(err, "Failed to load articles.")
	}
	stats, err := s.store.CountArticles(ctx)
	if err != nil {
		return nil, domainerrors.Backend(err, "Failed to count articles.")
	}
	return &Dashboard{Articles: articles, Stats: stats}, nil
}

// Search queries the full-text index. Without an index every search is empty.
func (s *ArticleService) Search(ctx context.Context, q string, limit int) (*search.Result, error) {
	if s.index == nil {
		return &search.Result{Query: strings.TrimSpace(q), Hits: []search.Hit{}}, nil
	}
	result, err := s.index.Search(ctx, q, limit)
	if err != nil {
		return nil, domainerrors.Backend(err, "Search failed.")
	}
	return result, nil
}

// RebuildIndex replaces the search index contents with the stored articles.
func (s *ArticleService) RebuildIndex(ctx context.Context) error {
	if s.index == nil {
		return nil
	}

	start := time.Now()
	articles, err := s.store.ListArticles(ctx)
	if err != nil {
		return domainerrors.Backend(err, "Failed to load articles.")
	}
	if err := s.index.Rebuild(articles); err != nil {
		return domainerrors.Backend(err, "Failed to rebuild search index.")
	}

	s.logger.Info("search index rebuilt",
		"articles", len(articles),
		"duration", time.Since(start),
	)
	return nil
}

func (s *ArticleService) classifyReadError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.NotFound(msgArticleNotFound)
	}
	return domainerrors.Backend(err, "Failed to load article.")
}
