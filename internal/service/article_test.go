package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillpost/quillpost-server/internal/domain"
	domainerrors "github.com/quillpost/quillpost-server/internal/errors"
	"github.com/quillpost/quillpost-server/internal/search"
	"github.com/quillpost/quillpost-server/internal/store/sqlite"
)

type fakeCache struct {
	mu          sync.Mutex
	published   []*domain.Article
	hit         bool
	sets        int
	invalidated int
}

func (c *fakeCache) GetPublished(context.Context) ([]*domain.Article, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.published, c.hit
}

func (c *fakeCache) SetPublished(_ context.Context, articles []*domain.Article) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = articles
	c.sets++
}

func (c *fakeCache) Invalidate(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
}

type publishedEvent struct {
	slug    string
	created bool
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *fakePublisher) PublishArticle(_ context.Context, a *domain.Article, created bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{slug: a.Slug, created: created})
	return nil
}

type articleFixture struct {
	svc       *ArticleService
	store     *sqlite.Store
	index     *search.SearchIndex
	cache     *fakeCache
	publisher *fakePublisher
}

func setupArticleTest(t *testing.T) *articleFixture {
	t.Helper()

	s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	index, err := search.NewSearchIndex(search.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	f := &articleFixture{
		store:     s,
		index:     index,
		cache:     &fakeCache{},
		publisher: &fakePublisher{},
	}
	f.svc = NewArticleService(s, index, f.cache, f.publisher, nil)
	return f
}

func ptr[T any](v T) *T { return &v }

func helloRequest() SaveArticleRequest {
	return SaveArticleRequest{Title: "Hello", Excerpt: "e", Content: "c"}
}

func TestArticleService_Save_Create(t *testing.T) {
	f := setupArticleTest(t)
	ctx := context.Background()

	res, err := f.svc.Save(ctx, helloRequest())
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.NotZero(t, res.Article.ID)
	assert.Equal(t, "hello", res.Article.Slug)
	assert.Equal(t, domain.DefaultCategory, res.Article.Category)
	assert.Equal(t, domain.SourceOriginal, res.Article.SourceType)
	assert.Empty(t, res.Article.Tags)
	assert.Nil(t, res.Article.SourceDetail)
	assert.True(t, res.Article.Published)

	assert.Equal(t, 1, f.cache.invalidated)
	assert.Equal(t, []publishedEvent{{slug: "hello", created: true}}, f.publisher.events)

	count, err := f.index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestArticleService_Save_NormalizesFields(t *testing.T) {
	f := setupArticleTest(t)

	res, err := f.svc.Save(context.Background(), SaveArticleRequest{
		Title:        "  Deploying Go  ",
		Slug:         "Deploy_Go on Aliyun!",
		Category:     "  Ops ",
		Tags:         "docker, 部署，docker\n",
		SourceType:   "crawler",
		SourceDetail: "  https://example.com/post  ",
		Excerpt:      " short ",
		Content:      " body ",
	})
	require.NoError(t, err)

	a := res.Article
	assert.Equal(t, "Deploying Go", a.Title)
	assert.Equal(t, "deploy-go-on-aliyun", a.Slug)
	assert.Equal(t, "Ops", a.Category)
	assert.Equal(t, []string{"docker", "部署"}, a.Tags)
	assert.Equal(t, domain.SourceCrawler, a.SourceType)
	require.NotNil(t, a.SourceDetail)
	assert.Equal(t, "https://example.com/post", *a.SourceDetail)
	assert.Equal(t, "short", a.Excerpt)
	assert.Equal(t, "body", a.Content)
}

func TestArticleService_Save_RequiredFields(t *testing.T) {
	f := setupArticleTest(t)

	tests := []struct {
		name string
		req  SaveArticleRequest
	}{
		{"missing title", SaveArticleRequest{Excerpt: "e", Content: "c"}},
		{"blank excerpt", SaveArticleRequest{Title: "t", Excerpt: "   ", Content: "c"}},
		{"missing content", SaveArticleRequest{Title: "t", Excerpt: "e"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Save(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domainerrors.ErrValidation))

			var domainErr *domainerrors.Error
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, "title/excerpt/content are required.", domainErr.Message)
		})
	}

	assert.Zero(t, f.cache.invalidated)
	assert.Empty(t, f.publisher.events)
}

func TestArticleService_Save_DuplicateSlug(t *testing.T) {
	f := setupArticleTest(t)
	ctx := context.Background()

	_, err := f.svc.Save(ctx, helloRequest())
	require.NoError(t, err)

	_, err = f.svc.Save(ctx, helloRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrConflict))
	assert.Equal(t, `slug "hello" already exists.`, err.Error())
	assert.Len(t, f.publisher.events, 1)
}

func TestArticleService_Save_Update(t *testing.T) {
	f := setupArticleTest(t)
	ctx := context.Background()

	created, err := f.svc.Save(ctx, helloRequest())
	require.NoError(t, err)

	req := helloRequest()
	req.ID = ptr(created.Article.ID)
	req.Title = "Hello again"
	req.Published = ptr(false)

	updated, err := f.svc.Save(ctx, req)
	require.NoError(t, err)
	assert.False(t, updated.Created)
	assert.Equal(t, created.Article.ID, updated.Article.ID)
	assert.Equal(t, "hello-again", updated.Article.Slug)
	assert.False(t, updated.Article.Published)

	// Unpublishing drops the article from the index.
	count, err := f.index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)

	assert.Equal(t, 2, f.cache.invalidated)
	assert.Equal(t, publishedEvent{slug: "hello-again", created: false}, f.publisher.events[1])
}

func TestArticleService_Save_UpdateMissing(t *testing.T) {
	f := setupArticleTest(t)

	req := helloRequest()
	req.ID = ptr(int64(4242))

	_, err := f.svc.Save(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrNotFound))
	assert.Equal(t, "Article not found.", err.Error())
}

func TestArticleService_Save_UpdateSlugTaken(t *testing.T) {
	f := setupArticleTest(t)
	ctx := context.Background()

	_, err := f.svc.Save(ctx, SaveArticleRequest{Title: "First", Excerpt: "e", Content: "c"})
	require.NoError(t, err)
	second, err := f.svc.Save(ctx, SaveArticleRequest{Title: "Second", Excerpt: "e", Content: "c"})
	require.NoError(t, err)

	_, err = f.svc.Save(ctx, SaveArticleRequest{
		ID:      ptr(second.Article.ID),
		Title:   "Second",
		Slug:    "first",
		Excerpt: "e",
		Content: "c",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrConflict))
	assert.Equal(t, `slug "first" already exists.`, err.Error())
}

func TestArticleService_Save_NonPositiveIDCreates(t *testing.T) {
	f := setupArticleTest(t)

	req := helloRequest()
	req.ID = ptr(int64(0))

	res, err := f.svc.Save(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.Created)
}

func TestArticleService_Save_FallbackSlug(t *testing.T) {
	f := setupArticleTest(t)
	f.svc.now = func() time.Time { return time.UnixMilli(1773050400000) }

	res, err := f.svc.Save(context.Background(), SaveArticleRequest{
		Title:   "你好世界",
		Excerpt: "e",
		Content: "c",
	})
	require.NoError(t, err)
	assert.Equal(t, "article-1773050400000", res.Article.Slug)
}

func TestArticleService_Save_HTMLContent(t *testing.T) {
	f := setupArticleTest(t)

	res, err := f.svc.Save(context.Background(), SaveArticleRequest{
		Title:         "Imported",
		Excerpt:       "e",
		Content:       "<p>Hello <strong>world</strong></p>",
		ContentFormat: "html",
	})
	require.NoError(t, err)
	assert.Contains(t, res.Article.Content, "**world**")
	assert.NotContains(t, res.Article.Content, "<p>")
}

func TestArticleService_Save_PublishFailureIsIgnored(t *testing.T) {
	f := setupArticleTest(t)
	f.publisher.err = errors.New("broker down")

	res, err := f.svc.Save(context.Background(), helloRequest())
	require.NoError(t, err)
	assert.True(t, res.Created)
}

func TestArticleService_Save_ConcurrentSameSlug(t *testing.T) {
	f := setupArticleTest(t)

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Save(context.Background(), helloRequest())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, domainerrors.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, writers-1, conflicts)
}

func TestArticleService_ListPublished(t *testing.T) {
	f := setupArticleTest(t)
	ctx := context.Background()

	_, err := f.svc.Save(ctx, SaveArticleRequest{Title: "Live", Excerpt: "e", Content: "c"})
	require.NoError(t, err)
	_, err = f.svc.Save(ctx, SaveArticleRequest{Title: "Draft", Excerpt: "e", Content: "c", Published: ptr(false)})
	require.NoError(t, err)

	articles, err := f.svc.ListPublished(ctx)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "live", articles[0].Slug)
	assert.Equal(t, 1, f.cache.sets)

	// A cache hit skips the store.
	f.cache.hit = true
	f.cache.published = []*domain.Article{{Slug: "cached"}}
	articles, err = f.svc.ListPublished(ctx)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "cached", articles[0].Slug)
}

// slowListingStore runs duringList after the listing query, before the
// service sees its result.
type slowListingStore struct {
	*sqlite.Store
	duringList func()
}

func (s *slowListingStore) ListPublishedArticles(ctx context.Context) ([]*domain.Article, error) {
	articles, err := s.Store.ListPublishedArticles(ctx)
	if s.duringList != nil {
		hook := s.duringList
		s.duringList = nil
		hook()
	}
	return articles, err
}

func TestArticleService_ListPublished_WriteDuringReadIsNotCached(t *testing.T) {
	f := setupArticleTest(t)
	ctx := context.Background()

	_, err := f.svc.Save(ctx, SaveArticleRequest{Title: "Old", Excerpt: "e", Content: "c"})
	require.NoError(t, err)

	slow := &slowListingStore{Store: f.store}
	svc := NewArticleService(slow, nil, f.cache, nil, nil)
	slow.duringList = func() {
		_, err := svc.Save(ctx, SaveArticleRequest{Title: "New", Excerpt: "e", Content: "c"})
		require.NoError(t, err)
	}

	articles, err := svc.ListPublished(ctx)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "old", articles[0].Slug)
	assert.Equal(t, 0, f.cache.sets, "stale listing must not be cached")

	articles, err = svc.ListPublished(ctx)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "new", articles[0].Slug)
	assert.Equal(t, 1, f.cache.sets)
}

func TestArticleService_GetPublished(t *testing.T) {
	f := setupArticleTest(t)
	ctx := context.Background()

	for _, title := range []string{"One", "Two", "Three", "Four", "Five"} {
		_, err := f.svc.Save(ctx, SaveArticleRequest{Title: title, Excerpt: "e", Content: "c"})
		require.NoError(t, err)
	}
	_, err := f.svc.Save(ctx, SaveArticleRequest{Title: "Hidden", Excerpt: "e", Content: "c", Published: ptr(false)})
	require.NoError(t, err)

	view, err := f.svc.GetPublished(ctx, "two")
	require.NoError(t, err)
	assert.Equal(t, "two", view.Article.Slug)
	assert.Equal(t, 3, view.ReadTime)
	require.Len(t, view.Related, RelatedLimit)
	for _, r := range view.Related {
		assert.NotEqual(t, "two", r.Slug)
		assert.True(t, r.Published)
	}

	_, err = f.svc.GetPublished(ctx, "hidden")
	assert.True(t, errors.Is(err, domainerrors.ErrNotFound))

	_, err = f.svc.GetPublished(ctx, "missing")
	assert.True(t, errors.Is(err, domainerrors.ErrNotFound))

	draft, err := f.svc.GetBySlug(ctx, "hidden")
	require.NoError(t, err)
	assert.False(t, draft.Published)

	byID, err := f.svc.GetByID(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, "hidden", byID.Slug)

	_, err = f.svc.GetByID(ctx, 9999)
	assert.True(t, errors.Is(err, domainerrors.ErrNotFound))
}

func TestArticleService_Dashboard(t *testing.T) {
	f := setupArticleTest(t)
	ctx := context.Background()

	_, err := f.svc.Save(ctx, SaveArticleRequest{Title: "Live", Excerpt: "e", Content: "c"})
	require.NoError(t, err)
	_, err = f.svc.Save(ctx, SaveArticleRequest{Title: "Draft", Excerpt: "e", Content: "c", Published: ptr(false)})
	require.NoError(t, err)

	dash, err := f.svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Len(t, dash.Articles, 2)
	assert.Equal(t, domain.ArticleStats{Total: 2, Published: 1, Drafts: 1}, dash.Stats)
}

func TestArticleService_SearchAndRebuild(t *testing.T) {
	f := setupArticleTest(t)
	ctx := context.Background()

	_, err := f.svc.Save(ctx, SaveArticleRequest{
		Title:   "Docker on Aliyun",
		Excerpt: "容器部署",
		Content: "在阿里云上部署 Docker 容器",
	})
	require.NoError(t, err)

	res, err := f.svc.Search(ctx, "docker", 0)
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "docker-on-aliyun", res.Hits[0].Slug)

	// A fresh index is filled from the store.
	index, err := search.NewSearchIndex(search.Options{})
	require.NoError(t, err)
	defer index.Close()

	rebuilt := NewArticleService(f.store, index, nil, nil, nil)
	require.NoError(t, rebuilt.RebuildIndex(ctx))

	res, err = rebuilt.Search(ctx, "阿里云", 5)
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
}

func TestArticleService_SearchWithoutIndex(t *testing.T) {
	f := setupArticleTest(t)
	svc := NewArticleService(f.store, nil, nil, nil, nil)

	res, err := svc.Search(context.Background(), " go ", 10)
	require.NoError(t, err)
	assert.Equal(t, "go", res.Query)
	assert.Empty(t, res.Hits)
	require.NoError(t, svc.RebuildIndex(context.Background()))
}
