// Package main seeds the article store with sample articles.
//
// Articles are matched by slug, so running the tool again updates the
// samples in place instead of duplicating them. It reads the same flags,
// environment and config file as the server.
//
// Usage:
//
//	go run ./cmd/seed
//	go run ./cmd/seed -db-driver postgres -db-url postgres://...
//
// The search index is not touched; the server rebuilds an empty index at
// startup, so seed before the first start or remove the index directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/samber/do/v2"

	"github.com/quillpost/quillpost-server/internal/di"
	"github.com/quillpost/quillpost-server/internal/di/providers"
	domainerrors "github.com/quillpost/quillpost-server/internal/errors"
	"github.com/quillpost/quillpost-server/internal/logger"
	"github.com/quillpost/quillpost-server/internal/service"
)

var samples = []service.SaveArticleRequest{
	{
		Title:        "欢迎来到我的技术博客",
		Slug:         "welcome-to-my-blog",
		Category:     "项目日志",
		Tags:         []string{"Go", "SQLite", "Docker"},
		SourceType:   "ORIGINAL",
		SourceDetail: "作者原创内容",
		Excerpt:      "这是第一篇文章，用于验证博客的发布流程是否正常。",
		Content: "你好，世界。\n\n" +
			"这个博客由 Go 服务端驱动，支持 Docker 一键部署到阿里云服务器。\n\n" +
			"后续我会在这里记录开发经验、部署技巧和实战踩坑。",
		Published: boolPtr(true),
	},
	{
		Title:        "阿里云 Docker 部署实践",
		Slug:         "aliyun-docker-deploy",
		Category:     "运维部署",
		Tags:         []string{"Docker", "阿里云", "部署"},
		SourceType:   "TRANSCRIPT",
		SourceDetail: "由部署录屏转录后整理",
		Excerpt:      "记录如何通过 docker compose 快速上线一个可持续更新的博客站点。",
		Content: "部署步骤建议：\n" +
			"1. 安装 Docker 与 Docker Compose。\n" +
			"2. 拉取代码并配置环境变量。\n" +
			"3. 执行 docker compose up -d --build。\n\n" +
			"之后可以通过 docker compose logs -f 查看运行状态。",
		Published: boolPtr(true),
	},
}

func boolPtr(b bool) *bool { return &b }

func main() {
	injector := di.NewContainer()

	if err := run(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Seed failed: %v\n", err)
		_ = injector.Shutdown()
		os.Exit(1)
	}

	if err := injector.Shutdown(); err != nil {
		fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
	}
}

func run(injector do.Injector) error {
	log, err := do.Invoke[*logger.Logger](injector)
	if err != nil {
		return err
	}
	storeHandle, err := do.Invoke[*providers.StoreHandle](injector)
	if err != nil {
		return err
	}
	cacheHandle, err := do.Invoke[*providers.ListingCacheHandle](injector)
	if err != nil {
		return err
	}
	publisherHandle, err := do.Invoke[*providers.PublisherHandle](injector)
	if err != nil {
		return err
	}

	articles := service.NewArticleService(
		storeHandle.ArticleStore,
		nil,
		cacheHandle.ListingCache,
		publisherHandle.Publisher,
		log.Logger,
	)

	ctx := context.Background()
	for _, sample := range samples {
		req := sample

		existing, err := articles.GetBySlug(ctx, req.Slug)
		switch {
		case err == nil:
			req.ID = &existing.ID
		case errors.Is(err, domainerrors.ErrNotFound):
		default:
			return err
		}

		res, err := articles.Save(ctx, req)
		if err != nil {
			return fmt.Errorf("save %q: %w", req.Slug, err)
		}
		log.Info("Seeded article",
			"id", res.Article.ID,
			"slug", res.Article.Slug,
			"created", res.Created,
		)
	}

	log.Info("Seed completed", "articles", len(samples))
	return nil
}
