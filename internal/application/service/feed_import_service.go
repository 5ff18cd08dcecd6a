package service

import (
	"context"
	"fmt"

	"github.com/wolfitem/rss-ingest/internal/domain/model"
	domain "github.com/wolfitem/rss-ingest/internal/domain/service"
	"github.com/wolfitem/rss-ingest/internal/infrastructure/logger"
)

// FeedInfoParser 从订阅文档中读取元数据
type FeedInfoParser interface {
	ParseFeedInfo(document []byte, feedURL string) (model.FeedInfo, error)
}

// FeedStore 订阅源元数据存储
type FeedStore interface {
	UpsertFeed(ctx context.Context, info model.FeedInfo) error
}

// FeedImportService 记录订阅源的标题与网站链接
type FeedImportService struct {
	fetcher   domain.FeedFetcher
	parser    FeedInfoParser
	store     FeedStore
	validator *domain.Validator
}

// NewFeedImportService 创建订阅源导入服务
func NewFeedImportService(fetcher domain.FeedFetcher, parser FeedInfoParser, store FeedStore) *FeedImportService {
	return &FeedImportService{
		fetcher:   fetcher,
		parser:    parser,
		store:     store,
		validator: domain.NewValidator(),
	}
}

// Import 逐个抓取订阅源元数据并写入存储
// 地址无效的订阅源被跳过；抓取或解析失败时使用由地址推导的元数据
func (s *FeedImportService) Import(ctx context.Context, feeds []model.Feed) (int, error) {
	defer logger.TimeTrack("ImportFeeds")()

	imported := 0
	for _, feed := range feeds {
		if err := ctx.Err(); err != nil {
			return imported, err
		}
		if err := s.validator.ValidateURL(feed.URL); err != nil {
			logger.Error("订阅源地址无效，跳过", "url", feed.URL, "error", err)
			continue
		}

		info := s.fetchInfo(ctx, feed)
		if err := s.store.UpsertFeed(ctx, info); err != nil {
			return imported, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
		}
		imported++
		logger.Info("订阅源已记录", "title", info.Title, "link", info.Link)
	}

	logger.Info("订阅源导入完成", "imported", imported, "total", len(feeds))
	return imported, nil
}

func (s *FeedImportService) fetchInfo(ctx context.Context, feed model.Feed) model.FeedInfo {
	doc, err := s.fetcher.Fetch(ctx, feed.URL)
	if err != nil {
		logger.Warn("获取订阅源元数据失败，使用地址作为标题", "url", feed.URL, "error", err)
		return withListTitle(domain.FallbackFeedInfo(feed.URL), feed)
	}

	info, err := s.parser.ParseFeedInfo(doc.Body, feed.URL)
	if err != nil {
		logger.Warn("解析订阅源元数据失败，使用地址作为标题", "url", feed.URL, "error", err)
		return withListTitle(info, feed)
	}
	return info
}

// withListTitle 订阅源列表中提供了标题时优先使用
func withListTitle(info model.FeedInfo, feed model.Feed) model.FeedInfo {
	if feed.Title != "" {
		info.Title = domain.Normalize(feed.Title, 255)
	}
	return info
}
