package database

import (
	"context"
	"fmt"

	"github.com/wolfitem/rss-ingest/internal/domain/model"
)

// FeedRepository 定义订阅源元数据存储库接口
type FeedRepository interface {
	// UpsertFeed 按feed_url插入或更新订阅源
	UpsertFeed(ctx context.Context, info model.FeedInfo) error
	// ListFeeds 返回全部已记录的订阅源
	ListFeeds(ctx context.Context) ([]model.FeedInfo, error)
}

// SQLiteFeedRepository 实现FeedRepository接口
type SQLiteFeedRepository struct {
	db Database
}

// NewSQLiteFeedRepository 创建订阅源存储库
func NewSQLiteFeedRepository(db Database) *SQLiteFeedRepository {
	return &SQLiteFeedRepository{db: db}
}

// UpsertFeed 插入或更新订阅源
func (r *SQLiteFeedRepository) UpsertFeed(ctx context.Context, info model.FeedInfo) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO feeds (title, feed_url, link) VALUES (?, ?, ?)
	ON CONFLICT(feed_url) DO UPDATE SET title = excluded.title, link = excluded.link
	`, info.Title, info.FeedURL, info.Link)
	if err != nil {
		return fmt.Errorf("保存订阅源失败: %w", err)
	}
	return nil
}

// ListFeeds 按插入顺序返回订阅源
func (r *SQLiteFeedRepository) ListFeeds(ctx context.Context) ([]model.FeedInfo, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT feed_url, title, link FROM feeds ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("查询订阅源失败: %w", err)
	}
	defer rows.Close()

	var feeds []model.FeedInfo
	for rows.Next() {
		var info model.FeedInfo
		if err := rows.Scan(&info.FeedURL, &info.Title, &info.Link); err != nil {
			return nil, fmt.Errorf("读取订阅源失败: %w", err)
		}
		feeds = append(feeds, info)
	}
	return feeds, rows.Err()
}
