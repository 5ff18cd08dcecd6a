package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfitem/rss-ingest/internal/domain/model"
)

func TestUpsertFeed(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteFeedRepository(openTestDB(t))

	require.NoError(t, repo.UpsertFeed(ctx, model.FeedInfo{
		FeedURL: "https://a.example.com/feed",
		Title:   "https://a.example.com/feed",
		Link:    "https://a.example.com",
	}))
	require.NoError(t, repo.UpsertFeed(ctx, model.FeedInfo{
		FeedURL: "https://b.example.com/rss",
		Title:   "B",
	}))
	// 同一地址再次导入时更新标题
	require.NoError(t, repo.UpsertFeed(ctx, model.FeedInfo{
		FeedURL: "https://a.example.com/feed",
		Title:   "A Blog",
		Link:    "https://a.example.com/home",
	}))

	feeds, err := repo.ListFeeds(ctx)
	require.NoError(t, err)
	require.Len(t, feeds, 2)
	assert.Equal(t, "A Blog", feeds[0].Title)
	assert.Equal(t, "https://a.example.com/home", feeds[0].Link)
	assert.Equal(t, "B", feeds[1].Title)
	assert.Equal(t, "", feeds[1].Link)
}
