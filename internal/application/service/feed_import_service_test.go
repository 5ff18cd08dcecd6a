package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfitem/rss-ingest/internal/domain/model"
	domain "github.com/wolfitem/rss-ingest/internal/domain/service"
	"github.com/wolfitem/rss-ingest/internal/infrastructure/database"
)

// documentFetcher 按地址返回预设文档
type documentFetcher struct {
	docs map[string]string
}

func (f *documentFetcher) Fetch(ctx context.Context, url string) (model.RawFeedDocument, error) {
	doc, ok := f.docs[url]
	if !ok {
		return model.RawFeedDocument{}, &model.FetchError{URL: url, StatusCode: http.StatusNotFound}
	}
	return model.RawFeedDocument{Body: []byte(doc)}, nil
}

type failingFeedStore struct{}

func (failingFeedStore) UpsertFeed(ctx context.Context, info model.FeedInfo) error {
	return errors.New("readonly database")
}

const channelDocument = `<?xml version="1.0"?>
<rss version="2.0"><channel>
<title>Example Blog</title>
<link>https://blog.example.com</link>
<item><title>a</title><link>https://blog.example.com/a</link></item>
</channel></rss>`

func TestImportFeeds(t *testing.T) {
	ctx := context.Background()
	db := database.NewSQLiteDatabase(filepath.Join(t.TempDir(), "feeds.db"))
	require.NoError(t, db.Init())
	defer db.Close()
	repo := database.NewSQLiteFeedRepository(db)

	fetcher := &documentFetcher{docs: map[string]string{
		"https://blog.example.com/feed":  channelDocument,
		"https://broken.example.com/rss": "garbage",
	}}
	importer := NewFeedImportService(fetcher, domain.NewFeedExtractor(domain.FieldLimits{}, false), repo)

	imported, err := importer.Import(ctx, []model.Feed{
		{ID: 1, URL: "https://blog.example.com/feed"},
		{ID: 2, URL: "not-a-url"},
		{ID: 3, URL: "https://missing.example.com/feed"},
		{ID: 4, URL: "https://broken.example.com/rss", Title: "Listed Title"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, imported)

	feeds, err := repo.ListFeeds(ctx)
	require.NoError(t, err)
	require.Len(t, feeds, 3)

	assert.Equal(t, model.FeedInfo{
		FeedURL: "https://blog.example.com/feed",
		Title:   "Example Blog",
		Link:    "https://blog.example.com",
	}, feeds[0])
	// 抓取失败时标题与链接由地址推导
	assert.Equal(t, "https://missing.example.com/feed", feeds[1].Title)
	assert.Equal(t, "https://missing.example.com", feeds[1].Link)
	// 列表中的标题优先于推导的标题
	assert.Equal(t, "Listed Title", feeds[2].Title)
}

func TestImportFeedsStorageError(t *testing.T) {
	fetcher := &documentFetcher{docs: map[string]string{"https://blog.example.com/feed": channelDocument}}
	importer := NewFeedImportService(fetcher, domain.NewFeedExtractor(domain.FieldLimits{}, false), failingFeedStore{})

	imported, err := importer.Import(context.Background(), []model.Feed{{ID: 1, URL: "https://blog.example.com/feed"}})
	assert.ErrorIs(t, err, model.ErrStorageUnavailable)
	assert.Equal(t, 0, imported)
}

func TestImportFeedsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	importer := NewFeedImportService(&documentFetcher{}, domain.NewFeedExtractor(domain.FieldLimits{}, false), failingFeedStore{})
	imported, err := importer.Import(ctx, []model.Feed{{ID: 1, URL: "https://blog.example.com/feed"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, imported)
}

func TestRunnerImportFeeds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, channelDocument)
	}))
	defer server.Close()

	dir := t.TempDir()
	feedsFile := filepath.Join(dir, "feeds.csv")
	require.NoError(t, os.WriteFile(feedsFile, []byte("feed_url\n"+server.URL+"/feed\n"), 0644))

	params := model.IngestParams{
		FeedsFile:      feedsFile,
		FetchConfig:    model.FetchConfig{Timeout: 5},
		DatabaseConfig: model.DatabaseConfig{FilePath: filepath.Join(dir, "feeds.db")},
	}

	// 重复导入按feed_url更新，不产生重复记录
	for i := 0; i < 2; i++ {
		imported, err := NewRunner(params).ImportFeeds(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, imported)
	}

	db := database.NewSQLiteDatabase(params.DatabaseConfig.FilePath)
	require.NoError(t, db.Init())
	defer db.Close()
	feeds, err := database.NewSQLiteFeedRepository(db).ListFeeds(context.Background())
	require.NoError(t, err)
	require.Len(t, feeds, 1)
	assert.Equal(t, "Example Blog", feeds[0].Title)
}
