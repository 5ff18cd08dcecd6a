package service

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gilliek/go-opml/opml"
	"github.com/wolfitem/rss-ingest/internal/domain/model"
	"github.com/wolfitem/rss-ingest/internal/infrastructure/logger"
)

// FeedSource 定义订阅源列表的加载接口
type FeedSource interface {
	// LoadFeeds 按文件顺序返回订阅源，ID从1开始编号
	LoadFeeds(path string) ([]model.Feed, error)
}

// fileFeedSource 从OPML或CSV文件加载订阅源
type fileFeedSource struct {
	validator *Validator
}

// NewFeedSource 创建基于文件的订阅源加载器
func NewFeedSource() FeedSource {
	return &fileFeedSource{validator: NewValidator()}
}

// LoadFeeds 根据扩展名选择OPML或CSV解析
func (s *fileFeedSource) LoadFeeds(path string) ([]model.Feed, error) {
	logger.Info("开始加载订阅源列表", "file", path)
	defer logger.TimeTrack("LoadFeeds")()

	if err := s.validator.ValidateFilePath(path); err != nil {
		return nil, fmt.Errorf("订阅源列表文件无效: %w", err)
	}

	var (
		feeds []model.Feed
		err   error
	)
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		feeds, err = parseCSV(path)
	} else {
		feeds, err = parseOPML(path)
	}
	if err != nil {
		logger.Error("加载订阅源列表失败", "file", path, "error", err)
		return nil, err
	}

	// 按文件顺序编号
	for i := range feeds {
		feeds[i].ID = i + 1
	}

	logger.Info("订阅源列表加载完成", "file", path, "feeds_count", len(feeds))
	return feeds, nil
}

// parseOPML 解析OPML文件并递归提取订阅源
func parseOPML(path string) ([]model.Feed, error) {
	doc, err := opml.NewOPMLFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("解析OPML文件失败: %w", err)
	}

	var feeds []model.Feed
	for _, outline := range doc.Outlines() {
		feeds = append(feeds, extractOutlines(outline)...)
	}
	return feeds, nil
}

// extractOutlines 递归提取outline中的订阅源
func extractOutlines(outline opml.Outline) []model.Feed {
	var feeds []model.Feed

	// 有xmlUrl属性的outline即为订阅源
	if url := strings.TrimSpace(outline.XMLURL); url != "" {
		title := outline.Title
		if title == "" {
			title = outline.Text
		}
		feeds = append(feeds, model.Feed{URL: url, Title: title})
	}

	for _, child := range outline.Outlines {
		feeds = append(feeds, extractOutlines(child)...)
	}

	return feeds
}

// parseCSV 解析带表头的CSV文件，必须包含feed_url列
func parseCSV(path string) ([]model.Feed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开CSV文件失败: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("读取CSV表头失败: %w", err)
	}

	urlCol, titleCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "feed_url":
			urlCol = i
		case "title":
			titleCol = i
		}
	}
	if urlCol < 0 {
		return nil, errors.New("CSV文件缺少feed_url列")
	}

	var feeds []model.Feed
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("读取CSV第%d行失败: %w", line, err)
		}
		if urlCol >= len(record) {
			continue
		}
		url := strings.TrimSpace(record[urlCol])
		if url == "" {
			continue
		}
		feed := model.Feed{URL: url}
		if titleCol >= 0 && titleCol < len(record) {
			feed.Title = strings.TrimSpace(record[titleCol])
		}
		feeds = append(feeds, feed)
	}
	return feeds, nil
}
