package service

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/wolfitem/rss-ingest/internal/domain/model"
	"github.com/wolfitem/rss-ingest/internal/infrastructure/logger"
)

// feedInfoMaxLength 订阅源标题和链接的最大长度
const feedInfoMaxLength = 255

// EntryExtractor 定义从订阅文档提取条目的接口
type EntryExtractor interface {
	Extract(document []byte, feedID int) (model.ExtractResult, error)
}

// FeedExtractor 基于gofeed实现EntryExtractor
type FeedExtractor struct {
	limits    FieldLimits
	stripHTML bool
	log       *logger.ContextLogger
}

// NewFeedExtractor 创建条目提取器
func NewFeedExtractor(limits FieldLimits, stripHTML bool) *FeedExtractor {
	return &FeedExtractor{
		limits:    limits,
		stripHTML: stripHTML,
		log:       logger.WithContext("extractor"),
	}
}

// parse 解析订阅文档；gofeed.Parser不可并发使用，每次新建
func parse(document []byte) (*gofeed.Feed, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrParseFailure, err)
	}
	return feed, nil
}

// Extract 解析文档并逐条生成规范化条目
// 单条条目失败只跳过该条目，不影响其它条目
func (e *FeedExtractor) Extract(document []byte, feedID int) (model.ExtractResult, error) {
	var result model.ExtractResult

	feed, err := parse(document)
	if err != nil {
		return result, err
	}
	if len(feed.Items) == 0 {
		return result, fmt.Errorf("%w: 没有条目", model.ErrParseFailure)
	}

	result.Entries = make([]model.Entry, 0, len(feed.Items))
	for i, item := range feed.Items {
		entry, err := e.extractItem(item, feedID)
		if err != nil {
			e.log.Warn("跳过无法处理的条目", "feed_id", feedID, "index", i, "error", err)
			result.Skipped = append(result.Skipped, model.SkippedEntry{Index: i, Reason: err.Error()})
			continue
		}
		result.Entries = append(result.Entries, entry)
	}

	return result, nil
}

// extractItem 处理单条条目，panic被转换为ErrEntryFailure
func (e *FeedExtractor) extractItem(item *gofeed.Item, feedID int) (entry model.Entry, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", model.ErrEntryFailure, r)
		}
	}()

	if item == nil {
		return model.Entry{}, fmt.Errorf("%w: 条目为空", model.ErrEntryFailure)
	}

	return e.Resolve(ToRawEntry(item), feedID), nil
}

// Resolve 按回退链将RawEntry转换为Entry
func (e *FeedExtractor) Resolve(raw model.RawEntry, feedID int) model.Entry {
	link := CleanMarkup(raw.Link)
	entryID := coalesce(CleanMarkup(raw.ID), link)

	summary := CleanMarkup(coalesce(raw.Summary, raw.Description))
	if e.stripHTML {
		summary = StripHTML(summary)
	}

	return model.Entry{
		FeedID:    feedID,
		Title:     Normalize(CleanMarkup(raw.Title), e.limits.limit(e.limits.Title)),
		Link:      Normalize(link, e.limits.limit(e.limits.Link)),
		Published: ResolvePublished(raw),
		Author:    Normalize(CleanMarkup(raw.Author), e.limits.limit(e.limits.Author)),
		EntryID:   Normalize(entryID, e.limits.limit(e.limits.EntryID)),
		Summary:   Normalize(summary, e.limits.limit(e.limits.Summary)),
	}
}

// ResolvePublished 依次尝试发布、更新、创建日期，第一个成功解析的生效
func ResolvePublished(raw model.RawEntry) *time.Time {
	for _, field := range []model.DateField{raw.Published, raw.Updated, raw.Created} {
		if t, ok := parseDateField(field); ok {
			return &t
		}
	}
	return nil
}

func parseDateField(field model.DateField) (time.Time, bool) {
	if field.IsZero() {
		return time.Time{}, false
	}
	if field.Parsed != nil && !field.Parsed.IsZero() {
		return field.Parsed.UTC(), true
	}
	raw := strings.TrimSpace(field.Raw)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// ToRawEntry 将gofeed条目转换为显式的可选字段记录
func ToRawEntry(item *gofeed.Item) model.RawEntry {
	raw := model.RawEntry{
		Title:       item.Title,
		Link:        item.Link,
		Summary:     item.Description,
		Description: item.Content,
		Author:      itemAuthor(item),
		ID:          item.GUID,
		Published:   model.DateField{Raw: item.Published, Parsed: item.PublishedParsed},
		Updated:     model.DateField{Raw: item.Updated, Parsed: item.UpdatedParsed},
		Created:     model.DateField{Raw: extensionValue(item.Extensions, "created", "dcterms", "dc")},
	}
	if raw.Link == "" && len(item.Links) > 0 {
		raw.Link = item.Links[0]
	}
	return raw
}

func itemAuthor(item *gofeed.Item) string {
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	for _, a := range item.Authors {
		if a != nil && a.Name != "" {
			return a.Name
		}
	}
	if item.Author != nil && item.Author.Email != "" {
		return item.Author.Email
	}
	if item.DublinCoreExt != nil && len(item.DublinCoreExt.Creator) > 0 {
		return item.DublinCoreExt.Creator[0]
	}
	return ""
}

// extensionValue 在给定命名空间中查找扩展元素的文本值
func extensionValue(exts ext.Extensions, name string, namespaces ...string) string {
	for _, ns := range namespaces {
		elems, ok := exts[ns][name]
		if !ok {
			continue
		}
		for _, el := range elems {
			if v := strings.TrimSpace(el.Value); v != "" {
				return v
			}
		}
	}
	return ""
}

// ParseFeedInfo 提取订阅源标题和网站链接，缺失时回退到订阅地址
func (e *FeedExtractor) ParseFeedInfo(document []byte, feedURL string) (model.FeedInfo, error) {
	info := FallbackFeedInfo(feedURL)

	feed, err := parse(document)
	if err != nil {
		return info, err
	}

	if title := CleanMarkup(feed.Title); title != "" {
		info.Title = Normalize(title, feedInfoMaxLength)
	}
	if link := strings.TrimSpace(feed.Link); link != "" && NewValidator().ValidateURL(link) == nil {
		info.Link = Normalize(link, feedInfoMaxLength)
	}
	return info, nil
}

// FallbackFeedInfo 无法获取订阅内容时使用的元数据
func FallbackFeedInfo(feedURL string) model.FeedInfo {
	return model.FeedInfo{
		FeedURL: feedURL,
		Title:   Normalize(feedURL, feedInfoMaxLength),
		Link:    Normalize(strings.ReplaceAll(feedURL, "/feed", ""), feedInfoMaxLength),
	}
}

// coalesce 返回第一个非空字符串
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
