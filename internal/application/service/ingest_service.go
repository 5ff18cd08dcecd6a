package service

import (
	"context"
	"errors"
	"time"

	"github.com/wolfitem/rss-ingest/internal/domain/model"
	domain "github.com/wolfitem/rss-ingest/internal/domain/service"
	"github.com/wolfitem/rss-ingest/internal/infrastructure/logger"
	"github.com/wolfitem/rss-ingest/internal/middleware"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// defaultConcurrency 默认并发抓取数量
const defaultConcurrency = 4

// IngestService 驱动订阅源的抓取、提取、累积与写入
type IngestService struct {
	fetcher     domain.FeedFetcher
	extractor   domain.EntryExtractor
	writer      BatchWriter
	batchSize   int
	concurrency int
	metrics     *middleware.MetricsCollector
}

// NewIngestService 创建采集服务，metrics可以为nil
func NewIngestService(
	fetcher domain.FeedFetcher,
	extractor domain.EntryExtractor,
	writer BatchWriter,
	batchSize, concurrency int,
	metrics *middleware.MetricsCollector,
) *IngestService {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if metrics == nil {
		metrics = middleware.NewMetricsCollector()
	}
	return &IngestService{
		fetcher:     fetcher,
		extractor:   extractor,
		writer:      writer,
		batchSize:   batchSize,
		concurrency: concurrency,
		metrics:     metrics,
	}
}

// feedResult 单个订阅源抓取与提取的结果
type feedResult struct {
	feed       model.Feed
	entries    []model.Entry
	skipped    int
	err        error
	duration   time.Duration
	notStarted bool // 运行被取消，订阅源未开始处理
}

// Run 处理全部订阅源并返回汇总
// 抓取与提取并发进行，结果按订阅源顺序串行累积和写入，写入永不并发
// 只有存储错误和取消会返回error，此时汇总为部分结果
func (s *IngestService) Run(ctx context.Context, feeds []model.Feed) (model.RunSummary, error) {
	var summary model.RunSummary

	if len(feeds) == 0 {
		logger.Warn("没有订阅源，跳过采集")
		return summary, nil
	}

	acc := domain.NewAccumulator(s.batchSize)
	logger.Info("开始采集订阅源", "feeds_count", len(feeds), "batch_size", acc.Threshold(), "concurrency", s.concurrency)
	defer logger.TimeTrack("IngestRun")()
	defer middleware.LogMetrics(s.metrics)

	workCtx, stopWork := context.WithCancel(ctx)
	var g errgroup.Group
	defer func() {
		stopWork()
		_ = g.Wait()
	}()

	// 每个订阅源一个带缓冲的结果通道，消费端按顺序读取
	results := make([]chan feedResult, len(feeds))
	for i := range results {
		results[i] = make(chan feedResult, 1)
	}

	// 信号量在消费端读取结果后释放，限制已完成但未消费的结果数量
	sem := semaphore.NewWeighted(int64(s.concurrency))

	g.Go(func() error {
		for i, feed := range feeds {
			if err := sem.Acquire(workCtx, 1); err != nil {
				for j := i; j < len(feeds); j++ {
					results[j] <- feedResult{feed: feeds[j], notStarted: true}
				}
				return nil
			}
			i, feed := i, feed
			g.Go(func() error {
				results[i] <- s.processFeed(workCtx, feed)
				return nil
			})
		}
		return nil
	})

	// 写入使用不随ctx取消的上下文，已开始的批次总能完成
	flushCtx := context.WithoutCancel(ctx)
	flush := func() error {
		batch := acc.Drain()
		if len(batch) == 0 {
			return nil
		}
		start := time.Now()
		report, err := s.writer.Persist(flushCtx, batch)
		if err != nil {
			return err
		}
		summary.Flushes++
		summary.EntriesSaved += report.Saved
		summary.EntriesSkipped += report.Skipped
		s.metrics.RecordFlush(report, time.Since(start))
		logger.LogMemStatsOnce()
		return nil
	}

	for i := range feeds {
		res := <-results[i]
		if res.notStarted {
			continue
		}
		sem.Release(1)

		if res.err != nil && ctx.Err() != nil && errors.Is(res.err, ctx.Err()) {
			// 被取消的订阅源不计入已处理
			continue
		}

		summary.FeedsProcessed++
		if res.err != nil {
			summary.FeedsFailed++
			s.metrics.RecordFeed(res.duration, failureReason(res.err))
			logFeedError(res)
			continue
		}
		s.metrics.RecordFeed(res.duration, "")

		entries, dropped := dropEmptyLinks(res.entries)
		summary.EntriesDropped += dropped
		s.metrics.RecordEntries(len(res.entries), res.skipped, dropped)
		if dropped > 0 {
			logger.Warn("丢弃缺少链接的条目", "feed_id", res.feed.ID, "dropped", dropped)
		}

		acc.Add(entries)
		logger.Info("订阅源处理完成",
			"feed_id", res.feed.ID,
			"url", res.feed.URL,
			"entries", len(entries),
			"buffered", acc.Len())

		// 每个订阅源处理完后检查，单个订阅源的条目不会被拆分到两个批次
		if acc.ShouldFlush() {
			if err := flush(); err != nil {
				summary.Partial = true
				logger.Error("写入批次失败，中止采集", "error", err)
				return summary, err
			}
		}
	}

	if err := flush(); err != nil {
		summary.Partial = true
		logger.Error("写入剩余条目失败", "error", err)
		return summary, err
	}

	if err := ctx.Err(); err != nil {
		summary.Partial = true
		logger.Warn("采集被取消", "feeds_processed", summary.FeedsProcessed, "feeds_total", len(feeds))
		return summary, err
	}

	logger.Info("采集完成",
		"feeds_processed", summary.FeedsProcessed,
		"feeds_failed", summary.FeedsFailed,
		"entries_saved", summary.EntriesSaved,
		"entries_skipped", summary.EntriesSkipped,
		"entries_dropped", summary.EntriesDropped,
		"flushes", summary.Flushes)
	return summary, nil
}

// processFeed 抓取并提取单个订阅源，不修改任何共享状态
func (s *IngestService) processFeed(ctx context.Context, feed model.Feed) feedResult {
	start := time.Now()
	res := feedResult{feed: feed}

	logger.Debug("开始抓取订阅源", "feed_id", feed.ID, "url", feed.URL)
	doc, err := s.fetcher.Fetch(ctx, feed.URL)
	if err != nil {
		res.err = err
		res.duration = time.Since(start)
		return res
	}

	extracted, err := s.extractor.Extract(doc.Body, feed.ID)
	res.duration = time.Since(start)
	if err != nil {
		res.err = err
		return res
	}
	res.entries = extracted.Entries
	res.skipped = len(extracted.Skipped)
	return res
}

// dropEmptyLinks 去掉没有链接的条目，链接是去重键
func dropEmptyLinks(entries []model.Entry) ([]model.Entry, int) {
	kept := make([]model.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Link == "" {
			continue
		}
		kept = append(kept, e)
	}
	return kept, len(entries) - len(kept)
}

// failureReason 将订阅源错误归类
func failureReason(err error) string {
	switch {
	case errors.Is(err, model.ErrInvalidSource):
		return "invalid_source"
	case errors.Is(err, model.ErrFetchFailure):
		return "fetch_failure"
	case errors.Is(err, model.ErrParseFailure):
		return "parse_failure"
	default:
		return "other"
	}
}

func logFeedError(res feedResult) {
	kv := []interface{}{"feed_id", res.feed.ID, "url", res.feed.URL, "error", res.err}
	if errors.Is(res.err, model.ErrParseFailure) {
		logger.Warn("订阅源没有可用条目，跳过", kv...)
		return
	}
	logger.Error("订阅源处理失败，跳过", kv...)
}
