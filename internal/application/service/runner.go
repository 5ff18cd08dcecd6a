package service

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfitem/rss-ingest/internal/domain/model"
	domain "github.com/wolfitem/rss-ingest/internal/domain/service"
	"github.com/wolfitem/rss-ingest/internal/infrastructure/database"
	"github.com/wolfitem/rss-ingest/internal/infrastructure/logger"
	"github.com/wolfitem/rss-ingest/internal/middleware"
)

// memStatsInterval 运行期间记录内存使用的间隔
const memStatsInterval = time.Minute

// Runner 根据参数装配并执行一次运行，数据库连接在运行结束时关闭
type Runner struct {
	params model.IngestParams
}

// NewRunner 创建运行器
func NewRunner(params model.IngestParams) *Runner {
	return &Runner{params: params}
}

// Ingest 加载订阅源列表、打开数据库并执行采集
func (r *Runner) Ingest(ctx context.Context) (model.RunSummary, error) {
	logger.Info("=== 开始RSS采集 ===", "feeds_file", r.params.FeedsFile)
	monitor := logger.NewMemStatsMonitor(memStatsInterval)
	monitor.Start()
	defer monitor.Stop()

	feeds, err := domain.NewFeedSource().LoadFeeds(r.params.FeedsFile)
	if err != nil {
		return model.RunSummary{}, fmt.Errorf("加载订阅源列表失败: %w", err)
	}

	db, err := r.openDatabase()
	if err != nil {
		return model.RunSummary{}, err
	}
	defer db.Close()

	repo := database.NewSQLiteEntryRepository(db)
	svc := NewIngestService(
		r.newFetcher(),
		domain.NewFeedExtractor(r.fieldLimits(), r.params.IngestConfig.StripHTML),
		NewDedupWriter(repo),
		r.params.IngestConfig.BatchSize,
		r.params.FetchConfig.Concurrency,
		middleware.NewMetricsCollector(),
	)
	summary, err := svc.Run(ctx, feeds)

	if total, countErr := repo.CountEntries(context.WithoutCancel(ctx)); countErr == nil {
		logger.Info("存储中的条目总数", "entries_total", total)
	}
	return summary, err
}

// ImportFeeds 抓取订阅源元数据并写入feeds表
func (r *Runner) ImportFeeds(ctx context.Context) (int, error) {
	feeds, err := domain.NewFeedSource().LoadFeeds(r.params.FeedsFile)
	if err != nil {
		return 0, fmt.Errorf("加载订阅源列表失败: %w", err)
	}

	db, err := r.openDatabase()
	if err != nil {
		return 0, err
	}
	defer db.Close()

	repo := database.NewSQLiteFeedRepository(db)
	importer := NewFeedImportService(
		r.newFetcher(),
		domain.NewFeedExtractor(r.fieldLimits(), false),
		repo,
	)
	imported, err := importer.Import(ctx, feeds)
	if err != nil {
		return imported, err
	}

	stored, err := repo.ListFeeds(ctx)
	if err != nil {
		return imported, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	logger.Info("feeds表中的订阅源", "feeds_total", len(stored))
	return imported, nil
}

// LookupEntry 按链接查询已存储的条目，不存在时返回nil
func (r *Runner) LookupEntry(ctx context.Context, link string) (*model.Entry, error) {
	db, err := r.openDatabase()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	entry, err := database.NewSQLiteEntryRepository(db).GetEntryByLink(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	return entry, nil
}

func (r *Runner) openDatabase() (*database.SQLiteDatabase, error) {
	db := database.NewSQLiteDatabase(r.params.DatabaseConfig.FilePath)
	if err := db.Init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: 初始化数据库失败: %v", model.ErrStorageUnavailable, err)
	}
	return db, nil
}

func (r *Runner) newFetcher() *domain.HTTPFetcher {
	limiter := middleware.NewRateLimiter(r.params.FetchConfig.RequestsPerSecond, r.params.FetchConfig.Concurrency)
	if limiter == nil {
		return domain.NewHTTPFetcher(r.params.FetchConfig, nil)
	}
	return domain.NewHTTPFetcher(r.params.FetchConfig, limiter)
}

func (r *Runner) fieldLimits() domain.FieldLimits {
	return domain.FieldLimits{
		Default: r.params.IngestConfig.MaxFieldLength,
		Title:   r.params.IngestConfig.TitleMaxLength,
	}
}
