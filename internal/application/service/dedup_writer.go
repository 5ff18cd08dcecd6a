package service

import (
	"context"
	"fmt"

	"github.com/wolfitem/rss-ingest/internal/domain/model"
	"github.com/wolfitem/rss-ingest/internal/infrastructure/logger"
)

// EntryStore 去重写入依赖的存储能力
type EntryStore interface {
	ExistingLinks(ctx context.Context) (map[string]struct{}, error)
	InsertEntries(ctx context.Context, entries []model.Entry) (int, error)
}

// BatchWriter 定义批量持久化接口
type BatchWriter interface {
	Persist(ctx context.Context, batch []model.Entry) (model.WriteReport, error)
}

// DedupWriter 将批次与已存储的链接比对，只写入新条目
type DedupWriter struct {
	store EntryStore
}

// NewDedupWriter 创建去重写入器
func NewDedupWriter(store EntryStore) *DedupWriter {
	return &DedupWriter{store: store}
}

// Persist 去重并写入一个批次
// 批次内重复的链接只保留最后一条，被合并的条目不计入Skipped
// 读取或写入失败返回ErrStorageUnavailable；唯一约束冲突计为跳过
func (w *DedupWriter) Persist(ctx context.Context, batch []model.Entry) (model.WriteReport, error) {
	var report model.WriteReport
	if len(batch) == 0 {
		return report, nil
	}

	collapsed := CollapseByLink(batch)

	existing, err := w.store.ExistingLinks(ctx)
	if err != nil {
		logger.Error("读取已存在链接失败", "error", err)
		return report, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}

	fresh := make([]model.Entry, 0, len(collapsed))
	for _, e := range collapsed {
		if _, ok := existing[e.Link]; ok {
			continue
		}
		fresh = append(fresh, e)
	}

	if len(fresh) > 0 {
		saved, err := w.store.InsertEntries(ctx, fresh)
		if err != nil {
			logger.Error("批量写入条目失败", "entries_count", len(fresh), "error", err)
			return report, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
		}
		report.Saved = saved
		if conflicts := len(fresh) - saved; conflicts > 0 {
			logger.Warn("部分条目与并发写入冲突，按重复处理",
				"conflicts", conflicts,
				"reason", model.ErrConstraintViolation)
		}
	}
	report.Skipped = len(collapsed) - report.Saved

	logger.Info("批次写入完成",
		"batch_size", len(batch),
		"unique_links", len(collapsed),
		"saved", report.Saved,
		"skipped", report.Skipped)
	return report, nil
}

// CollapseByLink 按链接去重，保留最后出现的条目并位于其最后出现的位置
func CollapseByLink(batch []model.Entry) []model.Entry {
	last := make(map[string]int, len(batch))
	for i, e := range batch {
		last[e.Link] = i
	}

	collapsed := make([]model.Entry, 0, len(last))
	for i, e := range batch {
		if last[e.Link] == i {
			collapsed = append(collapsed, e)
		}
	}
	return collapsed
}
