package service

import (
	"sync"

	"github.com/wolfitem/rss-ingest/internal/domain/model"
)

// DefaultBatchSize 默认的批量写入阈值
const DefaultBatchSize = 1000

// Accumulator 跨订阅源收集条目，达到阈值后整体取出
type Accumulator struct {
	mu        sync.Mutex
	threshold int
	entries   []model.Entry
}

// NewAccumulator 创建累加器，threshold<=0时使用默认值
func NewAccumulator(threshold int) *Accumulator {
	if threshold <= 0 {
		threshold = DefaultBatchSize
	}
	return &Accumulator{threshold: threshold}
}

// Add 追加一个订阅源的全部条目
func (a *Accumulator) Add(entries []model.Entry) {
	if len(entries) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entries...)
}

// ShouldFlush 缓冲条目数达到阈值时返回true
func (a *Accumulator) ShouldFlush() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries) >= a.threshold
}

// Len 当前缓冲的条目数
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// Drain 取出全部缓冲条目并清空
func (a *Accumulator) Drain() []model.Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	batch := a.entries
	a.entries = nil
	return batch
}

// Threshold 返回写入阈值
func (a *Accumulator) Threshold() int {
	return a.threshold
}
