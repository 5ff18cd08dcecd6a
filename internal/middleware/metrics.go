package middleware

import (
	"fmt"
	"sync"
	"time"

	"github.com/wolfitem/rss-ingest/internal/domain/model"
	"github.com/wolfitem/rss-ingest/internal/infrastructure/logger"
)

// MetricsCollector 收集一次采集运行的指标
type MetricsCollector struct {
	mu sync.RWMutex

	startTime time.Time

	// 订阅源统计
	feedsOK        int64
	feedsFailed    int64
	fetchDurations *durationWindow
	failures       map[string]int64

	// 条目统计
	extracted int64
	skipped   int64
	dropped   int64

	// 写入统计
	flushes        int64
	saved          int64
	duplicates     int64
	flushDurations *durationWindow
}

// NewMetricsCollector 创建新的指标收集器
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		startTime:      time.Now(),
		fetchDurations: newDurationWindow(latencyWindowSize),
		flushDurations: newDurationWindow(latencyWindowSize),
		failures:       make(map[string]int64),
	}
}

// RecordFeed 记录一个订阅源的抓取与解析结果，reason为空表示成功
func (m *MetricsCollector) RecordFeed(duration time.Duration, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if reason == "" {
		m.feedsOK++
	} else {
		m.feedsFailed++
		m.failures[reason]++
	}

	m.fetchDurations.add(duration)
}

// RecordEntries 记录提取、跳过和丢弃的条目数
func (m *MetricsCollector) RecordEntries(extracted, skipped, dropped int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.extracted += int64(extracted)
	m.skipped += int64(skipped)
	m.dropped += int64(dropped)
}

// RecordFlush 记录一次批量写入
func (m *MetricsCollector) RecordFlush(report model.WriteReport, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.flushes++
	m.saved += int64(report.Saved)
	m.duplicates += int64(report.Skipped)
	m.flushDurations.add(duration)
}

// GetReport 获取指标报告
func (m *MetricsCollector) GetReport() Report {
	m.mu.RLock()
	defer m.mu.RUnlock()

	failures := make(map[string]int64, len(m.failures))
	for k, v := range m.failures {
		failures[k] = v
	}

	return Report{
		StartTime: m.startTime,
		Uptime:    time.Since(m.startTime),
		FeedStats: FeedStats{
			Succeeded:      m.feedsOK,
			Failed:         m.feedsFailed,
			SuccessRate:    successRate(m.feedsOK, m.feedsOK+m.feedsFailed),
			AverageLatency: m.fetchDurations.average().Milliseconds(),
			FailureReasons: failures,
		},
		EntryStats: EntryStats{
			Extracted: m.extracted,
			Skipped:   m.skipped,
			Dropped:   m.dropped,
		},
		FlushStats: FlushStats{
			Flushes:        m.flushes,
			Saved:          m.saved,
			Duplicates:     m.duplicates,
			AverageLatency: m.flushDurations.average().Milliseconds(),
		},
	}
}

// latencyWindowSize 计算平均延迟时保留的最近样本数
const latencyWindowSize = 1000

// durationWindow 固定容量的环形缓冲区，只保留最近的样本
type durationWindow struct {
	samples []time.Duration
	next    int
	full    bool
}

func newDurationWindow(size int) *durationWindow {
	return &durationWindow{samples: make([]time.Duration, size)}
}

func (w *durationWindow) add(d time.Duration) {
	w.samples[w.next] = d
	w.next++
	if w.next == len(w.samples) {
		w.next = 0
		w.full = true
	}
}

func (w *durationWindow) count() int {
	if w.full {
		return len(w.samples)
	}
	return w.next
}

func (w *durationWindow) average() time.Duration {
	n := w.count()
	if n == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range w.samples[:n] {
		total += d
	}
	return total / time.Duration(n)
}

func successRate(part, total int64) float64 {
	if total == 0 {
		return 100.0
	}
	return float64(part) / float64(total) * 100
}

// Report 运行指标报告
type Report struct {
	StartTime  time.Time
	Uptime     time.Duration
	FeedStats  FeedStats
	EntryStats EntryStats
	FlushStats FlushStats
}

// FeedStats 订阅源统计
type FeedStats struct {
	Succeeded      int64
	Failed         int64
	SuccessRate    float64
	AverageLatency int64
	FailureReasons map[string]int64
}

// EntryStats 条目统计
type EntryStats struct {
	Extracted int64
	Skipped   int64
	Dropped   int64
}

// FlushStats 写入统计
type FlushStats struct {
	Flushes        int64
	Saved          int64
	Duplicates     int64
	AverageLatency int64
}

// LogMetrics 记录指标到日志
func LogMetrics(metrics *MetricsCollector) {
	report := metrics.GetReport()
	logger.Info("采集运行指标",
		"start_time", report.StartTime,
		"uptime", report.Uptime,
		"feeds_succeeded", report.FeedStats.Succeeded,
		"feeds_failed", report.FeedStats.Failed,
		"feed_success_rate", fmt.Sprintf("%.2f%%", report.FeedStats.SuccessRate),
		"fetch_avg_latency", fmt.Sprintf("%dms", report.FeedStats.AverageLatency),
		"failure_reasons", report.FeedStats.FailureReasons,
		"entries_extracted", report.EntryStats.Extracted,
		"entries_skipped", report.EntryStats.Skipped,
		"entries_dropped", report.EntryStats.Dropped,
		"flushes", report.FlushStats.Flushes,
		"entries_saved", report.FlushStats.Saved,
		"entries_duplicate", report.FlushStats.Duplicates,
		"flush_avg_latency", fmt.Sprintf("%dms", report.FlushStats.AverageLatency),
	)
}
