package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/wolfitem/rss-ingest/internal/domain/model"
)

func TestMetricsCollector(t *testing.T) {
	assert := assert.New(t)
	m := NewMetricsCollector()

	m.RecordFeed(100*time.Millisecond, "")
	m.RecordFeed(300*time.Millisecond, "")
	m.RecordFeed(200*time.Millisecond, "fetch_failure")
	m.RecordFeed(200*time.Millisecond, "parse_failure")
	m.RecordEntries(10, 1, 2)
	m.RecordEntries(5, 0, 0)
	m.RecordFlush(model.WriteReport{Saved: 12, Skipped: 1}, 40*time.Millisecond)
	m.RecordFlush(model.WriteReport{Saved: 0, Skipped: 0}, 20*time.Millisecond)

	report := m.GetReport()
	assert.Equal(int64(2), report.FeedStats.Succeeded)
	assert.Equal(int64(2), report.FeedStats.Failed)
	assert.InDelta(50.0, report.FeedStats.SuccessRate, 0.001)
	assert.Equal(int64(200), report.FeedStats.AverageLatency)
	assert.Equal(map[string]int64{"fetch_failure": 1, "parse_failure": 1}, report.FeedStats.FailureReasons)

	assert.Equal(EntryStats{Extracted: 15, Skipped: 1, Dropped: 2}, report.EntryStats)

	assert.Equal(int64(2), report.FlushStats.Flushes)
	assert.Equal(int64(12), report.FlushStats.Saved)
	assert.Equal(int64(1), report.FlushStats.Duplicates)
	assert.Equal(int64(30), report.FlushStats.AverageLatency)
}

func TestMetricsEmptyReport(t *testing.T) {
	report := NewMetricsCollector().GetReport()

	assert.Equal(t, 100.0, report.FeedStats.SuccessRate)
	assert.Equal(t, int64(0), report.FeedStats.AverageLatency)
	assert.Empty(t, report.FeedStats.FailureReasons)
}

func TestMetricsReportIsCopy(t *testing.T) {
	m := NewMetricsCollector()
	m.RecordFeed(time.Millisecond, "other")

	report := m.GetReport()
	report.FeedStats.FailureReasons["other"] = 99

	assert.Equal(t, int64(1), m.GetReport().FeedStats.FailureReasons["other"])
}

func TestSuccessRate(t *testing.T) {
	assert.Equal(t, 100.0, successRate(0, 0))
	assert.InDelta(t, 75.0, successRate(3, 4), 0.001)
}

func TestDurationWindowKeepsRecentSamples(t *testing.T) {
	w := newDurationWindow(3)
	assert.Equal(t, time.Duration(0), w.average())

	w.add(10 * time.Millisecond)
	w.add(20 * time.Millisecond)
	assert.Equal(t, 2, w.count())
	assert.Equal(t, 15*time.Millisecond, w.average())

	w.add(30 * time.Millisecond)
	w.add(90 * time.Millisecond)
	w.add(90 * time.Millisecond)
	assert.Equal(t, 3, w.count())
	assert.Equal(t, 70*time.Millisecond, w.average())
	assert.Len(t, w.samples, 3)
}

func TestFlushLatencyWindowIsBounded(t *testing.T) {
	m := NewMetricsCollector()
	for i := 0; i < latencyWindowSize+500; i++ {
		m.RecordFlush(model.WriteReport{Saved: 1}, time.Millisecond)
		m.RecordFeed(time.Millisecond, "")
	}

	assert.Equal(t, latencyWindowSize, m.flushDurations.count())
	assert.Len(t, m.flushDurations.samples, latencyWindowSize)
	assert.Len(t, m.fetchDurations.samples, latencyWindowSize)

	report := m.GetReport()
	assert.Equal(t, int64(latencyWindowSize+500), report.FlushStats.Flushes)
	assert.Equal(t, int64(1), report.FlushStats.AverageLatency)
}
