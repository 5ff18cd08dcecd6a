package model

import "time"

// IngestParams 包含一次采集运行的所有参数
type IngestParams struct {
	FeedsFile      string         // 订阅源列表文件路径（OPML或CSV）
	IngestConfig   IngestConfig   // 批处理配置
	FetchConfig    FetchConfig    // 抓取配置
	DatabaseConfig DatabaseConfig // 数据库配置
}

// IngestConfig 包含批处理与字段截断的配置
type IngestConfig struct {
	BatchSize      int  // 达到该条目数时触发一次写入
	MaxFieldLength int  // 文本字段的默认最大长度
	TitleMaxLength int  // 标题最大长度，0表示使用默认值
	StripHTML      bool // 是否将摘要中的HTML转为纯文本
}

// FetchConfig 包含抓取RSS源的配置
type FetchConfig struct {
	Timeout           int     // 单次请求超时时间（秒）
	Concurrency       int     // 并发抓取数量
	UserAgent         string  // 请求使用的User-Agent
	MaxBodyBytes      int64   // 响应体大小上限
	RequestsPerSecond float64 // 每秒请求数上限，0表示不限制
}

// DatabaseConfig 包含数据库的配置信息
type DatabaseConfig struct {
	FilePath string // 数据库文件路径
}

// Feed 表示一个订阅源，ID在一次运行内保持稳定
type Feed struct {
	ID    int    // 订阅源在列表中的序号，从1开始
	URL   string // 订阅源地址
	Title string // 订阅源标题（可选）
}

// RawFeedDocument 抓取到的原始订阅内容，解析后即丢弃
type RawFeedDocument struct {
	Body        []byte
	ContentType string
}

// Entry 表示一条规范化后的文章记录，是存储的基本单位
type Entry struct {
	FeedID    int
	Title     string
	Link      string     // 去重键
	Published *time.Time // 无可解析日期时为nil
	Author    string
	EntryID   string
	Summary   string
}

// FeedInfo 订阅源的元数据
type FeedInfo struct {
	FeedURL string
	Title   string
	Link    string
}

// WriteReport 一次写入的结果统计
type WriteReport struct {
	Saved   int
	Skipped int
}

// RunSummary 一次采集运行的汇总
type RunSummary struct {
	FeedsProcessed int  // 已完成抓取/解析阶段的订阅源数量
	FeedsFailed    int  // 抓取或解析失败的订阅源数量
	EntriesSaved   int  // 新写入的条目数量
	EntriesSkipped int  // 因重复被跳过的条目数量
	EntriesDropped int  // 因缺少链接被丢弃的条目数量
	Flushes        int  // 写入批次数
	Partial        bool // 运行被中止时为true
}
