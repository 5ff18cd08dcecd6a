package model

import "time"

// DateField 原始日期字段，Parsed为解析器已给出的结果
type DateField struct {
	Raw    string
	Parsed *time.Time
}

// IsZero 字段是否完全缺失
func (d DateField) IsZero() bool {
	return d.Raw == "" && d.Parsed == nil
}

// RawEntry 解析器输出的单条原始条目，空字符串表示字段缺失
type RawEntry struct {
	Title       string
	Link        string
	Summary     string // 主摘要字段
	Description string // 备用描述字段
	Author      string
	ID          string
	Published   DateField
	Updated     DateField
	Created     DateField
}

// SkippedEntry 记录被跳过的单条条目及原因
type SkippedEntry struct {
	Index  int
	Reason string
}

// ExtractResult 单个订阅文档的提取结果
type ExtractResult struct {
	Entries []Entry
	Skipped []SkippedEntry
}
