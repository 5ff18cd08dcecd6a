package service

import (
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/wolfitem/rss-ingest/internal/infrastructure/logger"
)

// DefaultMaxFieldLength 文本字段默认的最大长度（字符数）
const DefaultMaxFieldLength = 65535

// FieldLimits 各字段的最大长度，0表示使用默认值
type FieldLimits struct {
	Default int
	Title   int
	Link    int
	Author  int
	EntryID int
	Summary int
}

// limit 返回字段的有效上限
func (l FieldLimits) limit(v int) int {
	if v > 0 {
		return v
	}
	if l.Default > 0 {
		return l.Default
	}
	return DefaultMaxFieldLength
}

// Normalize 将任意值转换为字符串并截断到maxLength个字符
// nil返回空字符串，非字符串值使用其文本表示
func Normalize(value any, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultMaxFieldLength
	}

	var s string
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		s = v
	case *string:
		if v == nil {
			return ""
		}
		s = *v
	case []byte:
		s = string(v)
	case fmt.Stringer:
		if isNilPointer(value) {
			return ""
		}
		s = v.String()
	default:
		if isNilPointer(value) {
			return ""
		}
		s = fmt.Sprint(v)
	}

	return truncate(s, maxLength)
}

// truncate 按字符截断，不拆分UTF-8编码
func truncate(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}
	count := 0
	for i := range s {
		if count == maxLength {
			return s[:i]
		}
		count++
	}
	return s
}

func isNilPointer(value any) bool {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// CleanMarkup 去除CDATA标记及首尾空白
func CleanMarkup(s string) string {
	s = strings.ReplaceAll(s, "<![CDATA[", "")
	s = strings.ReplaceAll(s, "]]>", "")
	return strings.TrimSpace(s)
}

// StripHTML 去除HTML标签，只保留纯文本
func StripHTML(html string) string {
	if html == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		logger.Warn("解析HTML失败，返回原始内容", "error", err)
		return html
	}

	// 将连续的空白字符替换为单个空格
	return strings.Join(strings.Fields(doc.Text()), " ")
}
