package service

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/wolfitem/rss-ingest/internal/domain/model"
)

// maxFeedListSize 订阅源列表文件的大小上限
const maxFeedListSize = 10 * 1024 * 1024

// Validator 提供输入验证功能
type Validator struct{}

// NewValidator 创建新的验证器实例
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateFilePath 验证订阅源列表文件
func (v *Validator) ValidateFilePath(filePath string) error {
	if strings.TrimSpace(filePath) == "" {
		return errors.New("文件路径不能为空")
	}

	cleanPath := filepath.Clean(filePath)

	switch strings.ToLower(filepath.Ext(cleanPath)) {
	case ".opml", ".xml", ".csv":
	default:
		return fmt.Errorf("只允许OPML或CSV文件格式: %s", cleanPath)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return fmt.Errorf("文件访问失败: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("路径指向目录而非文件: %s", cleanPath)
	}
	if info.Size() > maxFeedListSize {
		return fmt.Errorf("文件过大(>10MB): %s", cleanPath)
	}

	// 尝试打开文件以验证可读性
	file, err := os.Open(cleanPath)
	if err != nil {
		return fmt.Errorf("文件无法打开读取: %w", err)
	}
	file.Close()

	return nil
}

// ValidateURL 验证订阅源地址同时包含协议和主机
func (v *Validator) ValidateURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return fmt.Errorf("%w: 地址为空", model.ErrInvalidSource)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", model.ErrInvalidSource, rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %s 缺少协议或主机", model.ErrInvalidSource, rawURL)
	}

	return nil
}
