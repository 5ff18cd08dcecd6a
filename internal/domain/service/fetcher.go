package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wolfitem/rss-ingest/internal/domain/model"
	"github.com/wolfitem/rss-ingest/internal/infrastructure/logger"
)

const (
	// DefaultUserAgent 部分服务器会拒绝非浏览器的请求
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	// AcceptHeader 声明可接受的订阅格式
	AcceptHeader = "application/rss+xml, application/xml, application/atom+xml, text/xml;q=0.9, */*;q=0.8"

	defaultFetchTimeout = 30 * time.Second
	defaultMaxBodyBytes = 10 * 1024 * 1024
)

// FeedFetcher 定义获取订阅源原始内容的接口
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) (model.RawFeedDocument, error)
}

// Limiter 在每次请求前等待配额
type Limiter interface {
	Wait(ctx context.Context) error
}

// HTTPFetcher 基于net/http实现FeedFetcher，不做重试
type HTTPFetcher struct {
	client       *http.Client
	timeout      time.Duration
	userAgent    string
	maxBodyBytes int64
	limiter      Limiter
	validator    *Validator
	log          *logger.ContextLogger
}

// NewHTTPFetcher 根据配置创建抓取器，limiter可以为nil
func NewHTTPFetcher(config model.FetchConfig, limiter Limiter) *HTTPFetcher {
	timeout := defaultFetchTimeout
	if config.Timeout > 0 {
		timeout = time.Duration(config.Timeout) * time.Second
	}
	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	maxBodyBytes := config.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: timeout,
				TLSHandshakeTimeout:   15 * time.Second,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		timeout:      timeout,
		userAgent:    userAgent,
		maxBodyBytes: maxBodyBytes,
		limiter:      limiter,
		validator:    NewValidator(),
		log:          logger.WithContext("fetcher"),
	}
}

// Fetch 发起一次GET请求获取订阅内容
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (model.RawFeedDocument, error) {
	if err := f.validator.ValidateURL(url); err != nil {
		return model.RawFeedDocument{}, err
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return model.RawFeedDocument{}, &model.FetchError{URL: url, Err: err}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.RawFeedDocument{}, fmt.Errorf("%w: %s: %v", model.ErrInvalidSource, url, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", AcceptHeader)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return model.RawFeedDocument{}, &model.FetchError{URL: url, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			f.log.Warn("关闭响应体失败", "url", url, "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.RawFeedDocument{}, &model.FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	// 多读一个字节用于判断是否超过上限
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return model.RawFeedDocument{}, &model.FetchError{URL: url, Err: err}
	}
	if int64(len(body)) > f.maxBodyBytes {
		return model.RawFeedDocument{}, &model.FetchError{
			URL: url,
			Err: fmt.Errorf("响应体过大，超过%d字节限制", f.maxBodyBytes),
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}

	f.log.Debug("订阅源抓取完成",
		"url", url,
		"status", resp.StatusCode,
		"content_type", contentType,
		"bytes", len(body),
		"duration_ms", time.Since(start).Milliseconds())

	return model.RawFeedDocument{Body: body, ContentType: contentType}, nil
}
