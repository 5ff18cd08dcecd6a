package middleware

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimiter 限制对远端服务器的请求速率
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter 创建速率限制器，requestsPerSecond<=0时返回nil表示不限速
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	if requestsPerSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Wait 阻塞直到获得配额或ctx结束
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return nil
	}
	if err := rl.limiter.Wait(ctx); err != nil {
		return &RateLimitError{Limit: float64(rl.limiter.Limit()), Err: err}
	}
	return nil
}

// RateLimitError 等待配额失败
type RateLimitError struct {
	Limit float64
	Err   error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("等待请求配额失败(%.2f/s): %v", e.Limit, e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}
