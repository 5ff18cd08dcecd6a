package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSource 订阅源地址格式错误
	ErrInvalidSource = errors.New("无效的订阅源地址")
	// ErrFetchFailure 网络错误、超时或非2xx响应
	ErrFetchFailure = errors.New("抓取订阅源失败")
	// ErrParseFailure 内容无法解析为订阅数据或没有条目
	ErrParseFailure = errors.New("解析订阅源失败")
	// ErrEntryFailure 单条条目无法规范化
	ErrEntryFailure = errors.New("处理条目失败")
	// ErrStorageUnavailable 存储不可用，运行必须中止
	ErrStorageUnavailable = errors.New("存储不可用")
	// ErrConstraintViolation 写入违反唯一约束，按重复处理
	ErrConstraintViolation = errors.New("违反唯一约束")
)

// FetchError 抓取失败的详细信息
type FetchError struct {
	URL        string
	StatusCode int   // 非2xx响应时的状态码
	Err        error // 网络或超时错误
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%v: %s 返回状态码 %d", ErrFetchFailure, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%v: %s: %v", ErrFetchFailure, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is 使errors.Is(err, ErrFetchFailure)对所有FetchError成立
func (e *FetchError) Is(target error) bool {
	return target == ErrFetchFailure
}
