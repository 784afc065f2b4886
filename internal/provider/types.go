package provider

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotConfigured 没有可用的 API Key（个人和全局都没配置）
var ErrNotConfigured = errors.New("未配置 API Key，该提供商不可用")

// VendorError 厂商侧返回的错误，消息透传给前端
type VendorError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *VendorError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s: 请求失败（HTTP %d）", e.Provider, e.StatusCode)
}

// ChatMessage 对话历史中的一条消息
type ChatMessage struct {
	Role    string `json:"role"` // user, assistant, system
	Content string `json:"content"`
}

// Request 归一化的调用入参：提示词 + 会话历史 + 已解析的密钥
type Request struct {
	Prompt      string
	History     []ChatMessage
	Attachments []string
	ModelName   string
	APIKey      string
}

// Result 归一化的调用结果：文本或媒体 URL 二选一
type Result struct {
	Content   string
	MediaURL  string
	ModelName string
}

// Client 所有 AI/媒体厂商客户端的统一抽象
type Client interface {
	// Name 提供商标识
	Name() string
	// Invoke 发起一次调用，超时与取消由 ctx 控制
	Invoke(ctx context.Context, req *Request) (*Result, error)
}
