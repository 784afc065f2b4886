package provider

import (
	"github.com/qs3c/chathub_go_server/config"
)

// Registry 按配置构建的提供商客户端注册表
type Registry struct {
	clients map[string]Client
	configs map[string]config.ProviderConfig
}

// NewRegistry 根据配置实例化客户端。
// openai / deepseek / openrouter 共用 OpenAI 兼容协议，gemini 和图片生成单独实现
func NewRegistry(cfgs []config.ProviderConfig) *Registry {
	r := &Registry{
		clients: make(map[string]Client),
		configs: make(map[string]config.ProviderConfig),
	}

	for _, cfg := range cfgs {
		var client Client
		switch {
		case cfg.Kind == "image":
			client = NewImageRouterClient(cfg.Name, cfg.BaseURL, cfg.DefaultModel)
		case cfg.Name == "gemini":
			client = NewGeminiClient(cfg.Name, cfg.BaseURL, cfg.DefaultModel)
		default:
			client = NewOpenAIClient(cfg.Name, cfg.BaseURL, cfg.DefaultModel)
		}
		r.clients[cfg.Name] = client
		r.configs[cfg.Name] = cfg
	}

	return r
}

// Get 按名称取客户端
func (r *Registry) Get(name string) (Client, bool) {
	client, ok := r.clients[name]
	return client, ok
}

// Config 按名称取提供商配置
func (r *Registry) Config(name string) (config.ProviderConfig, bool) {
	cfg, ok := r.configs[name]
	return cfg, ok
}

// Names 已注册的提供商名称
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	return names
}
