package dto

// CreateConversationRequest 创建会话请求
type CreateConversationRequest struct {
	Title string `json:"title" binding:"omitempty,max=200"`
}

// CreateTurnRequest 发起一轮提问请求
type CreateTurnRequest struct {
	Prompt      string   `json:"prompt" binding:"required,max=20000"`
	Providers   []string `json:"providers" binding:"required,min=1,dive,max=50"`
	Attachments []string `json:"attachments,omitempty" binding:"omitempty,max=4,dive,url"`
}

// CreateTurnResponse 发起提问响应
type CreateTurnResponse struct {
	TurnID    int64    `json:"turn_id"`
	Providers []string `json:"providers"` // 实际派发的提供商（已按套餐截断）
}

// SelectResponseRequest 选择最佳回答请求
type SelectResponseRequest struct {
	Provider string `json:"provider" binding:"required,max=50"`
}

// ProviderResponseItem 单个提供商响应
type ProviderResponseItem struct {
	Provider     string `json:"provider"`
	ModelName    string `json:"model_name,omitempty"`
	Content      string `json:"content,omitempty"`
	MediaURL     string `json:"media_url,omitempty"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	Selected     bool   `json:"selected"`
	LatencyMs    int64  `json:"latency_ms,omitempty"`
	SettledAt    string `json:"settled_at,omitempty"`
}

// TurnDetail 轮次详情
type TurnDetail struct {
	ID               int64                  `json:"id"`
	ConversationID   int64                  `json:"conversation_id"`
	Prompt           string                 `json:"prompt"`
	Attachments      []string               `json:"attachments,omitempty"`
	Status           string                 `json:"status"`
	SelectedProvider string                 `json:"selected_provider,omitempty"`
	Responses        []ProviderResponseItem `json:"responses"`
	CreatedAt        string                 `json:"created_at"`
}

// ConversationListItem 会话列表项
type ConversationListItem struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	TurnCount int64  `json:"turn_count"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// ConversationDetail 会话详情（含全部轮次）
type ConversationDetail struct {
	ID        int64        `json:"id"`
	Title     string       `json:"title"`
	Turns     []TurnDetail `json:"turns"`
	CreatedAt string       `json:"created_at"`
}
