package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// StringArray 用于 JSON 数组字段
type StringArray []string

func (s StringArray) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return json.Marshal(s)
}

func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = []string{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, s)
}

type Conversation struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	Title     string    `gorm:"size:200" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// 对话轮次状态
const (
	TurnCollecting = "collecting" // 仍有提供商未返回
	TurnComplete   = "complete"   // 全部返回（成功或失败）
	TurnResolved   = "resolved"   // 用户已选出最佳回答
	TurnCancelled  = "cancelled"  // 被取消（新提问覆盖或主动取消）
)

// turnTransitions 轮次状态机，状态只能前进不能回退
var turnTransitions = map[string][]string{
	TurnCollecting: {TurnComplete, TurnCancelled},
	TurnComplete:   {TurnResolved},
	TurnResolved:   {},
	TurnCancelled:  {},
}

// CanTransitionTurn 校验轮次状态迁移是否合法
func CanTransitionTurn(from, to string) bool {
	for _, next := range turnTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type ConversationTurn struct {
	ID               int64              `gorm:"primaryKey" json:"id"`
	ConversationID   int64              `gorm:"not null;index" json:"conversation_id"`
	UserID           int64              `gorm:"not null;index" json:"user_id"`
	Prompt           string             `gorm:"type:text;not null" json:"prompt"`
	Attachments      StringArray        `gorm:"type:json" json:"attachments,omitempty"` // 附件 OSS URL 列表
	Status           string             `gorm:"size:20;default:collecting;index" json:"status"`
	SelectedProvider *string            `gorm:"size:50" json:"selected_provider,omitempty"`
	Responses        []ProviderResponse `gorm:"foreignKey:TurnID" json:"responses,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

func (ConversationTurn) TableName() string {
	return "conversation_turns"
}

// 提供商响应状态，pending 只会迁移到 success 或 error 一次
const (
	ResponsePending = "pending"
	ResponseSuccess = "success"
	ResponseError   = "error"
)

type ProviderResponse struct {
	ID           int64      `gorm:"primaryKey" json:"id"`
	TurnID       int64      `gorm:"not null;uniqueIndex:uk_turn_provider" json:"turn_id"`
	Provider     string     `gorm:"size:50;not null;uniqueIndex:uk_turn_provider" json:"provider"`
	ModelName    string     `gorm:"size:100" json:"model_name,omitempty"`
	Content      string     `gorm:"type:text" json:"content,omitempty"`
	MediaURL     string     `gorm:"size:500" json:"media_url,omitempty"`
	Status       string     `gorm:"size:20;default:pending" json:"status"`
	ErrorMessage string     `gorm:"size:500" json:"error_message,omitempty"`
	Selected     bool       `gorm:"default:false" json:"selected"`
	LatencyMs    int64      `json:"latency_ms,omitempty"`
	SettledAt    *time.Time `json:"settled_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (ProviderResponse) TableName() string {
	return "provider_responses"
}
