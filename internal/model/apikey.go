package model

import (
	"time"
)

// APIKey 用户的个人提供商密钥，调用时优先于全局共享密钥
type APIKey struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"not null;uniqueIndex:uk_user_key_provider" json:"user_id"`
	Provider  string    `gorm:"size:50;not null;uniqueIndex:uk_user_key_provider" json:"provider"`
	KeyValue  string    `gorm:"size:255;not null" json:"-"`
	Label     string    `gorm:"size:100" json:"label,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (APIKey) TableName() string {
	return "api_keys"
}
