package model

import (
	"time"
)

// ProviderStat 按用户统计的提供商累计数据，UserID 为 0 表示全局汇总行
type ProviderStat struct {
	ID              int64      `gorm:"primaryKey" json:"id"`
	UserID          int64      `gorm:"not null;default:0;uniqueIndex:uk_user_provider" json:"user_id"`
	Provider        string     `gorm:"size:50;not null;uniqueIndex:uk_user_provider" json:"provider"`
	TotalResponses  int64      `gorm:"default:0" json:"total_responses"`
	TotalSelections int64      `gorm:"default:0" json:"total_selections"`
	ErrorCount      int64      `gorm:"default:0" json:"error_count"`
	LastUsedAt      *time.Time `json:"last_used_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (ProviderStat) TableName() string {
	return "provider_stats"
}
