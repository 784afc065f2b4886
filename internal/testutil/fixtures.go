package testutil

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/chathub_go_server/internal/model"
)

// TestUser 创建测试用户，默认免费档、本月未用量
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	now := time.Now()
	email := fmt.Sprintf("test_%d@example.com", time.Now().UnixNano())
	passwordHash := "$2a$10$abcdefghijklmnopqrstuvwxyz123456" // bcrypt hash placeholder
	user := &model.User{
		Username:          fmt.Sprintf("testuser_%d", time.Now().UnixNano()%1000000),
		Email:             &email,
		PasswordHash:      &passwordHash,
		Role:              model.RoleMember,
		SubscriptionLevel: "free",
		MonthlyQuota:      50,
		QuotaUsedMonth:    0,
		QuotaResetAt:      &now,
		EmailVerified:     true,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithUsername 设置用户名
func WithUsername(username string) func(*model.User) {
	return func(u *model.User) {
		u.Username = username
	}
}

// WithSubscription 设置套餐和月额度
func WithSubscription(level string, quota int) func(*model.User) {
	return func(u *model.User) {
		u.SubscriptionLevel = level
		u.MonthlyQuota = quota
	}
}

// WithQuotaUsed 设置本月已用量
func WithQuotaUsed(used int) func(*model.User) {
	return func(u *model.User) {
		u.QuotaUsedMonth = used
	}
}

// WithQuotaResetAt 设置上次额度重置时间
func WithQuotaResetAt(at time.Time) func(*model.User) {
	return func(u *model.User) {
		u.QuotaResetAt = &at
	}
}

// WithRole 设置角色
func WithRole(role string) func(*model.User) {
	return func(u *model.User) {
		u.Role = role
	}
}

// TestConversation 创建测试会话
func TestConversation(t *testing.T, db *gorm.DB, userID int64) *model.Conversation {
	t.Helper()

	conv := &model.Conversation{
		UserID: userID,
		Title:  fmt.Sprintf("Test Conversation %d", time.Now().UnixNano()%10000),
	}
	if err := db.Create(conv).Error; err != nil {
		t.Fatalf("Failed to create test conversation: %v", err)
	}
	return conv
}

// TestTurn 创建测试轮次，并为每个提供商建一条 pending 响应
func TestTurn(t *testing.T, db *gorm.DB, userID, conversationID int64, providers []string, opts ...func(*model.ConversationTurn)) *model.ConversationTurn {
	t.Helper()

	turn := &model.ConversationTurn{
		ConversationID: conversationID,
		UserID:         userID,
		Prompt:         "测试提示词",
		Status:         model.TurnCollecting,
	}
	for _, opt := range opts {
		opt(turn)
	}

	if err := db.Create(turn).Error; err != nil {
		t.Fatalf("Failed to create test turn: %v", err)
	}

	for _, provider := range providers {
		resp := &model.ProviderResponse{
			TurnID:   turn.ID,
			Provider: provider,
			Status:   model.ResponsePending,
		}
		if err := db.Create(resp).Error; err != nil {
			t.Fatalf("Failed to create test response: %v", err)
		}
	}

	return turn
}

// WithTurnStatus 设置轮次状态
func WithTurnStatus(status string) func(*model.ConversationTurn) {
	return func(turn *model.ConversationTurn) {
		turn.Status = status
	}
}

// WithPrompt 设置提示词
func WithPrompt(prompt string) func(*model.ConversationTurn) {
	return func(turn *model.ConversationTurn) {
		turn.Prompt = prompt
	}
}

// SettleTestResponse 把某条响应直接落定为指定状态
func SettleTestResponse(t *testing.T, db *gorm.DB, turnID int64, provider, status, content string) {
	t.Helper()

	now := time.Now()
	err := db.Model(&model.ProviderResponse{}).
		Where("turn_id = ? AND provider = ?", turnID, provider).
		Updates(map[string]interface{}{
			"status":     status,
			"content":    content,
			"settled_at": now,
		}).Error
	if err != nil {
		t.Fatalf("Failed to settle test response: %v", err)
	}
}

// TestAPIKey 创建测试个人密钥
func TestAPIKey(t *testing.T, db *gorm.DB, userID int64, provider, keyValue string) *model.APIKey {
	t.Helper()

	key := &model.APIKey{
		UserID:   userID,
		Provider: provider,
		KeyValue: keyValue,
	}
	if err := db.Create(key).Error; err != nil {
		t.Fatalf("Failed to create test api key: %v", err)
	}
	return key
}
