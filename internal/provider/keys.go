package provider

import (
	"errors"

	"gorm.io/gorm"

	"github.com/qs3c/chathub_go_server/internal/repository"
)

// KeyResolver 按「个人密钥 → 全局共享密钥 → 不可用」的顺序解析 API Key
type KeyResolver struct {
	apiKeyRepo *repository.APIKeyRepository
	registry   *Registry
}

func NewKeyResolver(apiKeyRepo *repository.APIKeyRepository, registry *Registry) *KeyResolver {
	return &KeyResolver{
		apiKeyRepo: apiKeyRepo,
		registry:   registry,
	}
}

// Resolve 解析用户对某提供商可用的密钥
func (k *KeyResolver) Resolve(userID int64, providerName string) (string, error) {
	personal, err := k.apiKeyRepo.GetByUserAndProvider(userID, providerName)
	if err == nil && personal.KeyValue != "" {
		return personal.KeyValue, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	cfg, ok := k.registry.Config(providerName)
	if ok && cfg.APIKey != "" {
		return cfg.APIKey, nil
	}

	return "", ErrNotConfigured
}

// Available 判断某提供商对用户是否可用（有任意可解析密钥）
func (k *KeyResolver) Available(userID int64, providerName string) bool {
	_, err := k.Resolve(userID, providerName)
	return err == nil
}
