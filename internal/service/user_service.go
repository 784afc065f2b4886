package service

import (
	"errors"
	"io"
	"path/filepath"

	"gorm.io/gorm"

	"github.com/qs3c/chathub_go_server/config"
	"github.com/qs3c/chathub_go_server/internal/model"
	"github.com/qs3c/chathub_go_server/internal/model/dto"
	"github.com/qs3c/chathub_go_server/internal/pkg/oss"
	"github.com/qs3c/chathub_go_server/internal/provider"
	"github.com/qs3c/chathub_go_server/internal/repository"
)

var ErrUnknownProvider = errors.New("未知的提供商")

type UserService struct {
	userRepo     *repository.UserRepository
	apiKeyRepo   *repository.APIKeyRepository
	quotaService *QuotaService
	registry     *provider.Registry
	ossClient    *oss.Client
	cfg          *config.Config
}

func NewUserService(
	userRepo *repository.UserRepository,
	apiKeyRepo *repository.APIKeyRepository,
	quotaService *QuotaService,
	registry *provider.Registry,
	ossClient *oss.Client,
	cfg *config.Config,
) *UserService {
	return &UserService{
		userRepo:     userRepo,
		apiKeyRepo:   apiKeyRepo,
		quotaService: quotaService,
		registry:     registry,
		ossClient:    ossClient,
		cfg:          cfg,
	}
}

// GetProfile 获取用户详情（含本月用量）
func (s *UserService) GetProfile(userID int64) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserMissing
		}
		return nil, err
	}

	info := BuildUserInfo(user)
	if usage, err := s.quotaService.GetUsageInfo(userID); err == nil {
		info.UsageInfo = usage
	}
	return info, nil
}

// UpdateProfile 更新用户信息
func (s *UserService) UpdateProfile(userID int64, req *dto.UpdateProfileRequest) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserMissing
		}
		return nil, err
	}

	if req.Username != nil && *req.Username != user.Username {
		exists, err := s.userRepo.ExistsByUsername(*req.Username)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrUsernameExists
		}
		user.Username = *req.Username
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return BuildUserInfo(user), nil
}

// UploadAvatar 上传用户头像到 OSS 并更新头像地址
func (s *UserService) UploadAvatar(userID int64, file io.Reader, filename string) (string, error) {
	if s.ossClient == nil {
		return "", errors.New("OSS 客户端未配置")
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".jpg"
	}

	avatarURL, err := s.ossClient.UploadAvatar(userID, data, ext)
	if err != nil {
		return "", err
	}

	if err := s.userRepo.UpdateFields(userID, map[string]interface{}{
		"avatar_url": avatarURL,
	}); err != nil {
		return "", err
	}
	return avatarURL, nil
}

// SaveAPIKey 保存个人密钥，同一提供商重复保存覆盖旧值
func (s *UserService) SaveAPIKey(userID int64, req *dto.SaveAPIKeyRequest) error {
	if _, ok := s.registry.Config(req.Provider); !ok {
		return ErrUnknownProvider
	}
	return s.apiKeyRepo.Upsert(&model.APIKey{
		UserID:   userID,
		Provider: req.Provider,
		KeyValue: req.KeyValue,
		Label:    req.Label,
	})
}

// ListAPIKeys 个人密钥列表，密钥值只回显尾部
func (s *UserService) ListAPIKeys(userID int64) ([]dto.APIKeyItem, error) {
	keys, err := s.apiKeyRepo.ListByUserID(userID)
	if err != nil {
		return nil, err
	}

	items := make([]dto.APIKeyItem, len(keys))
	for i, key := range keys {
		items[i] = dto.APIKeyItem{
			ID:        key.ID,
			Provider:  key.Provider,
			KeyHint:   maskKey(key.KeyValue),
			Label:     key.Label,
			CreatedAt: key.CreatedAt.Format("2006-01-02 15:04:05"),
		}
	}
	return items, nil
}

// DeleteAPIKey 删除个人密钥
func (s *UserService) DeleteAPIKey(userID, keyID int64) error {
	return s.apiKeyRepo.Delete(userID, keyID)
}

// maskKey 密钥脱敏，只保留末四位
func maskKey(value string) string {
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}
