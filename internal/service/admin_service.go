package service

import (
	"time"

	"github.com/qs3c/chathub_go_server/internal/model/dto"
	"github.com/qs3c/chathub_go_server/internal/repository"
)

// AdminService 管理后台：用户管理、套餐调整、额度重置
type AdminService struct {
	userRepo     *repository.UserRepository
	quotaService *QuotaService
	tierService  *TierService
}

func NewAdminService(userRepo *repository.UserRepository, quotaService *QuotaService, tierService *TierService) *AdminService {
	return &AdminService{
		userRepo:     userRepo,
		quotaService: quotaService,
		tierService:  tierService,
	}
}

// ListUsers 分页查询用户，支持按用户名/邮箱搜索和套餐过滤
func (s *AdminService) ListUsers(req *dto.AdminUserListRequest) ([]dto.AdminUserItem, int64, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	users, total, err := s.userRepo.List(page, pageSize, req.Search, req.Tier)
	if err != nil {
		return nil, 0, err
	}

	items := make([]dto.AdminUserItem, len(users))
	for i, user := range users {
		item := dto.AdminUserItem{
			ID:                user.ID,
			Username:          user.Username,
			Role:              user.Role,
			SubscriptionLevel: user.SubscriptionLevel,
			MonthlyQuota:      user.MonthlyQuota,
			QuotaUsedMonth:    user.QuotaUsedMonth,
			CreatedAt:         user.CreatedAt.Format(time.RFC3339),
		}
		if user.Email != nil {
			item.Email = *user.Email
		}
		items[i] = item
	}
	return items, total, nil
}

// SetUserTier 直接调整用户套餐，月额度同步切到新档
func (s *AdminService) SetUserTier(userID int64, tierID string) error {
	if _, err := s.tierService.GetTier(tierID); err != nil {
		return err
	}
	if _, err := s.userRepo.GetByID(userID); err != nil {
		return ErrUserMissing
	}
	return s.userRepo.UpdateFields(userID, map[string]interface{}{
		"subscription_level": tierID,
		"monthly_quota":      s.tierService.MonthlyQuota(tierID),
	})
}

// ResetUserQuota 重置单个用户的本月用量
func (s *AdminService) ResetUserQuota(userID int64) error {
	if _, err := s.userRepo.GetByID(userID); err != nil {
		return ErrUserMissing
	}
	return s.quotaService.Reset(userID)
}
