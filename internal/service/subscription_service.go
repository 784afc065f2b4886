package service

import (
	"errors"
	"time"

	"github.com/qs3c/chathub_go_server/config"
	"github.com/qs3c/chathub_go_server/internal/model"
	"github.com/qs3c/chathub_go_server/internal/model/dto"
	"github.com/qs3c/chathub_go_server/internal/repository"
)

var (
	ErrAlreadySubscribed = errors.New("当前已是该套餐，无需重复开通")
	ErrUpgradeFailed     = errors.New("开通失败，请稍后重试")
)

// SubscriptionService 套餐订阅：开通、到期回落
type SubscriptionService struct {
	subRepo     *repository.SubscriptionRepository
	userRepo    *repository.UserRepository
	tierService *TierService
	cfg         *config.Config
}

func NewSubscriptionService(
	subRepo *repository.SubscriptionRepository,
	userRepo *repository.UserRepository,
	tierService *TierService,
	cfg *config.Config,
) *SubscriptionService {
	return &SubscriptionService{
		subRepo:     subRepo,
		userRepo:    userRepo,
		tierService: tierService,
		cfg:         cfg,
	}
}

// Upgrade 开通付费套餐：写订阅记录，再把用户的套餐标识和月额度切到新档。
// 用户表更新失败且错误属于瞬时故障时重试一次，
// 仍失败则订阅记录保留待人工核对，不静默吞掉
func (s *SubscriptionService) Upgrade(userID int64, req *dto.UpgradeRequest) (*dto.UpgradeResponse, error) {
	tier, err := s.tierService.GetTier(req.Plan)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, ErrUserMissing
	}
	if user.SubscriptionLevel == req.Plan {
		return nil, ErrAlreadySubscribed
	}

	now := time.Now()
	expiresAt := now.AddDate(0, 1, 0)
	sub := &model.Subscription{
		UserID:        userID,
		Plan:          req.Plan,
		AmountCents:   tier.PriceCents,
		MonthlyQuota:  tier.MonthlyQuota,
		StartedAt:     now,
		ExpiresAt:     expiresAt,
		Status:        "active",
		PaymentMethod: req.PaymentMethod,
		TransactionID: req.TransactionID,
	}
	if err := s.subRepo.Create(sub); err != nil {
		return nil, ErrUpgradeFailed
	}

	fields := map[string]interface{}{
		"subscription_level": req.Plan,
		"monthly_quota":      tier.MonthlyQuota,
	}
	err = retryOnce(func() error {
		return s.userRepo.UpdateFields(userID, fields)
	})
	if err != nil {
		return nil, ErrUpgradeFailed
	}

	return &dto.UpgradeResponse{
		SubscriptionID: sub.ID,
		Plan:           req.Plan,
		ExpiresAt:      expiresAt.Format(time.RFC3339),
	}, nil
}

// retryOnce 执行一次写入，失败时只对存储层归类为瞬时故障的错误原样重试一次，
// 业务性错误重试只会重复失败，直接返回
func retryOnce(write func() error) error {
	err := write()
	if err == nil || !repository.IsRetryable(err) {
		return err
	}
	return write()
}

// GetActive 查询用户当前生效的订阅，没有则返回 nil
func (s *SubscriptionService) GetActive(userID int64) (*model.Subscription, error) {
	sub, err := s.subRepo.GetActiveByUserID(userID)
	if err != nil {
		return nil, nil
	}
	return sub, nil
}

// ExpireOutdated 订阅到期处理：过期记录置为 expired，
// 无其他生效订阅的用户回落到免费档
func (s *SubscriptionService) ExpireOutdated() (int64, error) {
	affected, err := s.subRepo.ExpireOutdated()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, nil
	}

	freeQuota := s.tierService.MonthlyQuota("free")
	users, _, err := s.userRepo.List(1, 10000, "", "pro")
	if err != nil {
		return affected, err
	}
	for _, user := range users {
		if _, err := s.subRepo.GetActiveByUserID(user.ID); err == nil {
			continue
		}
		s.userRepo.UpdateFields(user.ID, map[string]interface{}{
			"subscription_level": "free",
			"monthly_quota":      freeQuota,
		})
	}
	return affected, nil
}
