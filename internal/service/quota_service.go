package service

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/chathub_go_server/config"
	"github.com/qs3c/chathub_go_server/internal/model"
	"github.com/qs3c/chathub_go_server/internal/model/dto"
	"github.com/qs3c/chathub_go_server/internal/repository"
)

var (
	ErrQuotaExceeded     = errors.New("本月对话额度已用完")
	ErrLedgerUnavailable = errors.New("用量服务暂不可用，请稍后重试")
	ErrUserMissing       = errors.New("用户不存在")
)

// QuotaService 用量账本：按自然月计数，检查时惰性滚动，存储故障一律拒绝放行
type QuotaService struct {
	userRepo *repository.UserRepository
	cfg      *config.Config
}

func NewQuotaService(userRepo *repository.UserRepository, cfg *config.Config) *QuotaService {
	return &QuotaService{
		userRepo: userRepo,
		cfg:      cfg,
	}
}

// CheckUsage 检查本月额度。存储不可达时 fail closed：
// 返回 ErrLedgerUnavailable 而不是放行，也不能和额度用尽混为一谈
func (s *QuotaService) CheckUsage(userID int64) (*dto.UsageInfo, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserMissing
		}
		return nil, ErrLedgerUnavailable
	}

	// 上次重置在上个自然月之前则先滚动，滚动只发生一次
	if needsMonthlyReset(user.QuotaResetAt, time.Now()) {
		now := time.Now()
		if err := s.userRepo.ResetQuota(userID, now); err != nil {
			return nil, ErrLedgerUnavailable
		}
		user.QuotaUsedMonth = 0
		user.QuotaResetAt = &now
	}

	info := s.buildUsageInfo(user)
	return info, nil
}

// Consume 消耗一次额度。不限量套餐为空操作；
// 计数在存储层单条 UPDATE 原子加一，多标签页并发不会丢更新
func (s *QuotaService) Consume(userID int64) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return ErrLedgerUnavailable
	}
	if user.QuotaUnlimited() {
		return nil
	}
	return s.userRepo.IncrementQuotaUsed(userID)
}

// Refund 下游入队失败时退还额度
func (s *QuotaService) Refund(userID int64) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return ErrLedgerUnavailable
	}
	if user.QuotaUnlimited() {
		return nil
	}
	return s.userRepo.DecrementQuotaUsed(userID)
}

// Reset 管理员手动重置某用户额度
func (s *QuotaService) Reset(userID int64) error {
	return s.userRepo.ResetQuota(userID, time.Now())
}

// ResetAll 重置所有用户额度（月度兜底任务）
func (s *QuotaService) ResetAll() error {
	return s.userRepo.ResetAllQuotas(time.Now())
}

// GetUsageInfo 查询本月用量（不做放行判断之外的副作用区分，同样惰性滚动）
func (s *QuotaService) GetUsageInfo(userID int64) (*dto.UsageInfo, error) {
	return s.CheckUsage(userID)
}

func (s *QuotaService) buildUsageInfo(user *model.User) *dto.UsageInfo {
	info := &dto.UsageInfo{
		Tier:  user.SubscriptionLevel,
		Quota: user.MonthlyQuota,
		Used:  user.QuotaUsedMonth,
	}

	if user.QuotaUnlimited() {
		info.Allowed = true
		info.Remaining = -1
		info.UsageBucket = BucketOK
	} else {
		info.Allowed = user.QuotaUsedMonth < user.MonthlyQuota
		info.Remaining = user.MonthlyQuota - user.QuotaUsedMonth
		if info.Remaining < 0 {
			info.Remaining = 0
		}
		info.UsagePercent = UsagePercent(user.QuotaUsedMonth, user.MonthlyQuota)
		info.UsageBucket = UsageBucket(user.QuotaUsedMonth, user.MonthlyQuota)
	}

	if user.QuotaResetAt != nil {
		info.ResetAt = user.QuotaResetAt.Format(time.RFC3339)
	}

	return info
}

// needsMonthlyReset 判断是否跨过了自然月边界（按 UTC）
func needsMonthlyReset(resetAt *time.Time, now time.Time) bool {
	if resetAt == nil {
		return true
	}
	last := resetAt.UTC()
	cur := now.UTC()
	return last.Year() != cur.Year() || last.Month() != cur.Month()
}
