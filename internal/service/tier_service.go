package service

import (
	"errors"
	"fmt"
	"sort"

	"github.com/qs3c/chathub_go_server/config"
	"github.com/qs3c/chathub_go_server/internal/model/dto"
)

var ErrUnknownTier = errors.New("未知的套餐")

// 用量水位分档
const (
	BucketOK       = "ok"
	BucketWarn     = "warn"
	BucketCritical = "critical"
)

// TierService 套餐表的只读查询和若干纯函数，不落库
type TierService struct {
	cfg *config.Config
}

func NewTierService(cfg *config.Config) *TierService {
	return &TierService{cfg: cfg}
}

// GetTier 按 ID 查询套餐
func (s *TierService) GetTier(tierID string) (*dto.TierInfo, error) {
	level, ok := s.cfg.Subscription.Levels[tierID]
	if !ok {
		return nil, ErrUnknownTier
	}
	return s.buildTierInfo(tierID, level), nil
}

// ListTiers 套餐列表，按价格升序
func (s *TierService) ListTiers() []*dto.TierInfo {
	tiers := make([]*dto.TierInfo, 0, len(s.cfg.Subscription.Levels))
	for id, level := range s.cfg.Subscription.Levels {
		tiers = append(tiers, s.buildTierInfo(id, level))
	}
	sort.Slice(tiers, func(i, j int) bool {
		return tiers[i].PriceCents < tiers[j].PriceCents
	})
	return tiers
}

// MaxProviders 套餐允许的单轮对比提供商上限，-1 表示不限
func (s *TierService) MaxProviders(tierID string) int {
	level, ok := s.cfg.Subscription.Levels[tierID]
	if !ok {
		level = s.cfg.Subscription.Levels["free"]
	}
	return level.MaxProviders
}

// MonthlyQuota 套餐每月对话额度，-1 表示不限
func (s *TierService) MonthlyQuota(tierID string) int {
	level, ok := s.cfg.Subscription.Levels[tierID]
	if !ok {
		level = s.cfg.Subscription.Levels["free"]
	}
	return level.MonthlyQuota
}

func (s *TierService) buildTierInfo(id string, level config.SubscriptionLevel) *dto.TierInfo {
	return &dto.TierInfo{
		ID:           id,
		DisplayName:  level.DisplayName,
		MonthlyQuota: level.MonthlyQuota,
		MaxProviders: level.MaxProviders,
		PriceCents:   level.PriceCents,
		PriceText:    FormatPrice(level.PriceCents),
		Features:     level.Features,
	}
}

// UsagePercent 用量百分比，不限量恒为 0，封顶 100
func UsagePercent(used, quota int) int {
	if quota <= 0 {
		return 0
	}
	percent := used * 100 / quota
	if percent > 100 {
		percent = 100
	}
	return percent
}

// UsageBucket 用量水位分档：70% 以下 ok，90% 以下 warn，其余 critical
func UsageBucket(used, quota int) string {
	percent := UsagePercent(used, quota)
	switch {
	case percent < 70:
		return BucketOK
	case percent < 90:
		return BucketWarn
	default:
		return BucketCritical
	}
}

// FormatPrice 分转元的展示文本
func FormatPrice(cents int) string {
	if cents == 0 {
		return "免费"
	}
	return fmt.Sprintf("¥%d.%02d/月", cents/100, cents%100)
}
