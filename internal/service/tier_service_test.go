package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/chathub_go_server/config"
)

func tierTestService() *TierService {
	return NewTierService(&config.Config{
		Subscription: config.SubscriptionConfig{
			Levels: map[string]config.SubscriptionLevel{
				"free": {DisplayName: "免费版", MonthlyQuota: 50, MaxProviders: 3},
				"pro":  {DisplayName: "专业版", MonthlyQuota: -1, MaxProviders: -1, PriceCents: 2900},
			},
		},
	})
}

func TestTierService_GetTier(t *testing.T) {
	s := tierTestService()

	tier, err := s.GetTier("pro")
	require.NoError(t, err)
	assert.Equal(t, "专业版", tier.DisplayName)
	assert.Equal(t, -1, tier.MonthlyQuota)
	assert.Equal(t, "¥29.00/月", tier.PriceText)

	_, err = s.GetTier("enterprise")
	assert.ErrorIs(t, err, ErrUnknownTier)
}

func TestTierService_ListTiers_PriceOrder(t *testing.T) {
	s := tierTestService()

	tiers := s.ListTiers()
	require.Len(t, tiers, 2)
	assert.Equal(t, "free", tiers[0].ID)
	assert.Equal(t, "pro", tiers[1].ID)
	assert.Equal(t, "免费", tiers[0].PriceText)
}

func TestTierService_MaxProviders(t *testing.T) {
	s := tierTestService()

	assert.Equal(t, 3, s.MaxProviders("free"))
	assert.Equal(t, -1, s.MaxProviders("pro"))
	// 未知套餐按免费档处理
	assert.Equal(t, 3, s.MaxProviders("unknown"))
}

func TestTierService_MonthlyQuota(t *testing.T) {
	s := tierTestService()

	assert.Equal(t, 50, s.MonthlyQuota("free"))
	assert.Equal(t, -1, s.MonthlyQuota("pro"))
	assert.Equal(t, 50, s.MonthlyQuota("unknown"))
}

func TestUsagePercent(t *testing.T) {
	assert.Equal(t, 0, UsagePercent(0, 50))
	assert.Equal(t, 50, UsagePercent(25, 50))
	assert.Equal(t, 100, UsagePercent(50, 50))
	// 超量封顶 100
	assert.Equal(t, 100, UsagePercent(60, 50))
	// 不限量恒为 0
	assert.Equal(t, 0, UsagePercent(100, -1))
	assert.Equal(t, 0, UsagePercent(100, 0))
}

func TestUsageBucket(t *testing.T) {
	assert.Equal(t, BucketOK, UsageBucket(0, 50))
	assert.Equal(t, BucketOK, UsageBucket(34, 50))
	assert.Equal(t, BucketWarn, UsageBucket(35, 50))
	assert.Equal(t, BucketWarn, UsageBucket(44, 50))
	assert.Equal(t, BucketCritical, UsageBucket(45, 50))
	assert.Equal(t, BucketCritical, UsageBucket(50, 50))
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "免费", FormatPrice(0))
	assert.Equal(t, "¥29.00/月", FormatPrice(2900))
	assert.Equal(t, "¥9.90/月", FormatPrice(990))
}
