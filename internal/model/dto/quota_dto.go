package dto

// UsageInfo 本月用量信息，Quota 为 -1 表示不限量
type UsageInfo struct {
	Allowed      bool   `json:"allowed"`
	Tier         string `json:"tier"`
	Quota        int    `json:"quota"`
	Used         int    `json:"used"`
	Remaining    int    `json:"remaining"`
	UsagePercent int    `json:"usage_percent"`
	UsageBucket  string `json:"usage_bucket"` // ok, warn, critical
	ResetAt      string `json:"reset_at,omitempty"`
}

// TierInfo 套餐信息
type TierInfo struct {
	ID           string   `json:"id"`
	DisplayName  string   `json:"display_name"`
	MonthlyQuota int      `json:"monthly_quota"` // -1 表示不限
	MaxProviders int      `json:"max_providers"` // -1 表示不限
	PriceCents   int      `json:"price_cents"`
	PriceText    string   `json:"price_text"`
	Features     []string `json:"features,omitempty"`
}

// UpgradeRequest 套餐升级请求
type UpgradeRequest struct {
	Plan          string `json:"plan" binding:"required,oneof=pro"`
	PaymentMethod string `json:"payment_method" binding:"required,oneof=wechat alipay"`
	TransactionID string `json:"transaction_id" binding:"required,max=100"`
}

// UpgradeResponse 套餐升级响应
type UpgradeResponse struct {
	SubscriptionID int64  `json:"subscription_id"`
	Plan           string `json:"plan"`
	ExpiresAt      string `json:"expires_at"`
}
