package dto

// AdminUserListRequest 用户列表请求参数
type AdminUserListRequest struct {
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
	Search   string `form:"search"`
	Tier     string `form:"tier"`
}

// AdminUserItem 用户列表项
type AdminUserItem struct {
	ID                int64  `json:"id"`
	Username          string `json:"username"`
	Email             string `json:"email,omitempty"`
	Role              string `json:"role"`
	SubscriptionLevel string `json:"subscription_level"`
	MonthlyQuota      int    `json:"monthly_quota"`
	QuotaUsedMonth    int    `json:"quota_used_month"`
	CreatedAt         string `json:"created_at"`
}

// SetTierRequest 修改用户套餐请求
type SetTierRequest struct {
	Tier string `json:"tier" binding:"required,oneof=free pro"`
}
