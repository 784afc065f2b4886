package model

import (
	"time"
)

const (
	RoleMember     = "member"
	RoleSuperAdmin = "superadmin"
)

type User struct {
	ID                    int64      `gorm:"primaryKey" json:"id"`
	Username              string     `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email                 *string    `gorm:"size:100;uniqueIndex" json:"email,omitempty"`
	PasswordHash          *string    `gorm:"size:255" json:"-"`
	AvatarURL             string     `gorm:"size:500" json:"avatar_url"`
	Role                  string     `gorm:"size:20;default:member" json:"role"`
	GithubID              *string    `gorm:"column:github_id;size:50;uniqueIndex" json:"-"`
	SubscriptionLevel     string     `gorm:"size:20;default:free" json:"subscription_level"`
	MonthlyQuota          int        `gorm:"default:50" json:"monthly_quota"` // -1 表示不限
	QuotaUsedMonth        int        `gorm:"default:0" json:"quota_used_month"`
	QuotaResetAt          *time.Time `json:"quota_reset_at,omitempty"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at,omitempty"`
	EmailVerified         bool       `gorm:"default:false" json:"email_verified"`
	VerificationCode      *string    `gorm:"size:100" json:"-"`
	VerificationExpiresAt *time.Time `json:"-"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// QuotaUnlimited 判断配额是否不限量
func (u *User) QuotaUnlimited() bool {
	return u.MonthlyQuota < 0
}
