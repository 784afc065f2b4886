package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/chathub_go_server/internal/model"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(sub *model.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *SubscriptionRepository) GetActiveByUserID(userID int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.Where("user_id = ? AND status = ? AND expires_at > ?", userID, "active", time.Now()).
		Order("expires_at DESC").First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) ListByUserID(userID int64) ([]*model.Subscription, error) {
	var subs []*model.Subscription
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&subs).Error
	return subs, err
}

// ExpireOutdated 将已过期的订阅置为 expired，返回受影响行数
func (r *SubscriptionRepository) ExpireOutdated() (int64, error) {
	result := r.db.Model(&model.Subscription{}).
		Where("status = ? AND expires_at <= ?", "active", time.Now()).
		Update("status", "expired")
	return result.RowsAffected, result.Error
}
