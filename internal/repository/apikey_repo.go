package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/chathub_go_server/internal/model"
)

type APIKeyRepository struct {
	db *gorm.DB
}

func NewAPIKeyRepository(db *gorm.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// Upsert 同一用户同一提供商只保留一条，重复保存覆盖旧值
func (r *APIKeyRepository) Upsert(key *model.APIKey) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "provider"}},
		DoUpdates: clause.AssignmentColumns([]string{"key_value", "label", "updated_at"}),
	}).Create(key).Error
}

func (r *APIKeyRepository) GetByUserAndProvider(userID int64, provider string) (*model.APIKey, error) {
	var key model.APIKey
	err := r.db.Where("user_id = ? AND provider = ?", userID, provider).First(&key).Error
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func (r *APIKeyRepository) ListByUserID(userID int64) ([]*model.APIKey, error) {
	var keys []*model.APIKey
	err := r.db.Where("user_id = ?", userID).Order("provider ASC").Find(&keys).Error
	return keys, err
}

func (r *APIKeyRepository) Delete(userID, keyID int64) error {
	return r.db.Where("id = ? AND user_id = ?", keyID, userID).Delete(&model.APIKey{}).Error
}
