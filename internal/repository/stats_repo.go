package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/chathub_go_server/internal/model"
)

type StatsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// IncrementResponse 响应落定计数：总数加一，失败时错误数加一，刷新最近使用时间
func (r *StatsRepository) IncrementResponse(userID int64, provider string, isError bool) error {
	now := time.Now()
	errDelta := 0
	if isError {
		errDelta = 1
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "provider"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_responses": gorm.Expr("total_responses + 1"),
			"error_count":     gorm.Expr("error_count + ?", errDelta),
			"last_used_at":    now,
			"updated_at":      now,
		}),
	}).Create(&model.ProviderStat{
		UserID:         userID,
		Provider:       provider,
		TotalResponses: 1,
		ErrorCount:     int64(errDelta),
		LastUsedAt:     &now,
	}).Error
}

// IncrementSelection 选择计数加一，只增不减（历史累计值，不是当前选中状态）
func (r *StatsRepository) IncrementSelection(userID int64, provider string) error {
	now := time.Now()
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "provider"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_selections": gorm.Expr("total_selections + 1"),
			"updated_at":       now,
		}),
	}).Create(&model.ProviderStat{
		UserID:          userID,
		Provider:        provider,
		TotalSelections: 1,
	}).Error
}

// ListByUserID 查询用户的提供商统计，userID 为 0 返回全局汇总
func (r *StatsRepository) ListByUserID(userID int64) ([]*model.ProviderStat, error) {
	var stats []*model.ProviderStat
	err := r.db.Where("user_id = ?", userID).Order("provider ASC").Find(&stats).Error
	return stats, err
}

func (r *StatsRepository) Get(userID int64, provider string) (*model.ProviderStat, error) {
	var stat model.ProviderStat
	err := r.db.Where("user_id = ? AND provider = ?", userID, provider).First(&stat).Error
	if err != nil {
		return nil, err
	}
	return &stat, nil
}
