package service

import (
	"time"

	"github.com/qs3c/chathub_go_server/internal/model"
	"github.com/qs3c/chathub_go_server/internal/model/dto"
	"github.com/qs3c/chathub_go_server/internal/repository"
)

// StatsService 提供商偏好统计的查询与派生指标计算
type StatsService struct {
	statsRepo *repository.StatsRepository
	turnRepo  *repository.TurnRepository
	userRepo  *repository.UserRepository
}

func NewStatsService(statsRepo *repository.StatsRepository, turnRepo *repository.TurnRepository, userRepo *repository.UserRepository) *StatsService {
	return &StatsService{
		statsRepo: statsRepo,
		turnRepo:  turnRepo,
		userRepo:  userRepo,
	}
}

// GetUserStats 用户个人的提供商统计
func (s *StatsService) GetUserStats(userID int64) ([]dto.ProviderStatItem, error) {
	stats, err := s.statsRepo.ListByUserID(userID)
	if err != nil {
		return nil, err
	}
	return buildStatItems(stats), nil
}

// GetGlobalStats 全站提供商统计（user_id 为 0 的汇总行）
func (s *StatsService) GetGlobalStats() ([]dto.ProviderStatItem, error) {
	stats, err := s.statsRepo.ListByUserID(0)
	if err != nil {
		return nil, err
	}
	return buildStatItems(stats), nil
}

// GetDashboard 管理后台汇总数据
func (s *StatsService) GetDashboard() (*dto.DashboardStats, error) {
	totalUsers, err := s.userRepo.Count()
	if err != nil {
		return nil, err
	}
	totalTurns, err := s.turnRepo.CountTurns()
	if err != nil {
		return nil, err
	}
	totalResponses, err := s.turnRepo.CountResponses()
	if err != nil {
		return nil, err
	}
	providers, err := s.GetGlobalStats()
	if err != nil {
		return nil, err
	}

	return &dto.DashboardStats{
		TotalUsers:     totalUsers,
		TotalTurns:     totalTurns,
		TotalResponses: totalResponses,
		Providers:      providers,
	}, nil
}

// buildStatItems 计算派生比率，分母为 0 时比率为 0
func buildStatItems(stats []*model.ProviderStat) []dto.ProviderStatItem {
	items := make([]dto.ProviderStatItem, len(stats))
	for i, stat := range stats {
		item := dto.ProviderStatItem{
			Provider:        stat.Provider,
			TotalResponses:  stat.TotalResponses,
			TotalSelections: stat.TotalSelections,
			ErrorCount:      stat.ErrorCount,
		}
		if stat.TotalResponses > 0 {
			item.SelectionRate = float64(stat.TotalSelections) / float64(stat.TotalResponses)
			item.ErrorRate = float64(stat.ErrorCount) / float64(stat.TotalResponses)
		}
		if stat.LastUsedAt != nil {
			item.LastUsedAt = stat.LastUsedAt.Format(time.RFC3339)
		}
		items[i] = item
	}
	return items
}
