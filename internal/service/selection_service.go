package service

import (
	"errors"

	"gorm.io/gorm"

	"github.com/qs3c/chathub_go_server/internal/model"
	"github.com/qs3c/chathub_go_server/internal/repository"
)

var (
	ErrTurnNotSelectable     = errors.New("该轮次尚未完成，无法选择回答")
	ErrResponseNotFound      = errors.New("该轮次没有此提供商的响应")
	ErrResponseNotSelectable = errors.New("只能选择成功返回的回答")
)

// SelectionService 最佳回答选择与偏好计数。
// total_selections 是历史累计值：换选只给新选中的加一，旧的不回退
type SelectionService struct {
	turnRepo  *repository.TurnRepository
	statsRepo *repository.StatsRepository
}

func NewSelectionService(turnRepo *repository.TurnRepository, statsRepo *repository.StatsRepository) *SelectionService {
	return &SelectionService{
		turnRepo:  turnRepo,
		statsRepo: statsRepo,
	}
}

// RecordSelection 记录用户选择的最佳回答。
// 重复选择同一提供商为幂等空操作；换选在事务内完成，任意时刻至多一条被选中
func (s *SelectionService) RecordSelection(userID, turnID int64, providerName string) error {
	turn, err := s.turnRepo.GetByID(turnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTurnNotFound
		}
		return err
	}
	if turn.UserID != userID {
		return ErrConversationPermission
	}
	if turn.Status != model.TurnComplete && turn.Status != model.TurnResolved {
		return ErrTurnNotSelectable
	}

	resp, err := s.turnRepo.GetResponse(turnID, providerName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrResponseNotFound
		}
		return err
	}
	if resp.Status != model.ResponseSuccess {
		return ErrResponseNotSelectable
	}

	// 幂等：重复选同一家不动计数
	if resp.Selected {
		return nil
	}

	if err := s.turnRepo.SwapSelection(turnID, providerName); err != nil {
		return err
	}

	// 个人和全局各记一笔，计数失败不影响选择结果
	s.statsRepo.IncrementSelection(userID, providerName)
	s.statsRepo.IncrementSelection(0, providerName)

	s.turnRepo.TransitionStatus(turnID, model.TurnComplete, model.TurnResolved)
	return nil
}

// RecordResponseSettled 响应落定后的计数回调，个人和全局各记一笔
func (s *SelectionService) RecordResponseSettled(userID int64, providerName string, isError bool) {
	s.statsRepo.IncrementResponse(userID, providerName, isError)
	s.statsRepo.IncrementResponse(0, providerName, isError)
}
