package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/chathub_go_server/internal/model"
)

type TurnRepository struct {
	db *gorm.DB
}

func NewTurnRepository(db *gorm.DB) *TurnRepository {
	return &TurnRepository{db: db}
}

// CreateWithResponses 创建轮次并按派发顺序写入 pending 响应占位
func (r *TurnRepository) CreateWithResponses(turn *model.ConversationTurn, responses []*model.ProviderResponse) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(turn).Error; err != nil {
			return err
		}
		for _, resp := range responses {
			resp.TurnID = turn.ID
			if err := tx.Create(resp).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *TurnRepository) GetByID(id int64) (*model.ConversationTurn, error) {
	var turn model.ConversationTurn
	err := r.db.Preload("Responses", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).Where("id = ?", id).First(&turn).Error
	if err != nil {
		return nil, err
	}
	return &turn, nil
}

// ListByConversationID 查询会话全部轮次（含响应，按创建顺序）
func (r *TurnRepository) ListByConversationID(conversationID int64) ([]*model.ConversationTurn, error) {
	var turns []*model.ConversationTurn
	err := r.db.Preload("Responses", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).Where("conversation_id = ?", conversationID).Order("id ASC").Find(&turns).Error
	return turns, err
}

// TransitionStatus 条件更新轮次状态，from 不匹配时不生效（状态机约束落到单条 UPDATE）
func (r *TurnRepository) TransitionStatus(id int64, from, to string) (bool, error) {
	if !model.CanTransitionTurn(from, to) {
		return false, nil
	}
	result := r.db.Model(&model.ConversationTurn{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return result.RowsAffected > 0, result.Error
}

// GetCollectingTurn 查询会话中仍在收集响应的轮次
func (r *TurnRepository) GetCollectingTurn(conversationID int64) (*model.ConversationTurn, error) {
	var turn model.ConversationTurn
	err := r.db.Where("conversation_id = ? AND status = ?", conversationID, model.TurnCollecting).
		Order("id DESC").First(&turn).Error
	if err != nil {
		return nil, err
	}
	return &turn, nil
}

// SettleResponse 将 pending 响应落定为 success 或 error，条件更新保证只落定一次。
// modelName 非空时回写厂商实际使用的模型
func (r *TurnRepository) SettleResponse(turnID int64, provider, status, content, mediaURL, errMsg, modelName string, latencyMs int64) (bool, error) {
	now := time.Now()
	fields := map[string]interface{}{
		"status":        status,
		"content":       content,
		"media_url":     mediaURL,
		"error_message": errMsg,
		"latency_ms":    latencyMs,
		"settled_at":    now,
	}
	if modelName != "" {
		fields["model_name"] = modelName
	}
	result := r.db.Model(&model.ProviderResponse{}).
		Where("turn_id = ? AND provider = ? AND status = ?", turnID, provider, model.ResponsePending).
		Updates(fields)
	return result.RowsAffected > 0, result.Error
}

// CountPendingResponses 统计轮次中未落定的响应数
func (r *TurnRepository) CountPendingResponses(turnID int64) (int64, error) {
	var count int64
	err := r.db.Model(&model.ProviderResponse{}).
		Where("turn_id = ? AND status = ?", turnID, model.ResponsePending).Count(&count).Error
	return count, err
}

func (r *TurnRepository) GetResponse(turnID int64, provider string) (*model.ProviderResponse, error) {
	var resp model.ProviderResponse
	err := r.db.Where("turn_id = ? AND provider = ?", turnID, provider).First(&resp).Error
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// SwapSelection 事务内换选：清除旧选择，标记新选择，更新轮次记录
func (r *TurnRepository) SwapSelection(turnID int64, provider string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.ProviderResponse{}).
			Where("turn_id = ? AND selected = ?", turnID, true).
			Update("selected", false).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.ProviderResponse{}).
			Where("turn_id = ? AND provider = ?", turnID, provider).
			Update("selected", true).Error; err != nil {
			return err
		}
		return tx.Model(&model.ConversationTurn{}).
			Where("id = ?", turnID).
			Update("selected_provider", provider).Error
	})
}

// ListStaleCollecting 查询超时未完成的轮次（维护任务用）
func (r *TurnRepository) ListStaleCollecting(olderThan time.Time) ([]*model.ConversationTurn, error) {
	var turns []*model.ConversationTurn
	err := r.db.Where("status = ? AND created_at < ?", model.TurnCollecting, olderThan).
		Find(&turns).Error
	return turns, err
}

// CancelPendingResponses 将轮次中剩余 pending 响应落定为取消错误
func (r *TurnRepository) CancelPendingResponses(turnID int64, message string) error {
	now := time.Now()
	return r.db.Model(&model.ProviderResponse{}).
		Where("turn_id = ? AND status = ?", turnID, model.ResponsePending).
		Updates(map[string]interface{}{
			"status":        model.ResponseError,
			"error_message": message,
			"settled_at":    now,
		}).Error
}

func (r *TurnRepository) CountTurns() (int64, error) {
	var count int64
	err := r.db.Model(&model.ConversationTurn{}).Count(&count).Error
	return count, err
}

func (r *TurnRepository) CountResponses() (int64, error) {
	var count int64
	err := r.db.Model(&model.ProviderResponse{}).Count(&count).Error
	return count, err
}
