package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/chathub_go_server/internal/model"
)

type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) Create(conv *model.Conversation) error {
	return r.db.Create(conv).Error
}

func (r *ConversationRepository) GetByID(id int64) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.Where("id = ?", id).First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *ConversationRepository) Update(conv *model.Conversation) error {
	return r.db.Save(conv).Error
}

// Delete 删除会话及其全部轮次和响应
func (r *ConversationRepository) Delete(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var turnIDs []int64
		if err := tx.Model(&model.ConversationTurn{}).
			Where("conversation_id = ?", id).Pluck("id", &turnIDs).Error; err != nil {
			return err
		}
		if len(turnIDs) > 0 {
			if err := tx.Where("turn_id IN ?", turnIDs).Delete(&model.ProviderResponse{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("conversation_id = ?", id).Delete(&model.ConversationTurn{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Conversation{}).Error
	})
}

// ListByUserID 分页查询用户会话，带轮次数
func (r *ConversationRepository) ListByUserID(userID int64, page, pageSize int) ([]*model.Conversation, int64, error) {
	var convs []*model.Conversation
	var total int64

	query := r.db.Model(&model.Conversation{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("updated_at DESC").Offset(offset).Limit(pageSize).Find(&convs).Error
	return convs, total, err
}

func (r *ConversationRepository) CountTurns(conversationID int64) (int64, error) {
	var count int64
	err := r.db.Model(&model.ConversationTurn{}).
		Where("conversation_id = ?", conversationID).Count(&count).Error
	return count, err
}
