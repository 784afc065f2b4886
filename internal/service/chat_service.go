package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/chathub_go_server/config"
	"github.com/qs3c/chathub_go_server/internal/model"
	"github.com/qs3c/chathub_go_server/internal/model/dto"
	"github.com/qs3c/chathub_go_server/internal/pkg/pubsub"
	"github.com/qs3c/chathub_go_server/internal/pkg/queue"
	"github.com/qs3c/chathub_go_server/internal/provider"
	"github.com/qs3c/chathub_go_server/internal/repository"
)

var (
	ErrConversationNotFound   = errors.New("会话不存在")
	ErrConversationPermission = errors.New("无权操作此会话")
	ErrTurnNotFound           = errors.New("提问轮次不存在")
	ErrNoValidProvider        = errors.New("没有可用的提供商")
	ErrTurnNotCancellable     = errors.New("该轮次已结束，无法取消")
)

// 发给提供商的上下文最多带最近几轮历史
const maxHistoryTurns = 10

type ChatService struct {
	convRepo     *repository.ConversationRepository
	turnRepo     *repository.TurnRepository
	userRepo     *repository.UserRepository
	quotaService *QuotaService
	tierService  *TierService
	registry     *provider.Registry
	turnQueue    *queue.Queue
	publisher    *pubsub.Publisher
	cfg          *config.Config
}

func NewChatService(
	convRepo *repository.ConversationRepository,
	turnRepo *repository.TurnRepository,
	userRepo *repository.UserRepository,
	quotaService *QuotaService,
	tierService *TierService,
	registry *provider.Registry,
	turnQueue *queue.Queue,
	publisher *pubsub.Publisher,
	cfg *config.Config,
) *ChatService {
	return &ChatService{
		convRepo:     convRepo,
		turnRepo:     turnRepo,
		userRepo:     userRepo,
		quotaService: quotaService,
		tierService:  tierService,
		registry:     registry,
		turnQueue:    turnQueue,
		publisher:    publisher,
		cfg:          cfg,
	}
}

// CreateConversation 创建会话
func (s *ChatService) CreateConversation(userID int64, req *dto.CreateConversationRequest) (*model.Conversation, error) {
	title := req.Title
	if title == "" {
		title = "新对话"
	}
	conv := &model.Conversation{
		UserID: userID,
		Title:  title,
	}
	if err := s.convRepo.Create(conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// ListConversations 会话列表
func (s *ChatService) ListConversations(userID int64, page, pageSize int) ([]*dto.ConversationListItem, int64, error) {
	convs, total, err := s.convRepo.ListByUserID(userID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	items := make([]*dto.ConversationListItem, len(convs))
	for i, conv := range convs {
		turnCount, _ := s.convRepo.CountTurns(conv.ID)
		items[i] = &dto.ConversationListItem{
			ID:        conv.ID,
			Title:     conv.Title,
			TurnCount: turnCount,
			CreatedAt: conv.CreatedAt.Format(time.RFC3339),
			UpdatedAt: conv.UpdatedAt.Format(time.RFC3339),
		}
	}
	return items, total, nil
}

// GetConversation 会话详情（含全部轮次和响应）
func (s *ChatService) GetConversation(userID, conversationID int64) (*dto.ConversationDetail, error) {
	conv, err := s.getOwnedConversation(userID, conversationID)
	if err != nil {
		return nil, err
	}

	turns, err := s.turnRepo.ListByConversationID(conv.ID)
	if err != nil {
		return nil, err
	}

	detail := &dto.ConversationDetail{
		ID:        conv.ID,
		Title:     conv.Title,
		Turns:     make([]dto.TurnDetail, len(turns)),
		CreatedAt: conv.CreatedAt.Format(time.RFC3339),
	}
	for i, turn := range turns {
		detail.Turns[i] = *buildTurnDetail(turn)
	}
	return detail, nil
}

// DeleteConversation 删除会话
func (s *ChatService) DeleteConversation(userID, conversationID int64) error {
	if _, err := s.getOwnedConversation(userID, conversationID); err != nil {
		return err
	}
	return s.convRepo.Delete(conversationID)
}

// CreateTurn 发起一轮提问：额度闸门 → 取消上一轮在途任务 → 落库 → 扣额度 → 入队。
// 入队失败会退还额度并标记失败，不会出现「扣了额度但没派发」的轮次
func (s *ChatService) CreateTurn(ctx context.Context, userID, conversationID int64, req *dto.CreateTurnRequest) (*dto.CreateTurnResponse, error) {
	if _, err := s.getOwnedConversation(userID, conversationID); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, ErrLedgerUnavailable
	}

	// 额度闸门：额度不足和账本故障分别报错，都不放行
	usage, err := s.quotaService.CheckUsage(userID)
	if err != nil {
		return nil, err
	}
	if !usage.Allowed {
		return nil, ErrQuotaExceeded
	}

	tasks := s.resolveProviders(user.SubscriptionLevel, req.Providers)
	if len(tasks) == 0 {
		return nil, ErrNoValidProvider
	}

	// 同会话还有在途轮次时先取消，避免旧结果串进新轮次
	if prev, err := s.turnRepo.GetCollectingTurn(conversationID); err == nil {
		s.cancelTurn(ctx, prev)
	}

	turn := &model.ConversationTurn{
		ConversationID: conversationID,
		UserID:         userID,
		Prompt:         req.Prompt,
		Attachments:    req.Attachments,
		Status:         model.TurnCollecting,
	}
	responses := make([]*model.ProviderResponse, len(tasks))
	for i, task := range tasks {
		responses[i] = &model.ProviderResponse{
			Provider:  task.Provider,
			ModelName: task.ModelName,
			Status:    model.ResponsePending,
		}
	}
	if err := s.turnRepo.CreateWithResponses(turn, responses); err != nil {
		return nil, err
	}

	if err := s.quotaService.Consume(userID); err != nil {
		return nil, err
	}

	msg := &queue.TurnMessage{
		TurnID:         turn.ID,
		ConversationID: conversationID,
		UserID:         userID,
		Prompt:         req.Prompt,
		Attachments:    req.Attachments,
		Providers:      tasks,
	}
	if err := s.turnQueue.Push(ctx, msg); err != nil {
		// 退还额度并终结该轮次
		s.quotaService.Refund(userID)
		s.turnRepo.CancelPendingResponses(turn.ID, "任务派发失败")
		s.turnRepo.TransitionStatus(turn.ID, model.TurnCollecting, model.TurnCancelled)
		return nil, err
	}

	providerNames := make([]string, len(tasks))
	for i, task := range tasks {
		providerNames[i] = task.Provider
	}
	return &dto.CreateTurnResponse{
		TurnID:    turn.ID,
		Providers: providerNames,
	}, nil
}

// GetTurn 轮次详情
func (s *ChatService) GetTurn(userID, turnID int64) (*dto.TurnDetail, error) {
	turn, err := s.getOwnedTurn(userID, turnID)
	if err != nil {
		return nil, err
	}
	return buildTurnDetail(turn), nil
}

// CancelTurn 用户主动取消在途轮次
func (s *ChatService) CancelTurn(ctx context.Context, userID, turnID int64) error {
	turn, err := s.getOwnedTurn(userID, turnID)
	if err != nil {
		return err
	}
	if turn.Status != model.TurnCollecting {
		return ErrTurnNotCancellable
	}
	s.cancelTurn(ctx, turn)
	return nil
}

// BuildHistory 取该会话最近几轮作为上下文：用户提示词 + 当轮最佳（或最先成功的）回答
func (s *ChatService) BuildHistory(conversationID, beforeTurnID int64) ([]provider.ChatMessage, error) {
	turns, err := s.turnRepo.ListByConversationID(conversationID)
	if err != nil {
		return nil, err
	}

	var history []provider.ChatMessage
	for _, turn := range turns {
		if turn.ID >= beforeTurnID {
			continue
		}
		answer := pickAnswer(turn)
		if answer == "" {
			continue
		}
		history = append(history,
			provider.ChatMessage{Role: "user", Content: turn.Prompt},
			provider.ChatMessage{Role: "assistant", Content: answer},
		)
	}

	if len(history) > maxHistoryTurns*2 {
		history = history[len(history)-maxHistoryTurns*2:]
	}
	return history, nil
}

func (s *ChatService) cancelTurn(ctx context.Context, turn *model.ConversationTurn) {
	s.publisher.PublishCancel(ctx, turn.ID)
	s.turnRepo.CancelPendingResponses(turn.ID, "已取消")
	s.turnRepo.TransitionStatus(turn.ID, model.TurnCollecting, model.TurnCancelled)
	s.publisher.PublishEvent(ctx, &pubsub.TurnEvent{
		Type:   pubsub.EventTurnCancelled,
		UserID: turn.UserID,
		TurnID: turn.ID,
	})
}

// resolveProviders 去重、过滤未注册的提供商，并按套餐上限静默截断
func (s *ChatService) resolveProviders(tierID string, names []string) []queue.ProviderTask {
	maxProviders := s.tierService.MaxProviders(tierID)

	seen := make(map[string]struct{})
	var tasks []queue.ProviderTask
	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		cfg, ok := s.registry.Config(name)
		if !ok {
			continue
		}
		seen[name] = struct{}{}
		tasks = append(tasks, queue.ProviderTask{
			Provider:  name,
			ModelName: cfg.DefaultModel,
		})
		if maxProviders > 0 && len(tasks) >= maxProviders {
			break
		}
	}
	return tasks
}

func (s *ChatService) getOwnedConversation(userID, conversationID int64) (*model.Conversation, error) {
	conv, err := s.convRepo.GetByID(conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	if conv.UserID != userID {
		return nil, ErrConversationPermission
	}
	return conv, nil
}

func (s *ChatService) getOwnedTurn(userID, turnID int64) (*model.ConversationTurn, error) {
	turn, err := s.turnRepo.GetByID(turnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTurnNotFound
		}
		return nil, err
	}
	if turn.UserID != userID {
		return nil, ErrConversationPermission
	}
	return turn, nil
}

// pickAnswer 选中的回答优先，其次第一条成功的回答
func pickAnswer(turn *model.ConversationTurn) string {
	for _, resp := range turn.Responses {
		if resp.Selected && resp.Status == model.ResponseSuccess {
			return resp.Content
		}
	}
	for _, resp := range turn.Responses {
		if resp.Status == model.ResponseSuccess && resp.Content != "" {
			return resp.Content
		}
	}
	return ""
}

func buildTurnDetail(turn *model.ConversationTurn) *dto.TurnDetail {
	detail := &dto.TurnDetail{
		ID:             turn.ID,
		ConversationID: turn.ConversationID,
		Prompt:         turn.Prompt,
		Attachments:    turn.Attachments,
		Status:         turn.Status,
		Responses:      make([]dto.ProviderResponseItem, len(turn.Responses)),
		CreatedAt:      turn.CreatedAt.Format(time.RFC3339),
	}
	if turn.SelectedProvider != nil {
		detail.SelectedProvider = *turn.SelectedProvider
	}
	for i, resp := range turn.Responses {
		item := dto.ProviderResponseItem{
			Provider:     resp.Provider,
			ModelName:    resp.ModelName,
			Content:      resp.Content,
			MediaURL:     resp.MediaURL,
			Status:       resp.Status,
			ErrorMessage: resp.ErrorMessage,
			Selected:     resp.Selected,
			LatencyMs:    resp.LatencyMs,
		}
		if resp.SettledAt != nil {
			item.SettledAt = resp.SettledAt.Format(time.RFC3339)
		}
		detail.Responses[i] = item
	}
	return detail
}
