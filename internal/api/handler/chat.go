package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/chathub_go_server/internal/api/middleware"
	"github.com/qs3c/chathub_go_server/internal/model/dto"
	"github.com/qs3c/chathub_go_server/internal/pkg/response"
	"github.com/qs3c/chathub_go_server/internal/service"
)

type ChatHandler struct {
	chatService      *service.ChatService
	selectionService *service.SelectionService
}

func NewChatHandler(chatService *service.ChatService, selectionService *service.SelectionService) *ChatHandler {
	return &ChatHandler{
		chatService:      chatService,
		selectionService: selectionService,
	}
}

// CreateConversation 创建会话
// POST /api/v1/conversations
func (h *ChatHandler) CreateConversation(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req dto.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	conv, err := h.chatService.CreateConversation(userID, &req)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, conv)
}

// ListConversations 会话列表
// GET /api/v1/conversations?page=1&page_size=20
func (h *ChatHandler) ListConversations(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	items, total, err := h.chatService.ListConversations(userID, page, pageSize)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, page, pageSize, items)
}

// GetConversation 会话详情
// GET /api/v1/conversations/:id
func (h *ChatHandler) GetConversation(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	conversationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的会话 ID")
		return
	}

	detail, err := h.chatService.GetConversation(userID, conversationID)
	if err != nil {
		h.renderChatError(c, err)
		return
	}

	response.Success(c, detail)
}

// DeleteConversation 删除会话
// DELETE /api/v1/conversations/:id
func (h *ChatHandler) DeleteConversation(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	conversationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的会话 ID")
		return
	}

	if err := h.chatService.DeleteConversation(userID, conversationID); err != nil {
		h.renderChatError(c, err)
		return
	}

	response.SuccessWithMessage(c, "会话已删除", nil)
}

// CreateTurn 发起一轮提问（同时派发给多个提供商）
// POST /api/v1/conversations/:id/turns
func (h *ChatHandler) CreateTurn(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	conversationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的会话 ID")
		return
	}

	var req dto.CreateTurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.chatService.CreateTurn(c.Request.Context(), userID, conversationID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQuotaExceeded):
			response.QuotaError(c, err.Error())
		case errors.Is(err, service.ErrLedgerUnavailable):
			response.UnavailableError(c, err.Error())
		case errors.Is(err, service.ErrNoValidProvider):
			response.ParamError(c, err.Error())
		default:
			h.renderChatError(c, err)
		}
		return
	}

	response.Success(c, resp)
}

// GetTurn 轮次详情（轮询兜底，正常路径走 WebSocket 推送）
// GET /api/v1/turns/:id
func (h *ChatHandler) GetTurn(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	turnID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的轮次 ID")
		return
	}

	detail, err := h.chatService.GetTurn(userID, turnID)
	if err != nil {
		h.renderChatError(c, err)
		return
	}

	response.Success(c, detail)
}

// CancelTurn 取消在途轮次
// POST /api/v1/turns/:id/cancel
func (h *ChatHandler) CancelTurn(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	turnID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的轮次 ID")
		return
	}

	if err := h.chatService.CancelTurn(c.Request.Context(), userID, turnID); err != nil {
		if errors.Is(err, service.ErrTurnNotCancellable) {
			response.DuplicateError(c, err.Error())
		} else {
			h.renderChatError(c, err)
		}
		return
	}

	response.SuccessWithMessage(c, "已取消", nil)
}

// SelectResponse 选择本轮最佳回答
// POST /api/v1/turns/:id/select
func (h *ChatHandler) SelectResponse(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	turnID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的轮次 ID")
		return
	}

	var req dto.SelectResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.selectionService.RecordSelection(userID, turnID, req.Provider); err != nil {
		switch {
		case errors.Is(err, service.ErrTurnNotSelectable):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrResponseNotFound):
			response.NotFoundError(c, err.Error())
		case errors.Is(err, service.ErrResponseNotSelectable):
			response.ParamError(c, err.Error())
		default:
			h.renderChatError(c, err)
		}
		return
	}

	response.SuccessWithMessage(c, "已记录你的选择", nil)
}

func (h *ChatHandler) renderChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrConversationNotFound), errors.Is(err, service.ErrTurnNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrConversationPermission):
		response.PermissionError(c, err.Error())
	default:
		response.ServerError(c, "")
	}
}
