package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/chathub_go_server/internal/model/dto"
	"github.com/qs3c/chathub_go_server/internal/pkg/response"
	"github.com/qs3c/chathub_go_server/internal/service"
)

type AdminHandler struct {
	adminService *service.AdminService
	statsService *service.StatsService
}

func NewAdminHandler(adminService *service.AdminService, statsService *service.StatsService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		statsService: statsService,
	}
}

// ListUsers 用户列表
// GET /api/v1/admin/users?page=1&page_size=20&search=&tier=
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var req dto.AdminUserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	items, total, err := h.adminService.ListUsers(&req)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, req.Page, req.PageSize, items)
}

// SetUserTier 调整用户套餐
// PUT /api/v1/admin/users/:id/tier
func (h *AdminHandler) SetUserTier(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的用户 ID")
		return
	}

	var req dto.SetTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.adminService.SetUserTier(userID, req.Tier); err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownTier):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrUserMissing):
			response.NotFoundError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "套餐已调整", nil)
}

// ResetUserQuota 重置用户本月用量
// POST /api/v1/admin/users/:id/reset-quota
func (h *AdminHandler) ResetUserQuota(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的用户 ID")
		return
	}

	if err := h.adminService.ResetUserQuota(userID); err != nil {
		if errors.Is(err, service.ErrUserMissing) {
			response.NotFoundError(c, err.Error())
		} else {
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "用量已重置", nil)
}

// GetDashboard 管理后台汇总
// GET /api/v1/admin/dashboard
func (h *AdminHandler) GetDashboard(c *gin.Context) {
	stats, err := h.statsService.GetDashboard()
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, stats)
}
