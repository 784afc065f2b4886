package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/chathub_go_server/internal/api/middleware"
	"github.com/qs3c/chathub_go_server/internal/model/dto"
	"github.com/qs3c/chathub_go_server/internal/pkg/response"
	"github.com/qs3c/chathub_go_server/internal/service"
)

type QuotaHandler struct {
	quotaService        *service.QuotaService
	tierService         *service.TierService
	subscriptionService *service.SubscriptionService
}

func NewQuotaHandler(
	quotaService *service.QuotaService,
	tierService *service.TierService,
	subscriptionService *service.SubscriptionService,
) *QuotaHandler {
	return &QuotaHandler{
		quotaService:        quotaService,
		tierService:         tierService,
		subscriptionService: subscriptionService,
	}
}

// GetUsage 查询本月用量
// GET /api/v1/user/usage
func (h *QuotaHandler) GetUsage(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	usage, err := h.quotaService.GetUsageInfo(userID)
	if err != nil {
		if errors.Is(err, service.ErrUserMissing) {
			response.NotFoundError(c, err.Error())
		} else {
			response.UnavailableError(c, "")
		}
		return
	}

	response.Success(c, usage)
}

// ListTiers 套餐列表
// GET /api/v1/tiers
func (h *QuotaHandler) ListTiers(c *gin.Context) {
	response.Success(c, h.tierService.ListTiers())
}

// Upgrade 开通付费套餐
// POST /api/v1/user/subscription
func (h *QuotaHandler) Upgrade(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req dto.UpgradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.subscriptionService.Upgrade(userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownTier):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrAlreadySubscribed):
			response.DuplicateError(c, err.Error())
		case errors.Is(err, service.ErrUpgradeFailed):
			response.UnavailableError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "开通成功", resp)
}
