package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/chathub_go_server/internal/api/middleware"
	"github.com/qs3c/chathub_go_server/internal/pkg/response"
	"github.com/qs3c/chathub_go_server/internal/service"
)

type StatsHandler struct {
	statsService *service.StatsService
}

func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
	}
}

// GetUserStats 个人提供商偏好统计
// GET /api/v1/user/stats
func (h *StatsHandler) GetUserStats(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	items, err := h.statsService.GetUserStats(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, items)
}

// GetGlobalStats 全站提供商统计
// GET /api/v1/stats/providers
func (h *StatsHandler) GetGlobalStats(c *gin.Context) {
	items, err := h.statsService.GetGlobalStats()
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, items)
}
