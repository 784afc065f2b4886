package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/chathub_go_server/internal/pkg/response"
	"github.com/qs3c/chathub_go_server/internal/service"
)

// QuotaGate 月度额度闸门。
// 额度用尽和账本不可用返回不同错误码，前端据此展示升级引导或重试提示
func QuotaGate(quotaService *service.QuotaService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			response.AuthError(c, "")
			c.Abort()
			return
		}

		usage, err := quotaService.CheckUsage(userID)
		if err != nil {
			if errors.Is(err, service.ErrUserMissing) {
				response.AuthError(c, "")
			} else {
				response.UnavailableError(c, "")
			}
			c.Abort()
			return
		}

		if !usage.Allowed {
			response.QuotaError(c, "本月对话额度已用完，升级套餐可解除限制")
			c.Abort()
			return
		}

		c.Next()
	}
}
