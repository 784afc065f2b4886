package api

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/chathub_go_server/config"
	"github.com/qs3c/chathub_go_server/internal/api/handler"
	"github.com/qs3c/chathub_go_server/internal/api/middleware"
	"github.com/qs3c/chathub_go_server/internal/repository"
	"github.com/qs3c/chathub_go_server/internal/service"
)

type Router struct {
	authHandler      *handler.AuthHandler
	userHandler      *handler.UserHandler
	chatHandler      *handler.ChatHandler
	providersHandler *handler.ProvidersHandler
	quotaHandler     *handler.QuotaHandler
	statsHandler     *handler.StatsHandler
	adminHandler     *handler.AdminHandler
	uploadHandler    *handler.UploadHandler
	websocketHandler *handler.WebSocketHandler
	quotaService     *service.QuotaService
	userRepo         *repository.UserRepository
	cfg              *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	chatHandler *handler.ChatHandler,
	providersHandler *handler.ProvidersHandler,
	quotaHandler *handler.QuotaHandler,
	statsHandler *handler.StatsHandler,
	adminHandler *handler.AdminHandler,
	uploadHandler *handler.UploadHandler,
	websocketHandler *handler.WebSocketHandler,
	quotaService *service.QuotaService,
	userRepo *repository.UserRepository,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:      authHandler,
		userHandler:      userHandler,
		chatHandler:      chatHandler,
		providersHandler: providersHandler,
		quotaHandler:     quotaHandler,
		statsHandler:     statsHandler,
		adminHandler:     adminHandler,
		uploadHandler:    uploadHandler,
		websocketHandler: websocketHandler,
		quotaService:     quotaService,
		userRepo:         userRepo,
		cfg:              cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	api := engine.Group("/api/v1")
	{
		// WebSocket
		api.GET("/ws", r.websocketHandler.Handle)

		// 公开接口 - 认证
		auth := api.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
			auth.POST("/verify-email", r.authHandler.VerifyEmail)
			auth.GET("/github", r.authHandler.GithubAuth)
			auth.GET("/github/callback", r.authHandler.GithubCallback)
		}

		// 公开接口 - 套餐与全站统计
		api.GET("/tiers", r.quotaHandler.ListTiers)
		api.GET("/stats/providers", r.statsHandler.GetGlobalStats)

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			// 用户
			user := authenticated.Group("/user")
			{
				user.GET("/profile", r.userHandler.GetProfile)
				user.PUT("/profile", r.userHandler.UpdateProfile)
				user.POST("/avatar", r.userHandler.UploadAvatar)
				user.GET("/usage", r.quotaHandler.GetUsage)
				user.GET("/stats", r.statsHandler.GetUserStats)
				user.POST("/subscription", r.quotaHandler.Upgrade)
				user.GET("/api-keys", r.userHandler.ListAPIKeys)
				user.POST("/api-keys", r.userHandler.SaveAPIKey)
				user.DELETE("/api-keys/:id", r.userHandler.DeleteAPIKey)
			}

			// 提供商
			authenticated.GET("/providers", r.providersHandler.List)

			// 会话
			conversations := authenticated.Group("/conversations")
			{
				conversations.POST("", r.chatHandler.CreateConversation)
				conversations.GET("", r.chatHandler.ListConversations)
				conversations.GET("/:id", r.chatHandler.GetConversation)
				conversations.DELETE("/:id", r.chatHandler.DeleteConversation)
				// 发起提问需要先过额度闸门
				conversations.POST("/:id/turns",
					middleware.QuotaGate(r.quotaService), r.chatHandler.CreateTurn)
			}

			// 轮次
			turns := authenticated.Group("/turns")
			{
				turns.GET("/:id", r.chatHandler.GetTurn)
				turns.POST("/:id/cancel", r.chatHandler.CancelTurn)
				turns.POST("/:id/select", r.chatHandler.SelectResponse)
			}

			// 附件上传
			authenticated.POST("/upload/attachment", r.uploadHandler.UploadAttachment)
		}

		// 管理后台
		admin := api.Group("/admin")
		admin.Use(middleware.Auth(r.cfg.JWT.Secret), middleware.AdminOnly(r.userRepo))
		{
			admin.GET("/users", r.adminHandler.ListUsers)
			admin.PUT("/users/:id/tier", r.adminHandler.SetUserTier)
			admin.POST("/users/:id/reset-quota", r.adminHandler.ResetUserQuota)
			admin.GET("/dashboard", r.adminHandler.GetDashboard)
		}
	}

	return engine
}
