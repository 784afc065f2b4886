package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/qs3c/chathub_go_server/config"
	"github.com/qs3c/chathub_go_server/internal/api"
	"github.com/qs3c/chathub_go_server/internal/api/handler"
	"github.com/qs3c/chathub_go_server/internal/database"
	"github.com/qs3c/chathub_go_server/internal/pkg/cron"
	"github.com/qs3c/chathub_go_server/internal/pkg/email"
	"github.com/qs3c/chathub_go_server/internal/pkg/oauth"
	"github.com/qs3c/chathub_go_server/internal/pkg/oss"
	"github.com/qs3c/chathub_go_server/internal/pkg/pubsub"
	"github.com/qs3c/chathub_go_server/internal/pkg/queue"
	"github.com/qs3c/chathub_go_server/internal/pkg/ws"
	"github.com/qs3c/chathub_go_server/internal/provider"
	"github.com/qs3c/chathub_go_server/internal/repository"
	"github.com/qs3c/chathub_go_server/internal/service"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	log.Println("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	// 初始化 OSS（可选）
	var ossClient *oss.Client
	if cfg.OSS.Endpoint != "" && cfg.OSS.AccessKeyID != "" {
		ossClient, err = oss.NewClient(&cfg.OSS)
		if err != nil {
			log.Printf("Warning: Failed to init OSS client: %v", err)
		} else {
			log.Println("OSS client initialized")
		}
	}

	// 邮件服务（可选，未配置时注册不发验证邮件）
	var emailService *email.Service
	if cfg.Email.SMTPHost != "" {
		emailService = email.NewService(&cfg.Email)
		log.Println("Email service initialized")
	}

	// 队列和发布订阅
	turnQueue := queue.NewQueue(rdb, cfg.Queue.TurnQueue)
	publisher := pubsub.NewPublisher(rdb)
	subscriber := pubsub.NewSubscriber(rdb)

	// WebSocket Hub
	wsHub := ws.NewHub()

	// 提供商注册表
	registry := provider.NewRegistry(cfg.Providers)

	// Repository
	userRepo := repository.NewUserRepository(db)
	convRepo := repository.NewConversationRepository(db)
	turnRepo := repository.NewTurnRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	apiKeyRepo := repository.NewAPIKeyRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)

	keyResolver := provider.NewKeyResolver(apiKeyRepo, registry)

	// Service
	tierService := service.NewTierService(cfg)
	quotaService := service.NewQuotaService(userRepo, cfg)
	authService := service.NewAuthService(userRepo, emailService, cfg)
	userService := service.NewUserService(userRepo, apiKeyRepo, quotaService, registry, ossClient, cfg)
	chatService := service.NewChatService(convRepo, turnRepo, userRepo, quotaService, tierService, registry, turnQueue, publisher, cfg)
	selectionService := service.NewSelectionService(turnRepo, statsRepo)
	statsService := service.NewStatsService(statsRepo, turnRepo, userRepo)
	subscriptionService := service.NewSubscriptionService(subRepo, userRepo, tierService, cfg)
	adminService := service.NewAdminService(userRepo, quotaService, tierService)
	uploadService := service.NewUploadService(ossClient, cfg)

	// Handler
	stateStore := oauth.NewStateStore(rdb)
	authHandler := handler.NewAuthHandler(authService, stateStore)
	userHandler := handler.NewUserHandler(userService)
	chatHandler := handler.NewChatHandler(chatService, selectionService)
	providersHandler := handler.NewProvidersHandler(registry, keyResolver, cfg)
	quotaHandler := handler.NewQuotaHandler(quotaService, tierService, subscriptionService)
	statsHandler := handler.NewStatsHandler(statsService)
	adminHandler := handler.NewAdminHandler(adminService, statsService)
	uploadHandler := handler.NewUploadHandler(uploadService)
	websocketHandler := handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret)

	// 订阅轮次事件并转发到用户的 WebSocket 连接
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := subscriber.SubscribeEvents(ctx, func(event *pubsub.TurnEvent) {
			wsHub.SendTurnEvent(event.UserID, event)
		}); err != nil && ctx.Err() == nil {
			log.Printf("Turn event subscription stopped: %v", err)
		}
	}()
	log.Println("Turn event forwarding started")

	// 后台维护任务
	cronService := cron.NewService(quotaService, subscriptionService, turnRepo, publisher)
	cronService.Start()
	defer cronService.Stop()

	// Router
	router := api.NewRouter(
		authHandler,
		userHandler,
		chatHandler,
		providersHandler,
		quotaHandler,
		statsHandler,
		adminHandler,
		uploadHandler,
		websocketHandler,
		quotaService,
		userRepo,
		cfg,
	)
	engine := router.Setup()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
