package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qs3c/chathub_go_server/config"
	"github.com/qs3c/chathub_go_server/internal/database"
	"github.com/qs3c/chathub_go_server/internal/pkg/pubsub"
	"github.com/qs3c/chathub_go_server/internal/pkg/queue"
	"github.com/qs3c/chathub_go_server/internal/provider"
	"github.com/qs3c/chathub_go_server/internal/repository"
	"github.com/qs3c/chathub_go_server/internal/service"
	"github.com/qs3c/chathub_go_server/internal/worker"
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

	// 队列和发布订阅
	turnQueue := queue.NewQueue(rdb, cfg.Queue.TurnQueue)
	publisher := pubsub.NewPublisher(rdb)
	subscriber := pubsub.NewSubscriber(rdb)

	// 提供商注册表
	registry := provider.NewRegistry(cfg.Providers)

	// Repository
	userRepo := repository.NewUserRepository(db)
	convRepo := repository.NewConversationRepository(db)
	turnRepo := repository.NewTurnRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	apiKeyRepo := repository.NewAPIKeyRepository(db)

	keyResolver := provider.NewKeyResolver(apiKeyRepo, registry)

	// Service（worker 侧只需要历史构建和落定计数）
	tierService := service.NewTierService(cfg)
	quotaService := service.NewQuotaService(userRepo, cfg)
	chatService := service.NewChatService(convRepo, turnRepo, userRepo, quotaService, tierService, registry, turnQueue, publisher, cfg)
	selectionService := service.NewSelectionService(turnRepo, statsRepo)

	dispatcher := worker.NewDispatcher(turnRepo, chatService, selectionService, keyResolver, registry, publisher, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	// 订阅取消信号，中止本进程内在途的调用
	go func() {
		if err := subscriber.SubscribeCancel(ctx, dispatcher.CancelTurn); err != nil && ctx.Err() == nil {
			log.Printf("Cancel subscription stopped: %v", err)
		}
	}()

	log.Printf("Worker started, max workers: %d", cfg.Queue.MaxWorkers)

	for i := 0; i < cfg.Queue.MaxWorkers; i++ {
		go func(workerID int) {
			for {
				select {
				case <-ctx.Done():
					log.Printf("Worker %d shutting down", workerID)
					return
				default:
					msg, err := turnQueue.Pop(ctx, 5*time.Second)
					if err != nil {
						if ctx.Err() != nil {
							return
						}
						log.Printf("Worker %d: failed to pop task: %v", workerID, err)
						continue
					}

					if msg == nil {
						continue // 超时，继续等待
					}

					log.Printf("Worker %d: dispatching turn %d", workerID, msg.TurnID)
					if err := dispatcher.Dispatch(ctx, msg); err != nil {
						log.Printf("Worker %d: turn %d failed: %v", workerID, msg.TurnID, err)
					}
				}
			}
		}(i)
	}

	<-ctx.Done()
	log.Println("Worker shutdown complete")
}
