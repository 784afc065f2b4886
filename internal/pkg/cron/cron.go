package cron

import (
	"context"
	"log"
	"time"

	"github.com/qs3c/chathub_go_server/internal/model"
	"github.com/qs3c/chathub_go_server/internal/pkg/pubsub"
	"github.com/qs3c/chathub_go_server/internal/repository"
	"github.com/qs3c/chathub_go_server/internal/service"
)

// 在途轮次超过这个时长仍未完成就视为悬挂，由维护任务收尾
const staleTurnAge = 10 * time.Minute

// Service 后台维护任务：月度额度兜底重置、悬挂轮次收尾、订阅到期回落
type Service struct {
	quotaService        *service.QuotaService
	subscriptionService *service.SubscriptionService
	turnRepo            *repository.TurnRepository
	publisher           *pubsub.Publisher
	stopChan            chan struct{}
}

func NewService(
	quotaService *service.QuotaService,
	subscriptionService *service.SubscriptionService,
	turnRepo *repository.TurnRepository,
	publisher *pubsub.Publisher,
) *Service {
	return &Service{
		quotaService:        quotaService,
		subscriptionService: subscriptionService,
		turnRepo:            turnRepo,
		publisher:           publisher,
		stopChan:            make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	go s.runMonthlyQuotaReset()
	go s.runMaintenance()
	log.Println("Cron service started (monthly quota reset + maintenance)")
}

// Stop 停止定时任务
func (s *Service) Stop() {
	close(s.stopChan)
	log.Println("Cron service stopped")
}

// runMonthlyQuotaReset 每月一号 UTC 零点全量重置。
// 额度检查本身会惰性滚动，这里只是兜底，保证长期不活跃的账号数据也是干净的
func (s *Service) runMonthlyQuotaReset() {
	for {
		now := time.Now().UTC()
		nextMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
		timer := time.NewTimer(nextMonth.Sub(now))

		select {
		case <-s.stopChan:
			timer.Stop()
			return
		case <-timer.C:
			log.Println("Starting monthly quota reset...")
			if err := s.quotaService.ResetAll(); err != nil {
				log.Printf("Failed to reset monthly quotas: %v", err)
			} else {
				log.Println("Monthly quota reset completed")
			}
		}
	}
}

// runMaintenance 每十分钟执行一次悬挂轮次收尾和订阅到期处理
func (s *Service) runMaintenance() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.reapStaleTurns()
			s.expireSubscriptions()
		}
	}
}

// reapStaleTurns 收尾悬挂轮次：剩余 pending 响应落定为超时错误，轮次推进到 complete
func (s *Service) reapStaleTurns() {
	turns, err := s.turnRepo.ListStaleCollecting(time.Now().Add(-staleTurnAge))
	if err != nil {
		log.Printf("Reap stale turns: query failed: %v", err)
		return
	}

	for _, turn := range turns {
		// 没有剩余 pending 的轮次只是卡在状态迁移上，不需要再落定
		pending, err := s.turnRepo.CountPendingResponses(turn.ID)
		if err != nil {
			log.Printf("Reap stale turns: failed to count pending for turn %d: %v", turn.ID, err)
			continue
		}
		if pending > 0 {
			if err := s.turnRepo.CancelPendingResponses(turn.ID, "响应超时"); err != nil {
				log.Printf("Reap stale turns: failed to settle turn %d: %v", turn.ID, err)
				continue
			}
		}
		moved, err := s.turnRepo.TransitionStatus(turn.ID, model.TurnCollecting, model.TurnComplete)
		if err != nil || !moved {
			continue
		}
		s.publisher.PublishEvent(context.Background(), &pubsub.TurnEvent{
			Type:   pubsub.EventTurnComplete,
			UserID: turn.UserID,
			TurnID: turn.ID,
		})
	}

	if len(turns) > 0 {
		log.Printf("Reaped %d stale turns", len(turns))
	}
}

// expireSubscriptions 订阅到期处理
func (s *Service) expireSubscriptions() {
	affected, err := s.subscriptionService.ExpireOutdated()
	if err != nil {
		log.Printf("Expire subscriptions: %v", err)
		return
	}
	if affected > 0 {
		log.Printf("Expired %d subscriptions", affected)
	}
}

// RunNow 立即执行额度重置（手动触发或测试用）
func (s *Service) RunNow() error {
	log.Println("Manual quota reset triggered...")
	return s.quotaService.ResetAll()
}
