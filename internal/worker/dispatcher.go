package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/qs3c/chathub_go_server/config"
	"github.com/qs3c/chathub_go_server/internal/model"
	"github.com/qs3c/chathub_go_server/internal/pkg/pubsub"
	"github.com/qs3c/chathub_go_server/internal/pkg/queue"
	"github.com/qs3c/chathub_go_server/internal/provider"
	"github.com/qs3c/chathub_go_server/internal/repository"
	"github.com/qs3c/chathub_go_server/internal/service"
)

// Dispatcher 一轮提问的扇出执行器：每个提供商一个 goroutine 并发调用，
// 响应按落定顺序逐条推送，单个提供商失败不影响其他提供商
type Dispatcher struct {
	turnRepo    *repository.TurnRepository
	chatService *service.ChatService
	selection   *service.SelectionService
	keyResolver *provider.KeyResolver
	registry    *provider.Registry
	publisher   *pubsub.Publisher
	cfg         *config.Config

	mu      sync.Mutex
	running map[int64]context.CancelFunc // 在途轮次的取消入口
}

func NewDispatcher(
	turnRepo *repository.TurnRepository,
	chatService *service.ChatService,
	selection *service.SelectionService,
	keyResolver *provider.KeyResolver,
	registry *provider.Registry,
	publisher *pubsub.Publisher,
	cfg *config.Config,
) *Dispatcher {
	return &Dispatcher{
		turnRepo:    turnRepo,
		chatService: chatService,
		selection:   selection,
		keyResolver: keyResolver,
		registry:    registry,
		publisher:   publisher,
		cfg:         cfg,
		running:     make(map[int64]context.CancelFunc),
	}
}

// Dispatch 处理一条派发任务
func (d *Dispatcher) Dispatch(ctx context.Context, msg *queue.TurnMessage) error {
	turn, err := d.turnRepo.GetByID(msg.TurnID)
	if err != nil {
		log.Printf("Turn %d: not found, dropping task: %v", msg.TurnID, err)
		return nil
	}
	// 入队后被取消的轮次直接丢弃
	if turn.Status != model.TurnCollecting {
		log.Printf("Turn %d: status %s, skipping", msg.TurnID, turn.Status)
		return nil
	}

	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	d.register(msg.TurnID, cancel)
	defer d.unregister(msg.TurnID)

	history, err := d.chatService.BuildHistory(msg.ConversationID, msg.TurnID)
	if err != nil {
		log.Printf("Turn %d: failed to build history: %v", msg.TurnID, err)
		history = nil
	}

	timeout := time.Duration(d.cfg.Queue.ProviderTimeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	log.Printf("Turn %d: dispatching to %d providers", msg.TurnID, len(msg.Providers))

	var wg sync.WaitGroup
	for _, task := range msg.Providers {
		wg.Add(1)
		go func(task queue.ProviderTask) {
			defer wg.Done()
			d.invokeOne(turnCtx, msg, task, history, timeout)
		}(task)
	}
	wg.Wait()

	// 被取消的轮次由取消方负责收尾
	if turnCtx.Err() != nil {
		log.Printf("Turn %d: cancelled", msg.TurnID)
		return nil
	}

	moved, err := d.turnRepo.TransitionStatus(msg.TurnID, model.TurnCollecting, model.TurnComplete)
	if err != nil {
		return err
	}
	if moved {
		d.publisher.PublishEvent(ctx, &pubsub.TurnEvent{
			Type:   pubsub.EventTurnComplete,
			UserID: msg.UserID,
			TurnID: msg.TurnID,
		})
		log.Printf("Turn %d: complete", msg.TurnID)
	}
	return nil
}

// invokeOne 调用单个提供商并落定其响应
func (d *Dispatcher) invokeOne(ctx context.Context, msg *queue.TurnMessage, task queue.ProviderTask, history []provider.ChatMessage, timeout time.Duration) {
	// 密钥解析不过就地落定失败，不发起调用
	apiKey, err := d.keyResolver.Resolve(msg.UserID, task.Provider)
	if err != nil {
		d.settle(ctx, msg, task.Provider, task.ModelName, nil, err, 0)
		return
	}

	client, ok := d.registry.Get(task.Provider)
	if !ok {
		d.settle(ctx, msg, task.Provider, task.ModelName, nil, provider.ErrNotConfigured, 0)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	result, err := client.Invoke(callCtx, &provider.Request{
		Prompt:      msg.Prompt,
		History:     history,
		Attachments: msg.Attachments,
		ModelName:   task.ModelName,
		APIKey:      apiKey,
	})
	latency := time.Since(start).Milliseconds()

	d.settle(ctx, msg, task.Provider, task.ModelName, result, err, latency)
}

// settle 条件更新保证只落定一次；落定成功才计数和推送
func (d *Dispatcher) settle(ctx context.Context, msg *queue.TurnMessage, providerName, modelName string, result *provider.Result, callErr error, latency int64) {
	status := model.ResponseSuccess
	var content, mediaURL, errMsg string
	if callErr != nil {
		status = model.ResponseError
		errMsg = callErr.Error()
	} else {
		content = result.Content
		mediaURL = result.MediaURL
		if result.ModelName != "" {
			modelName = result.ModelName
		}
	}

	settled, err := d.turnRepo.SettleResponse(msg.TurnID, providerName, status, content, mediaURL, errMsg, modelName, latency)
	if err != nil {
		log.Printf("Turn %d: failed to settle %s: %v", msg.TurnID, providerName, err)
		return
	}
	if !settled {
		// 已被取消或已落定，不重复计数
		return
	}

	d.selection.RecordResponseSettled(msg.UserID, providerName, callErr != nil)

	d.publisher.PublishEvent(ctx, &pubsub.TurnEvent{
		Type:         pubsub.EventResponseSettled,
		UserID:       msg.UserID,
		TurnID:       msg.TurnID,
		Provider:     providerName,
		Status:       status,
		Content:      content,
		MediaURL:     mediaURL,
		ErrorMessage: errMsg,
		LatencyMs:    latency,
	})

	if callErr != nil {
		log.Printf("Turn %d: provider %s failed in %dms: %v", msg.TurnID, providerName, latency, callErr)
	} else {
		log.Printf("Turn %d: provider %s settled in %dms", msg.TurnID, providerName, latency)
	}
}

// CancelTurn 中止本进程内该轮次仍在途的调用
func (d *Dispatcher) CancelTurn(turnID int64) {
	d.mu.Lock()
	cancel, ok := d.running[turnID]
	d.mu.Unlock()
	if ok {
		cancel()
	}
}

func (d *Dispatcher) register(turnID int64, cancel context.CancelFunc) {
	d.mu.Lock()
	d.running[turnID] = cancel
	d.mu.Unlock()
}

func (d *Dispatcher) unregister(turnID int64) {
	d.mu.Lock()
	delete(d.running, turnID)
	d.mu.Unlock()
}
