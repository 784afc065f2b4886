package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelTurnEvents = "turn_events"
	ChannelTurnCancel = "turn_cancel"
)

// 事件类型
const (
	EventResponseSettled = "response_settled" // 单个提供商响应落定
	EventTurnComplete    = "turn_complete"    // 全部提供商已落定
	EventTurnCancelled   = "turn_cancelled"   // 轮次被取消
)

// TurnEvent 轮次事件，按落定顺序推送给前端增量渲染
type TurnEvent struct {
	Type         string `json:"type"`
	UserID       int64  `json:"user_id"`
	TurnID       int64  `json:"turn_id"`
	Provider     string `json:"provider,omitempty"`
	Status       string `json:"status,omitempty"`
	Content      string `json:"content,omitempty"`
	MediaURL     string `json:"media_url,omitempty"`
	ErrorMessage string `json:"error,omitempty"`
	LatencyMs    int64  `json:"latency_ms,omitempty"`
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

// NewPublisher 创建发布者
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishEvent 发布轮次事件
func (p *Publisher) PublishEvent(ctx context.Context, event *TurnEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal turn event: %w", err)
	}

	return p.client.Publish(ctx, ChannelTurnEvents, data).Err()
}

// PublishCancel 发布取消信号，worker 侧中止该轮次仍在途的调用
func (p *Publisher) PublishCancel(ctx context.Context, turnID int64) error {
	return p.client.Publish(ctx, ChannelTurnCancel, strconv.FormatInt(turnID, 10)).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// SubscribeEvents 订阅轮次事件
func (s *Subscriber) SubscribeEvents(ctx context.Context, handler func(*TurnEvent)) error {
	pubsub := s.client.Subscribe(ctx, ChannelTurnEvents)
	defer pubsub.Close()

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event TurnEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue // 忽略解析错误
			}

			handler(&event)
		}
	}
}

// SubscribeCancel 订阅取消信号
func (s *Subscriber) SubscribeCancel(ctx context.Context, handler func(turnID int64)) error {
	pubsub := s.client.Subscribe(ctx, ChannelTurnCancel)
	defer pubsub.Close()

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			turnID, err := strconv.ParseInt(msg.Payload, 10, 64)
			if err != nil {
				continue
			}

			handler(turnID)
		}
	}
}
