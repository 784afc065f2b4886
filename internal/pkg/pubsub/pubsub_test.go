package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnEvent_JSON(t *testing.T) {
	event := &TurnEvent{
		Type:      EventResponseSettled,
		UserID:    1,
		TurnID:    2,
		Provider:  "openai",
		Status:    "success",
		Content:   "你好",
		LatencyMs: 1200,
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	// Verify snake_case keys
	var raw map[string]interface{}
	err = json.Unmarshal(data, &raw)
	require.NoError(t, err)

	assert.Contains(t, raw, "user_id")
	assert.Contains(t, raw, "turn_id")
	assert.Contains(t, raw, "latency_ms")

	var decoded TurnEvent
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)

	assert.Equal(t, event.Type, decoded.Type)
	assert.Equal(t, event.UserID, decoded.UserID)
	assert.Equal(t, event.TurnID, decoded.TurnID)
	assert.Equal(t, event.Provider, decoded.Provider)
}

func TestTurnEvent_OmitEmpty(t *testing.T) {
	event := &TurnEvent{
		Type:   EventTurnComplete,
		UserID: 1,
		TurnID: 2,
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	// Provider, content and error should be omitted when empty
	var raw map[string]interface{}
	err = json.Unmarshal(data, &raw)
	require.NoError(t, err)

	_, hasProvider := raw["provider"]
	_, hasContent := raw["content"]
	_, hasError := raw["error"]
	assert.False(t, hasProvider, "empty provider should be omitted")
	assert.False(t, hasContent, "empty content should be omitted")
	assert.False(t, hasError, "empty error should be omitted")
}

func TestPublishSubscribe_Events(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	publisher := NewPublisher(client)
	subscriber := NewSubscriber(client)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan *TurnEvent, 1)
	go func() {
		subscriber.SubscribeEvents(ctx, func(event *TurnEvent) {
			received <- event
		})
	}()

	// Give subscriber time to connect
	time.Sleep(100 * time.Millisecond)

	event := &TurnEvent{
		Type:     EventResponseSettled,
		UserID:   123,
		TurnID:   456,
		Provider: "gemini",
		Status:   "success",
		Content:  "回答内容",
	}
	require.NoError(t, publisher.PublishEvent(ctx, event))

	select {
	case got := <-received:
		assert.Equal(t, event.Type, got.Type)
		assert.Equal(t, event.UserID, got.UserID)
		assert.Equal(t, event.TurnID, got.TurnID)
		assert.Equal(t, event.Provider, got.Provider)
		assert.Equal(t, event.Content, got.Content)
	case <-ctx.Done():
		t.Fatal("Timeout waiting for event")
	}
}

func TestPublishSubscribe_Cancel(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	publisher := NewPublisher(client)
	subscriber := NewSubscriber(client)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan int64, 1)
	go func() {
		subscriber.SubscribeCancel(ctx, func(turnID int64) {
			received <- turnID
		})
	}()

	time.Sleep(100 * time.Millisecond)

	require.NoError(t, publisher.PublishCancel(ctx, 789))

	select {
	case turnID := <-received:
		assert.Equal(t, int64(789), turnID)
	case <-ctx.Done():
		t.Fatal("Timeout waiting for cancel signal")
	}
}

func TestNewPublisher(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
	})
	defer client.Close()

	publisher := NewPublisher(client)
	assert.NotNil(t, publisher)
}

func TestNewSubscriber(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
	})
	defer client.Close()

	subscriber := NewSubscriber(client)
	assert.NotNil(t, subscriber)
}
