package service

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/chathub_go_server/config"
	"github.com/qs3c/chathub_go_server/internal/model"
	"github.com/qs3c/chathub_go_server/internal/model/dto"
	"github.com/qs3c/chathub_go_server/internal/pkg/pubsub"
	"github.com/qs3c/chathub_go_server/internal/pkg/queue"
	"github.com/qs3c/chathub_go_server/internal/provider"
	"github.com/qs3c/chathub_go_server/internal/repository"
	"github.com/qs3c/chathub_go_server/internal/testutil"
)

type chatTestEnv struct {
	db        *gorm.DB
	service   *ChatService
	turnRepo  *repository.TurnRepository
	userRepo  *repository.UserRepository
	turnQueue *queue.Queue
}

func setupChatTest(t *testing.T) *chatTestEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := quotaTestConfig()
	cfg.Providers = []config.ProviderConfig{
		{Name: "openai", DisplayName: "OpenAI", BaseURL: "https://api.openai.com/v1", DefaultModel: "gpt-4o"},
		{Name: "gemini", DisplayName: "Gemini", BaseURL: "https://generativelanguage.googleapis.com", DefaultModel: "gemini-1.5-pro"},
		{Name: "deepseek", DisplayName: "DeepSeek", BaseURL: "https://api.deepseek.com/v1", DefaultModel: "deepseek-chat"},
		{Name: "openrouter", DisplayName: "OpenRouter", BaseURL: "https://openrouter.ai/api/v1", DefaultModel: "auto"},
	}

	convRepo := repository.NewConversationRepository(db)
	turnRepo := repository.NewTurnRepository(db)
	userRepo := repository.NewUserRepository(db)
	quotaService := NewQuotaService(userRepo, cfg)
	tierService := NewTierService(cfg)
	registry := provider.NewRegistry(cfg.Providers)
	turnQueue := queue.NewQueue(client, "turn_tasks_test")
	publisher := pubsub.NewPublisher(client)

	return &chatTestEnv{
		db:        db,
		service:   NewChatService(convRepo, turnRepo, userRepo, quotaService, tierService, registry, turnQueue, publisher, cfg),
		turnRepo:  turnRepo,
		userRepo:  userRepo,
		turnQueue: turnQueue,
	}
}

func (e *chatTestEnv) newConversation(t *testing.T, userID int64) *model.Conversation {
	t.Helper()
	conv, err := e.service.CreateConversation(userID, &dto.CreateConversationRequest{Title: "测试会话"})
	require.NoError(t, err)
	return conv
}

func TestChatService_CreateConversation_DefaultTitle(t *testing.T) {
	env := setupChatTest(t)
	user := testutil.TestUser(t, env.db)

	conv, err := env.service.CreateConversation(user.ID, &dto.CreateConversationRequest{})
	require.NoError(t, err)
	assert.Equal(t, "新对话", conv.Title)
}

func TestChatService_CreateTurn(t *testing.T) {
	env := setupChatTest(t)
	ctx := context.Background()

	user := testutil.TestUser(t, env.db)
	conv := env.newConversation(t, user.ID)

	resp, err := env.service.CreateTurn(ctx, user.ID, conv.ID, &dto.CreateTurnRequest{
		Prompt:    "Go 的接口和结构体有什么区别？",
		Providers: []string{"openai", "gemini"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"openai", "gemini"}, resp.Providers)

	// 按派发顺序建好 pending 占位
	turn, err := env.turnRepo.GetByID(resp.TurnID)
	require.NoError(t, err)
	assert.Equal(t, model.TurnCollecting, turn.Status)
	require.Len(t, turn.Responses, 2)
	assert.Equal(t, "openai", turn.Responses[0].Provider)
	assert.Equal(t, "gpt-4o", turn.Responses[0].ModelName)
	assert.Equal(t, model.ResponsePending, turn.Responses[0].Status)

	// 扣掉一次额度
	updated, err := env.userRepo.GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.QuotaUsedMonth)

	// 任务已入队
	length, err := env.turnQueue.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)
}

func TestChatService_CreateTurn_TruncatesToTierLimit(t *testing.T) {
	env := setupChatTest(t)

	user := testutil.TestUser(t, env.db)
	conv := env.newConversation(t, user.ID)

	// 免费档最多 3 家，重复和未注册的先被过滤
	resp, err := env.service.CreateTurn(context.Background(), user.ID, conv.ID, &dto.CreateTurnRequest{
		Prompt:    "你好",
		Providers: []string{"openai", "openai", "claude", "gemini", "deepseek", "openrouter"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"openai", "gemini", "deepseek"}, resp.Providers)
}

func TestChatService_CreateTurn_ProUnlimitedProviders(t *testing.T) {
	env := setupChatTest(t)

	user := testutil.TestUser(t, env.db, testutil.WithSubscription("pro", -1))
	conv := env.newConversation(t, user.ID)

	resp, err := env.service.CreateTurn(context.Background(), user.ID, conv.ID, &dto.CreateTurnRequest{
		Prompt:    "你好",
		Providers: []string{"openai", "gemini", "deepseek", "openrouter"},
	})
	require.NoError(t, err)
	assert.Len(t, resp.Providers, 4)
}

func TestChatService_CreateTurn_NoValidProvider(t *testing.T) {
	env := setupChatTest(t)

	user := testutil.TestUser(t, env.db)
	conv := env.newConversation(t, user.ID)

	_, err := env.service.CreateTurn(context.Background(), user.ID, conv.ID, &dto.CreateTurnRequest{
		Prompt:    "你好",
		Providers: []string{"claude", "unknown"},
	})
	assert.ErrorIs(t, err, ErrNoValidProvider)
}

func TestChatService_CreateTurn_QuotaExceeded(t *testing.T) {
	env := setupChatTest(t)

	user := testutil.TestUser(t, env.db, testutil.WithQuotaUsed(50))
	conv := env.newConversation(t, user.ID)

	_, err := env.service.CreateTurn(context.Background(), user.ID, conv.ID, &dto.CreateTurnRequest{
		Prompt:    "你好",
		Providers: []string{"openai"},
	})
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	// 没扣额度也没入队
	length, _ := env.turnQueue.Length(context.Background())
	assert.Equal(t, int64(0), length)
}

func TestChatService_CreateTurn_CancelsPreviousCollecting(t *testing.T) {
	env := setupChatTest(t)
	ctx := context.Background()

	user := testutil.TestUser(t, env.db)
	conv := env.newConversation(t, user.ID)

	first, err := env.service.CreateTurn(ctx, user.ID, conv.ID, &dto.CreateTurnRequest{
		Prompt:    "第一问",
		Providers: []string{"openai"},
	})
	require.NoError(t, err)

	second, err := env.service.CreateTurn(ctx, user.ID, conv.ID, &dto.CreateTurnRequest{
		Prompt:    "第二问",
		Providers: []string{"openai"},
	})
	require.NoError(t, err)

	// 上一轮被取消，残留的 pending 响应落定为取消错误
	prev, err := env.turnRepo.GetByID(first.TurnID)
	require.NoError(t, err)
	assert.Equal(t, model.TurnCancelled, prev.Status)
	require.Len(t, prev.Responses, 1)
	assert.Equal(t, model.ResponseError, prev.Responses[0].Status)

	current, err := env.turnRepo.GetByID(second.TurnID)
	require.NoError(t, err)
	assert.Equal(t, model.TurnCollecting, current.Status)
}

func TestChatService_CreateTurn_WrongOwner(t *testing.T) {
	env := setupChatTest(t)

	user := testutil.TestUser(t, env.db)
	conv := env.newConversation(t, user.ID)

	_, err := env.service.CreateTurn(context.Background(), user.ID+1, conv.ID, &dto.CreateTurnRequest{
		Prompt:    "你好",
		Providers: []string{"openai"},
	})
	assert.ErrorIs(t, err, ErrConversationPermission)
}

func TestChatService_CancelTurn(t *testing.T) {
	env := setupChatTest(t)
	ctx := context.Background()

	user := testutil.TestUser(t, env.db)
	conv := env.newConversation(t, user.ID)

	created, err := env.service.CreateTurn(ctx, user.ID, conv.ID, &dto.CreateTurnRequest{
		Prompt:    "你好",
		Providers: []string{"openai", "gemini"},
	})
	require.NoError(t, err)

	require.NoError(t, env.service.CancelTurn(ctx, user.ID, created.TurnID))

	turn, err := env.turnRepo.GetByID(created.TurnID)
	require.NoError(t, err)
	assert.Equal(t, model.TurnCancelled, turn.Status)
	for _, resp := range turn.Responses {
		assert.Equal(t, model.ResponseError, resp.Status)
	}

	// 已结束的轮次不能再取消
	err = env.service.CancelTurn(ctx, user.ID, created.TurnID)
	assert.ErrorIs(t, err, ErrTurnNotCancellable)
}

func TestChatService_BuildHistory(t *testing.T) {
	env := setupChatTest(t)

	user := testutil.TestUser(t, env.db)
	conv := env.newConversation(t, user.ID)

	// 第一轮：gemini 被选中，历史应取选中的回答
	turn1 := testutil.TestTurn(t, env.db, user.ID, conv.ID,
		[]string{"openai", "gemini"},
		testutil.WithTurnStatus(model.TurnResolved),
		testutil.WithPrompt("第一问"))
	testutil.SettleTestResponse(t, env.db, turn1.ID, "openai", model.ResponseSuccess, "回答甲")
	testutil.SettleTestResponse(t, env.db, turn1.ID, "gemini", model.ResponseSuccess, "回答乙")
	require.NoError(t, env.turnRepo.SwapSelection(turn1.ID, "gemini"))

	// 第二轮：没人成功，不进历史
	turn2 := testutil.TestTurn(t, env.db, user.ID, conv.ID,
		[]string{"openai"},
		testutil.WithTurnStatus(model.TurnComplete),
		testutil.WithPrompt("第二问"))
	testutil.SettleTestResponse(t, env.db, turn2.ID, "openai", model.ResponseError, "")

	// 第三轮：未选择时取第一条成功的回答
	turn3 := testutil.TestTurn(t, env.db, user.ID, conv.ID,
		[]string{"openai", "gemini"},
		testutil.WithTurnStatus(model.TurnComplete),
		testutil.WithPrompt("第三问"))
	testutil.SettleTestResponse(t, env.db, turn3.ID, "openai", model.ResponseSuccess, "回答丙")
	testutil.SettleTestResponse(t, env.db, turn3.ID, "gemini", model.ResponseSuccess, "回答丁")

	history, err := env.service.BuildHistory(conv.ID, turn3.ID+1)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "第一问", history[0].Content)
	assert.Equal(t, "回答乙", history[1].Content)
	assert.Equal(t, "第三问", history[2].Content)
	assert.Equal(t, "回答丙", history[3].Content)

	// 只取目标轮次之前的历史
	history, err = env.service.BuildHistory(conv.ID, turn3.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "回答乙", history[1].Content)
}

func TestChatService_GetConversation(t *testing.T) {
	env := setupChatTest(t)

	user := testutil.TestUser(t, env.db)
	conv := env.newConversation(t, user.ID)
	turn := testutil.TestTurn(t, env.db, user.ID, conv.ID,
		[]string{"openai"},
		testutil.WithTurnStatus(model.TurnComplete))
	testutil.SettleTestResponse(t, env.db, turn.ID, "openai", model.ResponseSuccess, "回答")

	detail, err := env.service.GetConversation(user.ID, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "测试会话", detail.Title)
	require.Len(t, detail.Turns, 1)
	require.Len(t, detail.Turns[0].Responses, 1)
	assert.Equal(t, "回答", detail.Turns[0].Responses[0].Content)

	// 他人不可见
	_, err = env.service.GetConversation(user.ID+1, conv.ID)
	assert.ErrorIs(t, err, ErrConversationPermission)
}

func TestChatService_DeleteConversation(t *testing.T) {
	env := setupChatTest(t)

	user := testutil.TestUser(t, env.db)
	conv := env.newConversation(t, user.ID)

	require.NoError(t, env.service.DeleteConversation(user.ID, conv.ID))

	_, err := env.service.GetConversation(user.ID, conv.ID)
	assert.ErrorIs(t, err, ErrConversationNotFound)
}
