package cron

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/chathub_go_server/config"
	"github.com/qs3c/chathub_go_server/internal/model"
	"github.com/qs3c/chathub_go_server/internal/pkg/pubsub"
	"github.com/qs3c/chathub_go_server/internal/repository"
	"github.com/qs3c/chathub_go_server/internal/service"
	"github.com/qs3c/chathub_go_server/internal/testutil"
)

func setupCronService(t *testing.T) (*gorm.DB, *Service) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})

	cfg := &config.Config{
		Subscription: config.SubscriptionConfig{
			Levels: map[string]config.SubscriptionLevel{
				"free": {DisplayName: "免费版", MonthlyQuota: 50, MaxProviders: 3},
				"pro":  {DisplayName: "专业版", MonthlyQuota: -1, MaxProviders: -1, PriceCents: 2900},
			},
		},
	}

	userRepo := repository.NewUserRepository(db)
	turnRepo := repository.NewTurnRepository(db)
	quotaService := service.NewQuotaService(userRepo, cfg)
	subscriptionService := service.NewSubscriptionService(
		repository.NewSubscriptionRepository(db),
		userRepo,
		service.NewTierService(cfg),
		cfg,
	)

	return db, NewService(quotaService, subscriptionService, turnRepo, pubsub.NewPublisher(rdb))
}

func backdateTurn(t *testing.T, db *gorm.DB, turnID int64, age time.Duration) {
	t.Helper()
	err := db.Model(&model.ConversationTurn{}).
		Where("id = ?", turnID).
		Update("created_at", time.Now().Add(-age)).Error
	require.NoError(t, err)
}

func TestCronService_ReapStaleTurns(t *testing.T) {
	db, svc := setupCronService(t)
	user := testutil.TestUser(t, db)
	conv := testutil.TestConversation(t, db, user.ID)

	turn := testutil.TestTurn(t, db, user.ID, conv.ID, []string{"openai", "gemini"})
	testutil.SettleTestResponse(t, db, turn.ID, "openai", model.ResponseSuccess, "回答甲")
	backdateTurn(t, db, turn.ID, 30*time.Minute)

	svc.reapStaleTurns()

	// 剩余 pending 落定为超时错误，已落定的保持原样
	var responses []model.ProviderResponse
	require.NoError(t, db.Where("turn_id = ?", turn.ID).Order("provider ASC").Find(&responses).Error)
	require.Len(t, responses, 2)
	assert.Equal(t, model.ResponseError, responses[0].Status) // gemini
	assert.Equal(t, "响应超时", responses[0].ErrorMessage)
	assert.Equal(t, model.ResponseSuccess, responses[1].Status) // openai
	assert.Equal(t, "回答甲", responses[1].Content)

	var reaped model.ConversationTurn
	require.NoError(t, db.First(&reaped, turn.ID).Error)
	assert.Equal(t, model.TurnComplete, reaped.Status)
}

func TestCronService_ReapStaleTurns_AllSettled(t *testing.T) {
	db, svc := setupCronService(t)
	user := testutil.TestUser(t, db)
	conv := testutil.TestConversation(t, db, user.ID)

	// 响应全部落定但轮次卡在 collecting（worker 在状态迁移前崩溃）
	turn := testutil.TestTurn(t, db, user.ID, conv.ID, []string{"openai"})
	testutil.SettleTestResponse(t, db, turn.ID, "openai", model.ResponseSuccess, "回答乙")
	backdateTurn(t, db, turn.ID, 30*time.Minute)

	svc.reapStaleTurns()

	var resp model.ProviderResponse
	require.NoError(t, db.Where("turn_id = ?", turn.ID).First(&resp).Error)
	assert.Equal(t, model.ResponseSuccess, resp.Status)
	assert.Empty(t, resp.ErrorMessage)

	var reaped model.ConversationTurn
	require.NoError(t, db.First(&reaped, turn.ID).Error)
	assert.Equal(t, model.TurnComplete, reaped.Status)
}

func TestCronService_ReapStaleTurns_FreshTurnUntouched(t *testing.T) {
	db, svc := setupCronService(t)
	user := testutil.TestUser(t, db)
	conv := testutil.TestConversation(t, db, user.ID)

	turn := testutil.TestTurn(t, db, user.ID, conv.ID, []string{"openai"})

	svc.reapStaleTurns()

	var current model.ConversationTurn
	require.NoError(t, db.First(&current, turn.ID).Error)
	assert.Equal(t, model.TurnCollecting, current.Status)

	var resp model.ProviderResponse
	require.NoError(t, db.Where("turn_id = ?", turn.ID).First(&resp).Error)
	assert.Equal(t, model.ResponsePending, resp.Status)
}

func TestCronService_RunNow(t *testing.T) {
	db, svc := setupCronService(t)
	user := testutil.TestUser(t, db, testutil.WithQuotaUsed(30))

	require.NoError(t, svc.RunNow())

	var updated model.User
	require.NoError(t, db.First(&updated, user.ID).Error)
	assert.Equal(t, 0, updated.QuotaUsedMonth)
}
