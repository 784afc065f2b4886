package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/chathub_go_server/internal/model"
	"github.com/qs3c/chathub_go_server/internal/testutil"
)

func TestTurnRepository_SettleResponse_Once(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewTurnRepository(db)
	user := testutil.TestUser(t, db)
	conv := testutil.TestConversation(t, db, user.ID)
	turn := testutil.TestTurn(t, db, user.ID, conv.ID, []string{"openai"})

	settled, err := repo.SettleResponse(turn.ID, "openai", model.ResponseSuccess, "回答", "", "", "gpt-4o-2024", 1200)
	require.NoError(t, err)
	assert.True(t, settled)

	// 已落定的响应不能再落定
	settled, err = repo.SettleResponse(turn.ID, "openai", model.ResponseError, "", "", "超时", "", 0)
	require.NoError(t, err)
	assert.False(t, settled)

	resp, err := repo.GetResponse(turn.ID, "openai")
	require.NoError(t, err)
	assert.Equal(t, model.ResponseSuccess, resp.Status)
	assert.Equal(t, "回答", resp.Content)
	assert.Equal(t, "gpt-4o-2024", resp.ModelName)
	assert.Equal(t, int64(1200), resp.LatencyMs)
	assert.NotNil(t, resp.SettledAt)
}

func TestTurnRepository_TransitionStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewTurnRepository(db)
	user := testutil.TestUser(t, db)
	conv := testutil.TestConversation(t, db, user.ID)
	turn := testutil.TestTurn(t, db, user.ID, conv.ID, []string{"openai"})

	moved, err := repo.TransitionStatus(turn.ID, model.TurnCollecting, model.TurnComplete)
	require.NoError(t, err)
	assert.True(t, moved)

	// from 不匹配时不生效
	moved, err = repo.TransitionStatus(turn.ID, model.TurnCollecting, model.TurnCancelled)
	require.NoError(t, err)
	assert.False(t, moved)

	// 状态机不允许的迁移直接拒绝
	moved, err = repo.TransitionStatus(turn.ID, model.TurnComplete, model.TurnCollecting)
	require.NoError(t, err)
	assert.False(t, moved)

	moved, err = repo.TransitionStatus(turn.ID, model.TurnComplete, model.TurnResolved)
	require.NoError(t, err)
	assert.True(t, moved)

	updated, err := repo.GetByID(turn.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TurnResolved, updated.Status)
}

func TestTurnRepository_SwapSelection_SingleSelected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewTurnRepository(db)
	user := testutil.TestUser(t, db)
	conv := testutil.TestConversation(t, db, user.ID)
	turn := testutil.TestTurn(t, db, user.ID, conv.ID, []string{"openai", "gemini", "deepseek"})

	require.NoError(t, repo.SwapSelection(turn.ID, "openai"))
	require.NoError(t, repo.SwapSelection(turn.ID, "gemini"))

	updated, err := repo.GetByID(turn.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.SelectedProvider)
	assert.Equal(t, "gemini", *updated.SelectedProvider)

	selected := 0
	for _, resp := range updated.Responses {
		if resp.Selected {
			selected++
			assert.Equal(t, "gemini", resp.Provider)
		}
	}
	assert.Equal(t, 1, selected)
}

func TestTurnRepository_CancelPendingResponses(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewTurnRepository(db)
	user := testutil.TestUser(t, db)
	conv := testutil.TestConversation(t, db, user.ID)
	turn := testutil.TestTurn(t, db, user.ID, conv.ID, []string{"openai", "gemini"})

	// 已落定的响应不受取消影响
	_, err := repo.SettleResponse(turn.ID, "openai", model.ResponseSuccess, "回答", "", "", "", 800)
	require.NoError(t, err)

	require.NoError(t, repo.CancelPendingResponses(turn.ID, "已取消"))

	done, err := repo.GetResponse(turn.ID, "openai")
	require.NoError(t, err)
	assert.Equal(t, model.ResponseSuccess, done.Status)

	cancelled, err := repo.GetResponse(turn.ID, "gemini")
	require.NoError(t, err)
	assert.Equal(t, model.ResponseError, cancelled.Status)
	assert.Equal(t, "已取消", cancelled.ErrorMessage)

	pending, err := repo.CountPendingResponses(turn.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending)
}

func TestTurnRepository_GetCollectingTurn(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewTurnRepository(db)
	user := testutil.TestUser(t, db)
	conv := testutil.TestConversation(t, db, user.ID)

	testutil.TestTurn(t, db, user.ID, conv.ID, []string{"openai"},
		testutil.WithTurnStatus(model.TurnComplete))
	collecting := testutil.TestTurn(t, db, user.ID, conv.ID, []string{"openai"})

	found, err := repo.GetCollectingTurn(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, collecting.ID, found.ID)
}

func TestTurnRepository_ListStaleCollecting(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewTurnRepository(db)
	user := testutil.TestUser(t, db)
	conv := testutil.TestConversation(t, db, user.ID)

	stale := testutil.TestTurn(t, db, user.ID, conv.ID, []string{"openai"})
	// 把创建时间拨回半小时前
	err := db.Model(&model.ConversationTurn{}).Where("id = ?", stale.ID).
		Update("created_at", time.Now().Add(-30*time.Minute)).Error
	require.NoError(t, err)

	testutil.TestTurn(t, db, user.ID, conv.ID, []string{"openai"})

	turns, err := repo.ListStaleCollecting(time.Now().Add(-10 * time.Minute))
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, stale.ID, turns[0].ID)
}
