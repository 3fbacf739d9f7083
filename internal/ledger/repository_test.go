package ledger

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupLedger(t *testing.T) *Repository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&GameAction{}))
	return NewRepository(db)
}

func bet(actionID string) *GameAction {
	return &GameAction{
		ActionID:          actionID,
		Kind:              KindBet,
		RoundID:           "R1",
		UserID:            1,
		GameID:            2,
		Amount:            decimal.NewFromInt(10),
		UserBalanceInGame: decimal.NewFromInt(50),
	}
}

func TestAppendAndFind(t *testing.T) {
	repo := setupLedger(t)
	ctx := context.Background()

	got, err := repo.FindByExternalID(ctx, "A1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, repo.Append(ctx, bet("A1")))

	got, err = repo.FindByExternalID(ctx, "A1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, KindBet, got.Kind)
	assert.False(t, got.Refunded)

	byRound, err := repo.FindByRound(ctx, 1, 2, "R1")
	require.NoError(t, err)
	require.NotNil(t, byRound)
	assert.Equal(t, "A1", byRound.ActionID)
}

func TestAppendDuplicate(t *testing.T) {
	repo := setupLedger(t)
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, bet("A1")))
	require.ErrorIs(t, repo.Append(ctx, bet("A1")), ErrActionExists)
}

func TestConcurrentAppendSingleWinner(t *testing.T) {
	repo := setupLedger(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var wins, dupes atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Append(ctx, bet("A1"))
			switch {
			case err == nil:
				wins.Add(1)
			case err == ErrActionExists:
				dupes.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(9), dupes.Load())
}

func TestMarkRefundedOnce(t *testing.T) {
	repo := setupLedger(t)
	ctx := context.Background()
	require.NoError(t, repo.Append(ctx, bet("A1")))

	active, err := repo.FindActiveBet(ctx, 1, "A1")
	require.NoError(t, err)
	require.NotNil(t, active)

	require.NoError(t, repo.MarkRefunded(ctx, 1, "A1"))
	require.ErrorIs(t, repo.MarkRefunded(ctx, 1, "A1"), ErrBetNotFound)

	active, err = repo.FindActiveBet(ctx, 1, "A1")
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestFindActiveBetIgnoresWins(t *testing.T) {
	repo := setupLedger(t)
	ctx := context.Background()
	win := bet("W1")
	win.Kind = KindWin
	require.NoError(t, repo.Append(ctx, win))

	active, err := repo.FindActiveBet(ctx, 1, "W1")
	require.NoError(t, err)
	assert.Nil(t, active)
	require.ErrorIs(t, repo.MarkRefunded(ctx, 1, "W1"), ErrBetNotFound)
}

func TestDiscardAndClearRefunded(t *testing.T) {
	repo := setupLedger(t)
	ctx := context.Background()
	require.NoError(t, repo.Append(ctx, bet("A1")))
	require.NoError(t, repo.MarkRefunded(ctx, 1, "A1"))

	require.NoError(t, repo.ClearRefunded(ctx, 1, "A1"))
	active, err := repo.FindActiveBet(ctx, 1, "A1")
	require.NoError(t, err)
	require.NotNil(t, active)

	require.NoError(t, repo.Discard(ctx, 1, "A1"))
	got, err := repo.FindByExternalID(ctx, "A1")
	require.NoError(t, err)
	assert.Nil(t, got)
	require.NoError(t, repo.Append(ctx, bet("A1")))
}

func TestDiscardKeepsRefundedBet(t *testing.T) {
	repo := setupLedger(t)
	ctx := context.Background()
	require.NoError(t, repo.Append(ctx, bet("A1")))
	require.NoError(t, repo.MarkRefunded(ctx, 1, "A1"))

	require.NoError(t, repo.Discard(ctx, 1, "A1"))
	got, err := repo.FindByExternalID(ctx, "A1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Refunded)
}

func TestRefundIsScopedToBetOwner(t *testing.T) {
	repo := setupLedger(t)
	ctx := context.Background()
	require.NoError(t, repo.Append(ctx, bet("A1")))

	active, err := repo.FindActiveBet(ctx, 2, "A1")
	require.NoError(t, err)
	assert.Nil(t, active)
	require.ErrorIs(t, repo.MarkRefunded(ctx, 2, "A1"), ErrBetNotFound)

	require.NoError(t, repo.Discard(ctx, 2, "A1"))
	got, err := repo.FindByExternalID(ctx, "A1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.Refunded)
}
