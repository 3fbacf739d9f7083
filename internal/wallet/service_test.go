package wallet

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testOpts = Options{WalletType: "casino", Currency: "EUR"}

func setUpGateway(t *testing.T) (*Gateway, WalletRepository) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&Wallet{}, &Transaction{}))

	repo := NewWalletRepositoryImpl(db)
	return NewGateway(repo, testOpts, zerolog.Nop()), repo
}

func TestMinorUnitConversion(t *testing.T) {
	assert.True(t, decimal.RequireFromString("12.34").Equal(FromMinor(1234)))
	assert.Equal(t, int64(1234), ToMinor(decimal.RequireFromString("12.34")))
	assert.Equal(t, int64(5), ToMinor(FromMinor(5)))
	assert.True(t, decimal.RequireFromString("0.13").Equal(FinanceRound(decimal.RequireFromString("0.125"))))
}

func TestBalanceWithoutWalletIsZero(t *testing.T) {
	gw, _ := setUpGateway(t)

	balance, err := gw.Balance(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, int64(0), balance)
}

func TestCreditThenDebit(t *testing.T) {
	gw, repo := setUpGateway(t)
	ctx := context.Background()

	require.NoError(t, gw.Credit(ctx, 1, 5000, CreditTransfer, "seed"))
	require.NoError(t, gw.Debit(ctx, 1, 1000, "A1"))

	balance, err := gw.Balance(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(4000), balance)

	txs, err := repo.GetTransactionsByReference(ctx, "A1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, KindDebit, txs[0].TransactionType)
	assert.True(t, decimal.NewFromInt(50).Equal(txs[0].BalanceBefore))
	assert.True(t, decimal.NewFromInt(40).Equal(txs[0].BalanceAfter))
}

func TestReverseTransferIsJournaled(t *testing.T) {
	gw, repo := setUpGateway(t)
	ctx := context.Background()

	require.NoError(t, gw.Credit(ctx, 1, 250, CreditReverseTransfer, "R1"))

	txs, err := repo.GetTransactionsByReference(ctx, "R1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, KindReverseTransfer, txs[0].TransactionType)
}

func TestDebitInsufficientFunds(t *testing.T) {
	gw, _ := setUpGateway(t)
	ctx := context.Background()

	require.ErrorIs(t, gw.Debit(ctx, 1, 100, "no-wallet"), ErrInsufficientFunds)

	require.NoError(t, gw.Credit(ctx, 1, 50, CreditTransfer, "seed"))
	require.ErrorIs(t, gw.Debit(ctx, 1, 51, "too-much"), ErrInsufficientFunds)

	balance, err := gw.Balance(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(50), balance)
}

func TestConcurrentDebits(t *testing.T) {
	gw, _ := setUpGateway(t)
	ctx := context.Background()
	require.NoError(t, gw.Credit(ctx, 7, 5000, CreditTransfer, "seed"))

	var wg sync.WaitGroup
	var mu sync.Mutex
	successCount := 0
	failCount := 0

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := gw.Debit(ctx, 7, 1000, uuid.NewString())
			mu.Lock()
			if err != nil {
				failCount++
			} else {
				successCount++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Equal(t, 5, successCount, "successCount")
	require.Equal(t, 5, failCount, "failCount")

	balance, err := gw.Balance(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, int64(0), balance, "finalBalance")
}

func TestOperationsApplyOncePerReference(t *testing.T) {
	gw, repo := setUpGateway(t)
	ctx := context.Background()

	require.NoError(t, gw.Credit(ctx, 1, 5000, CreditTransfer, "seed"))
	require.NoError(t, gw.Credit(ctx, 1, 5000, CreditTransfer, "seed"))
	require.NoError(t, gw.Debit(ctx, 1, 1000, "A1"))
	require.NoError(t, gw.Debit(ctx, 1, 1000, "A1"))
	require.NoError(t, gw.Credit(ctx, 1, 1000, CreditReverseTransfer, "A1"))

	balance, err := gw.Balance(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(5000), balance)

	txs, err := repo.GetTransactionsByReference(ctx, "A1")
	require.NoError(t, err)
	kinds := make([]string, 0, len(txs))
	for _, tx := range txs {
		kinds = append(kinds, tx.TransactionType)
	}
	assert.ElementsMatch(t, []string{KindDebit, KindReverseTransfer}, kinds)
}

func TestSameReferenceForAnotherUserIsApplied(t *testing.T) {
	gw, _ := setUpGateway(t)
	ctx := context.Background()

	require.NoError(t, gw.Credit(ctx, 1, 300, CreditTransfer, "W1"))
	require.NoError(t, gw.Credit(ctx, 2, 300, CreditTransfer, "W1"))

	balance, err := gw.Balance(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, int64(300), balance)
}
