package vegas

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vegas_gateway/internal/ledger"
	"vegas_gateway/internal/rpcerr"
	"vegas_gateway/internal/users"
)

// hangUpGateway cancels the caller's context the moment the debit starts,
// as a provider closing its connection would.
type hangUpGateway struct {
	BalanceGateway
	hangUp context.CancelFunc
}

func (g *hangUpGateway) Debit(ctx context.Context, userID int64, amount int64, reference string) error {
	g.hangUp()
	return g.BalanceGateway.Debit(ctx, userID, amount, reference)
}

func TestCallerHangUpDoesNotLoseDebit(t *testing.T) {
	gw := &hangUpGateway{}
	f := setupProcessor(t, func(inner BalanceGateway) BalanceGateway {
		gw.BalanceGateway = inner
		return gw
	})
	f.fund(t, 5000)

	ctx, cancel := context.WithCancel(context.Background())
	gw.hangUp = cancel
	balance, err := f.proc.ProcessGameAction(ctx, f.user, req("A1", PlayBet, 1000))
	require.NoError(t, err)
	assert.Equal(t, int64(4000), balance)

	gw.hangUp = func() {}
	balance, err = f.proc.ProcessGameAction(context.Background(), f.user, req("A1", PlayBet, 1000))
	require.NoError(t, err)
	assert.Equal(t, int64(4000), balance)
	assert.Equal(t, int64(4000), f.balance(t))
}

// stalledGateway never completes a debit before the action deadline.
type stalledGateway struct {
	BalanceGateway
}

func (g *stalledGateway) Debit(ctx context.Context, _ int64, _ int64, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestTimedOutDebitIsCompensated(t *testing.T) {
	f := setupProcessor(t, nil)
	f.fund(t, 5000)
	stalled := f.deps
	stalled.Wallet = &stalledGateway{BalanceGateway: f.deps.Wallet}
	proc := f.newProcessor(stalled, Options{ActionTimeout: 200 * time.Millisecond})
	ctx := context.Background()

	_, err := proc.ProcessGameAction(ctx, f.user, req("A1", PlayBet, 1000))
	require.Error(t, err)
	assert.Equal(t, rpcerr.CodeInternal, rpcerr.From(err).Code)

	got, err := f.ledger.FindByExternalID(ctx, "A1")
	require.NoError(t, err)
	assert.Nil(t, got, "timed out action must not stay recorded")

	balance, err := f.proc.ProcessGameAction(ctx, f.user, req("A1", PlayBet, 1000))
	require.NoError(t, err)
	assert.Equal(t, int64(4000), balance)
}

// racingLedger runs another delivery of the same action right before the
// write, after this delivery has already seen the action as new.
type racingLedger struct {
	ledger.Ledger
	once sync.Once
	race func()
}

func (l *racingLedger) Append(ctx context.Context, action *ledger.GameAction) error {
	l.once.Do(l.race)
	return l.Ledger.Append(ctx, action)
}

func (l *racingLedger) MarkRefunded(ctx context.Context, userID int64, actionID string) error {
	l.once.Do(l.race)
	return l.Ledger.MarkRefunded(ctx, userID, actionID)
}

func TestConcurrentDeliveriesOnTwoReplicasAgree(t *testing.T) {
	for _, tc := range []struct {
		name     string
		prepare  []ActionRequest
		delivery ActionRequest
		want     int64
	}{
		{name: "bet", delivery: req("A1", PlayBet, 1000), want: 4000},
		{name: "refund", prepare: []ActionRequest{req("A1", PlayBet, 1000)}, delivery: req("A1", PlayRefund, 1000), want: 5000},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := setupProcessor(t, nil)
			f.fund(t, 5000)
			ctx := context.Background()
			for _, r := range tc.prepare {
				_, err := f.proc.ProcessGameAction(ctx, f.user, r)
				require.NoError(t, err)
			}

			var first int64
			racing := &racingLedger{Ledger: f.ledger}
			racing.race = func() {
				var err error
				first, err = f.proc.ProcessGameAction(ctx, f.user, tc.delivery)
				require.NoError(t, err)
			}
			deps := f.deps
			deps.Ledger = racing
			replica := f.newProcessor(deps, Options{})

			second, err := replica.ProcessGameAction(ctx, f.user, tc.delivery)
			require.NoError(t, err)
			assert.Equal(t, tc.want, first)
			assert.Equal(t, first, second)
			assert.Equal(t, tc.want, f.balance(t))
		})
	}
}

// gatedGateway holds a debit until released and then fails it.
type gatedGateway struct {
	BalanceGateway
	entered chan struct{}
	release chan struct{}
}

func (g *gatedGateway) Debit(context.Context, int64, int64, string) error {
	close(g.entered)
	<-g.release
	return errors.New("finance service unavailable")
}

func TestRefundWaitsForBetOfSameAction(t *testing.T) {
	gw := &gatedGateway{entered: make(chan struct{}), release: make(chan struct{})}
	f := setupProcessor(t, func(inner BalanceGateway) BalanceGateway {
		gw.BalanceGateway = inner
		return gw
	})
	f.fund(t, 5000)
	ctx := context.Background()

	var wg sync.WaitGroup
	var betErr, refundErr error
	var refundBalance int64
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, betErr = f.proc.ProcessGameAction(ctx, f.user, req("A1", PlayBet, 1000))
	}()
	<-gw.entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		refundBalance, refundErr = f.proc.ProcessGameAction(ctx, f.user, req("A1", PlayRefund, 1000))
	}()
	time.Sleep(50 * time.Millisecond)
	close(gw.release)
	wg.Wait()

	require.Error(t, betErr)
	require.NoError(t, refundErr)
	assert.Equal(t, int64(5000), refundBalance)
	assert.Equal(t, int64(5000), f.balance(t), "refund of a failed bet must not credit")

	got, err := f.ledger.FindByExternalID(ctx, "A1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRefundOfAnotherUsersBetIsNoop(t *testing.T) {
	f := setupProcessor(t, nil)
	f.fund(t, 5000)
	ctx := context.Background()

	_, err := f.proc.ProcessGameAction(ctx, f.user, req("A1", PlayBet, 1000))
	require.NoError(t, err)

	other := &users.User{UserID: 2, Login: "bob", Status: users.StatusActive}
	balance, err := f.proc.ProcessGameAction(ctx, other, req("A1", PlayRefund, 1000))
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)

	bet, err := f.ledger.FindByExternalID(ctx, "A1")
	require.NoError(t, err)
	assert.False(t, bet.Refunded)
	assert.Equal(t, int64(4000), f.balance(t))
}
