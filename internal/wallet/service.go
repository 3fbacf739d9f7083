package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"vegas_gateway/internal/logging"
)

const (
	MaxRetries = 5
	RetryDelay = 10 * time.Millisecond
)

// Options scope the gateway to one finance account per user.
type Options struct {
	WalletType string
	Currency   string
}

// Gateway exposes the casino finance account in provider minor units.
type Gateway struct {
	repo   WalletRepository
	opts   Options
	logger zerolog.Logger
}

func NewGateway(repo WalletRepository, opts Options, logger zerolog.Logger) *Gateway {
	return &Gateway{
		repo:   repo,
		opts:   opts,
		logger: logging.WithComponent(logger, "wallet"),
	}
}

// Balance returns the user's balance in minor units. A user without a
// finance account has a zero balance.
func (g *Gateway) Balance(ctx context.Context, userID int64) (int64, error) {
	w, err := g.repo.GetWallet(ctx, userID, g.opts.WalletType, g.opts.Currency)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return ToMinor(w.Balance), nil
}

// Debit removes amount minor units. It fails with ErrInsufficientFunds when
// the stored balance cannot cover it at the moment of the write. A debit
// already journaled under reference is not repeated.
func (g *Gateway) Debit(ctx context.Context, userID int64, amount int64, reference string) error {
	done, err := g.journaled(ctx, userID, KindDebit, reference)
	if err != nil || done {
		return err
	}

	w, err := g.repo.GetWallet(ctx, userID, g.opts.WalletType, g.opts.Currency)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			return ErrInsufficientFunds
		}
		return fmt.Errorf("debit: %w", err)
	}

	tx := &Transaction{
		WalletID:        w.WalletID,
		UserID:          userID,
		TransactionType: KindDebit,
		Amount:          FromMinor(amount),
		ReferenceID:     reference,
	}
	return g.withRetry(func() error { return g.repo.Debit(ctx, tx) })
}

// Credit adds amount minor units. kind tells a win payout apart from the
// reversal of a refunded bet. Like Debit it is applied once per reference.
func (g *Gateway) Credit(ctx context.Context, userID int64, amount int64, kind CreditKind, reference string) error {
	done, err := g.journaled(ctx, userID, string(kind), reference)
	if err != nil || done {
		return err
	}

	w, err := g.getOrCreate(ctx, userID)
	if err != nil {
		return fmt.Errorf("credit: %w", err)
	}

	tx := &Transaction{
		WalletID:        w.WalletID,
		UserID:          userID,
		TransactionType: string(kind),
		Amount:          FromMinor(amount),
		ReferenceID:     reference,
	}
	return g.withRetry(func() error { return g.repo.Credit(ctx, tx) })
}

// journaled reports whether an operation of kind for reference already
// reached the journal, e.g. when the caller timed out after the commit.
func (g *Gateway) journaled(ctx context.Context, userID int64, kind, reference string) (bool, error) {
	txs, err := g.repo.GetTransactionsByReference(ctx, reference)
	if err != nil {
		return false, fmt.Errorf("read journal: %w", err)
	}
	for _, tx := range txs {
		if tx.UserID == userID && tx.TransactionType == kind {
			g.logger.Info().Int64("user_id", userID).Str("kind", kind).Str("reference", reference).Msg("operation already journaled")
			return true, nil
		}
	}
	return false, nil
}

func (g *Gateway) getOrCreate(ctx context.Context, userID int64) (*Wallet, error) {
	w, err := g.repo.GetWallet(ctx, userID, g.opts.WalletType, g.opts.Currency)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, ErrWalletNotFound) {
		return nil, err
	}
	w, err = g.repo.CreateWallet(ctx, userID, g.opts.WalletType, g.opts.Currency)
	if err != nil {
		// another request created it first
		return g.repo.GetWallet(ctx, userID, g.opts.WalletType, g.opts.Currency)
	}
	return w, nil
}

func (g *Gateway) withRetry(op func() error) error {
	var err error
	for i := 0; i < MaxRetries; i++ {
		err = op()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrOptimisticLock) {
			g.logger.Debug().Int("attempt", i+1).Msg("optimistic lock conflict, retrying")
			time.Sleep(RetryDelay)
			continue
		}
		return err
	}
	return err
}
