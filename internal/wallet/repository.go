package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrOptimisticLock    = errors.New("optimistic lock error")
)

type WalletRepository interface {
	GetWallet(ctx context.Context, userID int64, walletType string, currency string) (*Wallet, error)
	GetTransactionsByReference(ctx context.Context, referenceID string) ([]Transaction, error)
	CreateWallet(ctx context.Context, userID int64, walletType string, currency string) (*Wallet, error)
	Credit(ctx context.Context, transaction *Transaction) error
	Debit(ctx context.Context, transaction *Transaction) error
}

type WalletRepositoryImpl struct {
	db *gorm.DB
}

func NewWalletRepositoryImpl(db *gorm.DB) WalletRepository {
	return &WalletRepositoryImpl{db: db}
}

func (r *WalletRepositoryImpl) GetWallet(ctx context.Context, userID int64, walletType string, currency string) (*Wallet, error) {
	var w Wallet
	err := r.db.WithContext(ctx).Where("user_id = ? AND wallet_type = ? AND currency = ?", userID, walletType, currency).First(&w).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &w, nil
}

func (r *WalletRepositoryImpl) GetTransactionsByReference(ctx context.Context, referenceID string) ([]Transaction, error) {
	var txs []Transaction
	err := r.db.WithContext(ctx).Where("reference_id = ?", referenceID).Order("created_at").Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}

func (r *WalletRepositoryImpl) CreateWallet(ctx context.Context, userID int64, walletType string, currency string) (*Wallet, error) {
	w := Wallet{
		WalletID:   uuid.New().String(),
		UserID:     userID,
		WalletType: walletType,
		Currency:   currency,
		Version:    1,
	}

	err := r.db.WithContext(ctx).Create(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Debit removes tx.Amount from the wallet. The funds check and the versioned
// update run in one database transaction, so a concurrent writer surfaces as
// ErrOptimisticLock rather than a lost update.
func (r *WalletRepositoryImpl) Debit(ctx context.Context, tx *Transaction) error {
	return r.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		var w Wallet
		if err := dbtx.Where("wallet_id = ?", tx.WalletID).First(&w).Error; err != nil {
			return err
		}

		if w.Balance.LessThan(tx.Amount) {
			return ErrInsufficientFunds
		}

		return r.apply(dbtx, &w, w.Balance.Sub(tx.Amount), tx)
	})
}

func (r *WalletRepositoryImpl) Credit(ctx context.Context, tx *Transaction) error {
	return r.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		var w Wallet
		if err := dbtx.Where("wallet_id = ?", tx.WalletID).First(&w).Error; err != nil {
			return err
		}

		return r.apply(dbtx, &w, w.Balance.Add(tx.Amount), tx)
	})
}

func (r *WalletRepositoryImpl) apply(dbtx *gorm.DB, w *Wallet, newBalance decimal.Decimal, tx *Transaction) error {
	result := dbtx.Model(&Wallet{}).Where("wallet_id = ? AND version = ?", w.WalletID, w.Version).
		Updates(map[string]interface{}{
			"balance":    newBalance,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOptimisticLock
	}

	tx.TransactionID = uuid.New().String()
	tx.BalanceBefore = w.Balance
	tx.BalanceAfter = newBalance
	tx.Status = StatusCompleted
	now := time.Now()
	tx.CompletedAt = &now

	if err := dbtx.Create(tx).Error; err != nil {
		return fmt.Errorf("failed to journal %s: %w", tx.TransactionType, err)
	}
	return nil
}
