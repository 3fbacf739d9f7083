package loyalty

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAccountNotFound = errors.New("cp account not found")
	ErrRateNotFound    = errors.New("cp game rate not found")
)

type Repository interface {
	GetAccount(ctx context.Context, userID int64) (*Account, error)
	GetRate(ctx context.Context, gameID int64) (*GameRate, error)
	SetRate(ctx context.Context, rate *GameRate) error
	ListEntries(ctx context.Context, userID int64) ([]Entry, error)
	LockAccount(ctx context.Context, tx *gorm.DB, userID int64) (*Account, error)
	UpdateAccount(ctx context.Context, tx *gorm.DB, userID int64, points, betsTotal decimal.Decimal) error
	CreateEntry(ctx context.Context, tx *gorm.DB, entry *Entry) error
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) GetAccount(ctx context.Context, userID int64) (*Account, error) {
	var acc Account
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&acc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get cp account: %w", err)
	}
	return &acc, nil
}

func (r *RepositoryImpl) GetRate(ctx context.Context, gameID int64) (*GameRate, error) {
	var rate GameRate
	err := r.db.WithContext(ctx).Where("game_id = ?", gameID).First(&rate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRateNotFound
		}
		return nil, fmt.Errorf("failed to get cp game rate: %w", err)
	}
	return &rate, nil
}

func (r *RepositoryImpl) SetRate(ctx context.Context, rate *GameRate) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(rate).Error
	if err != nil {
		return fmt.Errorf("failed to set cp game rate: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) ListEntries(ctx context.Context, userID int64) ([]Entry, error) {
	var entries []Entry
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cp entries: %w", err)
	}
	return entries, nil
}

// LockAccount creates the account row when missing and then locks it for
// the rest of tx.
func (r *RepositoryImpl) LockAccount(ctx context.Context, tx *gorm.DB, userID int64) (*Account, error) {
	err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&Account{UserID: userID, Points: decimal.Zero, BetsTotal: decimal.Zero}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to init cp account: %w", err)
	}

	var acc Account
	err = tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&acc).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock cp account: %w", err)
	}
	return &acc, nil
}

func (r *RepositoryImpl) UpdateAccount(ctx context.Context, tx *gorm.DB, userID int64, points, betsTotal decimal.Decimal) error {
	result := tx.WithContext(ctx).
		Model(&Account{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"points":     points,
			"bets_total": betsTotal,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update cp account: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *RepositoryImpl) CreateEntry(ctx context.Context, tx *gorm.DB, entry *Entry) error {
	if err := tx.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create cp entry: %w", err)
	}
	return nil
}
