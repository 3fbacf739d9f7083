package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrActionExists means another delivery of the same action id won the
	// insert. Callers treat it as already processed.
	ErrActionExists = errors.New("game action already recorded")
	ErrBetNotFound  = errors.New("active bet not found")
)

type Ledger interface {
	FindByExternalID(ctx context.Context, actionID string) (*GameAction, error)
	FindActiveBet(ctx context.Context, userID int64, actionID string) (*GameAction, error)
	FindByRound(ctx context.Context, userID, gameID int64, roundID string) (*GameAction, error)
	Append(ctx context.Context, action *GameAction) error
	MarkRefunded(ctx context.Context, userID int64, actionID string) error
	Discard(ctx context.Context, userID int64, actionID string) error
	ClearRefunded(ctx context.Context, userID int64, actionID string) error
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByExternalID returns nil, nil when no action carries actionID.
func (r *Repository) FindByExternalID(ctx context.Context, actionID string) (*GameAction, error) {
	return r.first(ctx, r.db.WithContext(ctx).Where("game_action_id = ?", actionID))
}

// FindActiveBet finds the user's bet with actionID that has not been
// refunded yet.
func (r *Repository) FindActiveBet(ctx context.Context, userID int64, actionID string) (*GameAction, error) {
	return r.first(ctx, r.db.WithContext(ctx).
		Where("game_action_id = ? AND user_id = ? AND game_action_type_id = ? AND refunded = ?", actionID, userID, KindBet, false))
}

func (r *Repository) FindByRound(ctx context.Context, userID, gameID int64, roundID string) (*GameAction, error) {
	return r.first(ctx, r.db.WithContext(ctx).
		Where("user_id = ? AND game_id = ? AND round_id = ?", userID, gameID, roundID).
		Order("id"))
}

func (r *Repository) first(_ context.Context, q *gorm.DB) (*GameAction, error) {
	var a GameAction
	err := q.First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get game action: %w", err)
	}
	return &a, nil
}

// Append inserts a new record. The unique index on game_action_id turns a
// concurrent duplicate into ErrActionExists.
func (r *Repository) Append(ctx context.Context, action *GameAction) error {
	err := r.db.WithContext(ctx).Create(action).Error
	if err != nil {
		if isDuplicate(err) {
			return ErrActionExists
		}
		return fmt.Errorf("failed to append game action: %w", err)
	}
	return nil
}

// MarkRefunded flips refunded on the active bet. Only one caller can win the
// flip; the rest get ErrBetNotFound.
func (r *Repository) MarkRefunded(ctx context.Context, userID int64, actionID string) error {
	result := r.db.WithContext(ctx).
		Model(&GameAction{}).
		Where("game_action_id = ? AND user_id = ? AND game_action_type_id = ? AND refunded = ?", actionID, userID, KindBet, false).
		Update("refunded", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark bet refunded: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrBetNotFound
	}
	return nil
}

// Discard removes a record whose balance mutation failed, so the provider's
// retry is processed as new. A refunded bet is kept: its refund was paid.
func (r *Repository) Discard(ctx context.Context, userID int64, actionID string) error {
	err := r.db.WithContext(ctx).
		Where("game_action_id = ? AND user_id = ? AND refunded = ?", actionID, userID, false).
		Delete(&GameAction{}).Error
	if err != nil {
		return fmt.Errorf("failed to discard game action: %w", err)
	}
	return nil
}

// ClearRefunded undoes MarkRefunded when the refund credit failed.
func (r *Repository) ClearRefunded(ctx context.Context, userID int64, actionID string) error {
	err := r.db.WithContext(ctx).
		Model(&GameAction{}).
		Where("game_action_id = ? AND user_id = ? AND game_action_type_id = ?", actionID, userID, KindBet).
		Update("refunded", false).Error
	if err != nil {
		return fmt.Errorf("failed to clear refunded flag: %w", err)
	}
	return nil
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}
