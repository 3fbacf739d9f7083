package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stored action kinds. A refund is never stored on its own: it flips the
// Refunded flag of the bet it reverses.
const (
	KindBet            = 1
	KindWin            = 2
	KindProgressiveWin = 3
)

// GameAction is one provider-reported event. ActionID is the provider's
// idempotency key and is unique across the table.
type GameAction struct {
	ID                  int64           `gorm:"column:id;primaryKey;autoIncrement"`
	ActionID            string          `gorm:"column:game_action_id;type:varchar(64);not null;uniqueIndex"`
	Kind                int             `gorm:"column:game_action_type_id;not null"`
	RoundID             string          `gorm:"column:round_id;type:varchar(64);not null;index:idx_game_action_round"`
	UserID              int64           `gorm:"column:user_id;not null;index:idx_game_action_round"`
	GameID              int64           `gorm:"column:game_id;not null;index:idx_game_action_round"`
	Amount              decimal.Decimal `gorm:"column:amount;type:numeric(20,2);not null"`
	UserBalanceInGame   decimal.Decimal `gorm:"column:user_balance_in_game;type:numeric(20,2);not null"`
	Refunded            bool            `gorm:"column:refunded;not null;default:false"`
	FreegameUserOfferID *int64          `gorm:"column:freegame_user_offer_id"`
	CreatedAt           time.Time       `gorm:"column:created;autoCreateTime"`
}

func (GameAction) TableName() string { return "vegas_game_actions" }
