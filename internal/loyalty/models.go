package loyalty

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EntryAccrual  = "accrual"
	EntryReversal = "reversal"
)

// Account is a user's comp-point balance together with the wagering volume
// that produced it.
type Account struct {
	UserID    int64           `gorm:"column:user_id;primaryKey;autoIncrement:false"`
	Points    decimal.Decimal `gorm:"column:points;type:numeric(20,4);not null;default:0"`
	BetsTotal decimal.Decimal `gorm:"column:bets_total;type:numeric(20,2);not null;default:0"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Account) TableName() string { return "cp_accounts" }

// GameRate is the share of a bet on a game that converts into comp points.
type GameRate struct {
	GameID       int64           `gorm:"column:game_id;primaryKey;autoIncrement:false"`
	Contribution decimal.Decimal `gorm:"column:contribution;type:numeric(5,4);not null"` // 0.0000 to 1.0000 (100%)
}

func (GameRate) TableName() string { return "cp_game_rates" }

type Entry struct {
	EntryID      string          `gorm:"column:entry_id;primaryKey;type:uuid"`
	UserID       int64           `gorm:"column:user_id;not null;index"`
	GameID       int64           `gorm:"column:game_id;not null"`
	ServiceID    string          `gorm:"column:service_id;type:varchar(20);not null"`
	Kind         string          `gorm:"column:kind;type:varchar(20);not null"` // "accrual", "reversal"
	BetAmount    decimal.Decimal `gorm:"column:bet_amount;type:numeric(20,2);not null"`
	Contribution decimal.Decimal `gorm:"column:contribution;type:numeric(5,4);not null"`
	Points       decimal.Decimal `gorm:"column:points;type:numeric(20,4);not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (Entry) TableName() string { return "cp_entries" }
