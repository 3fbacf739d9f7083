package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kinds of balance operations recorded in the wallet journal.
const (
	KindDebit           = "debit"
	KindTransfer        = "transfer"
	KindReverseTransfer = "reverse_transfer"
)

const StatusCompleted = "completed"

// CreditKind distinguishes a normal win credit from a refund credit.
type CreditKind string

const (
	CreditTransfer        CreditKind = KindTransfer
	CreditReverseTransfer CreditKind = KindReverseTransfer
)

// Wallet is a user's finance account for one game service and currency.
// Balance is kept in major units.
type Wallet struct {
	WalletID   string          `gorm:"column:wallet_id;primaryKey;type:uuid"`
	UserID     int64           `gorm:"column:user_id;not null;uniqueIndex:idx_wallet_owner"`
	WalletType string          `gorm:"column:wallet_type;type:varchar(20);not null;uniqueIndex:idx_wallet_owner"` // "casino", "sport"
	Currency   string          `gorm:"column:currency;type:varchar(3);not null;uniqueIndex:idx_wallet_owner"`
	Balance    decimal.Decimal `gorm:"column:balance;type:numeric(20,2);not null;default:0"`
	Version    int             `gorm:"column:version;not null;default:1"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

type Transaction struct {
	TransactionID   string          `gorm:"column:transaction_id;primaryKey;type:uuid"`
	WalletID        string          `gorm:"column:wallet_id;type:uuid;not null;index"`
	UserID          int64           `gorm:"column:user_id;not null"`
	TransactionType string          `gorm:"column:transaction_type;type:varchar(20);not null"` // "debit", "transfer", "reverse_transfer"
	Amount          decimal.Decimal `gorm:"column:amount;type:numeric(20,2);not null"`
	BalanceBefore   decimal.Decimal `gorm:"column:balance_before;type:numeric(20,2);not null"`
	BalanceAfter    decimal.Decimal `gorm:"column:balance_after;type:numeric(20,2);not null"`
	ReferenceID     string          `gorm:"column:reference_id;type:varchar(255);not null;index"` // provider action id
	Status          string          `gorm:"column:status;type:varchar(20);not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	CompletedAt     *time.Time      `gorm:"column:completed_at"`
}

// FinanceRound is applied exactly once to every amount entering a mutation.
func FinanceRound(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FromMinor converts provider minor units (cents) to rounded major units.
func FromMinor(amount int64) decimal.Decimal {
	return FinanceRound(decimal.New(amount, -2))
}

// ToMinor converts a stored major-unit balance to minor units.
func ToMinor(d decimal.Decimal) int64 {
	return d.Shift(2).IntPart()
}
