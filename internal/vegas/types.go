package vegas

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"vegas_gateway/internal/wallet"
)

// PlayType is the kind of a provider game action.
type PlayType int

const (
	PlayBet PlayType = iota + 1
	PlayWin
	PlayProgressiveWin
	PlayRefund
)

var playTypeNames = map[PlayType]string{
	PlayBet:            "bet",
	PlayWin:            "win",
	PlayProgressiveWin: "progressivewin",
	PlayRefund:         "refund",
}

func (p PlayType) String() string {
	if name, ok := playTypeNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PlayType(%d)", int(p))
}

// ParsePlayType maps the provider's playtype string onto PlayType.
func ParsePlayType(s string) (PlayType, error) {
	for p, name := range playTypeNames {
		if name == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unsupported playtype %q", s)
}

// ActionRequest is one game action as reported by the provider. Amount is in
// minor units.
type ActionRequest struct {
	GameReference string
	ActionID      string
	PlayType      PlayType
	Amount        int64
	RoundID       string
	FreegameName  string
}

// BalanceGateway is the casino finance account seen in minor units.
type BalanceGateway interface {
	Balance(ctx context.Context, userID int64) (int64, error)
	Debit(ctx context.Context, userID int64, amount int64, reference string) error
	Credit(ctx context.Context, userID int64, amount int64, kind wallet.CreditKind, reference string) error
}

// LoyaltyLedger accrues comp points on wagers. Amounts are major units.
type LoyaltyLedger interface {
	AccrueForBet(ctx context.Context, userID, gameID int64, amount decimal.Decimal) error
	ReverseForBet(ctx context.Context, userID, gameID int64, amount decimal.Decimal) error
}

// TransactionID is the provider-facing id of a processed call: the current
// time in units of 100µs.
func TransactionID(now time.Time) int64 {
	return now.UnixNano() / int64(100*time.Microsecond)
}
