package vegas

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"vegas_gateway/internal/catalog"
	"vegas_gateway/internal/ledger"
	"vegas_gateway/internal/logging"
	"vegas_gateway/internal/metrics"
	"vegas_gateway/internal/rpcerr"
	"vegas_gateway/internal/users"
	"vegas_gateway/internal/wallet"
)

const (
	DefaultActionTimeout = 30 * time.Second
	compensationTimeout  = 10 * time.Second
	actionLockStripes    = 64
)

type Options struct {
	// Now stamps offer activations. Defaults to time.Now.
	Now func() time.Time
	// ActionTimeout bounds one game action once it is detached from the
	// caller. Defaults to DefaultActionTimeout.
	ActionTimeout time.Duration
	// GameURLs are the launch URL templates used by GameURL.
	GameURLs GameURLTemplates
}

type Deps struct {
	Games   catalog.GameCatalog
	Offers  catalog.FreegameCatalog
	Grants  catalog.UserOfferGrants
	Ledger  ledger.Ledger
	Wallet  BalanceGateway
	Loyalty LoyaltyLedger
	Metrics *metrics.Metrics
}

// Processor applies provider game actions to user balances exactly once.
type Processor struct {
	deps     Deps
	now      func() time.Time
	timeout  time.Duration
	urls     GameURLTemplates
	inflight singleflight.Group
	// actions serializes every play type of one action id.
	actions [actionLockStripes]sync.Mutex
	logger  zerolog.Logger
}

func NewProcessor(deps Deps, opts Options, logger zerolog.Logger) *Processor {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	timeout := opts.ActionTimeout
	if timeout <= 0 {
		timeout = DefaultActionTimeout
	}
	return &Processor{
		deps:    deps,
		now:     now,
		timeout: timeout,
		urls:    opts.GameURLs,
		logger:  logging.WithComponent(logger, "vegas"),
	}
}

// Balance returns the user's casino balance in minor units.
func (p *Processor) Balance(ctx context.Context, user *users.User) (int64, error) {
	balance, err := p.deps.Wallet.Balance(ctx, user.UserID)
	if err != nil {
		return 0, rpcerr.Wrap(rpcerr.CodeInternal, err)
	}
	return balance, nil
}

// ProcessGameAction applies req for user and returns the resulting balance.
// Replays of an already processed action and refunds without an active bet
// return the current balance unchanged. Concurrent deliveries of the same
// action share one execution. The action outlives a caller that hangs up:
// it runs on its own deadline so ledger and balance stay in step.
func (p *Processor) ProcessGameAction(ctx context.Context, user *users.User, req ActionRequest) (int64, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	game, err := p.resolveGame(ctx, req.GameReference)
	if err != nil {
		p.deps.Metrics.ObserveAction(req.PlayType.String(), metrics.OutcomeRejected)
		return 0, err
	}

	key := fmt.Sprintf("%d:%s:%s", user.UserID, req.PlayType, req.ActionID)
	v, err, _ := p.inflight.Do(key, func() (interface{}, error) {
		unlock := p.lockAction(req.ActionID)
		defer unlock()
		return p.apply(ctx, user, game, req)
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

func (p *Processor) apply(ctx context.Context, user *users.User, game *catalog.Game, req ActionRequest) (int64, error) {
	log := p.logger.With().
		Int64("user_id", user.UserID).
		Str("action_id", req.ActionID).
		Stringer("playtype", req.PlayType).
		Int64("amount", req.Amount).
		Logger()

	balance, err := p.deps.Wallet.Balance(ctx, user.UserID)
	if err != nil {
		return p.fail(req, fmt.Errorf("read balance: %w", err))
	}

	processed, err := p.alreadyProcessed(ctx, user, req)
	if err != nil {
		return p.fail(req, err)
	}
	if processed {
		log.Info().Msg("action already processed")
		return p.replay(req, balance)
	}

	if req.PlayType == PlayBet && req.Amount > balance {
		log.Info().Int64("balance", balance).Msg("insufficient funds")
		p.deps.Metrics.ObserveAction(req.PlayType.String(), metrics.OutcomeRejected)
		return 0, rpcerr.ErrInsufficientFunds
	}

	recorded, err := p.record(ctx, user, game, req, balance)
	if err != nil {
		return p.fail(req, err)
	}
	if !recorded {
		log.Info().Msg("lost race to a concurrent delivery")
		balance, err = p.deps.Wallet.Balance(ctx, user.UserID)
		if err != nil {
			return p.fail(req, fmt.Errorf("re-read balance: %w", err))
		}
		return p.replay(req, balance)
	}

	if req.Amount <= 0 {
		p.deps.Metrics.ObserveAction(req.PlayType.String(), metrics.OutcomeApplied)
		return balance, nil
	}

	if err := p.mutate(ctx, user, game, req); err != nil {
		p.compensate(ctx, user, req, log)
		if errors.Is(err, wallet.ErrInsufficientFunds) {
			p.deps.Metrics.ObserveAction(req.PlayType.String(), metrics.OutcomeRejected)
			return 0, rpcerr.Wrap(rpcerr.CodeInsufficientFunds, err)
		}
		return p.fail(req, err)
	}

	newBalance, err := p.deps.Wallet.Balance(ctx, user.UserID)
	if err != nil {
		return p.fail(req, fmt.Errorf("re-read balance: %w", err))
	}
	p.deps.Metrics.ObserveAction(req.PlayType.String(), metrics.OutcomeApplied)
	log.Info().Int64("balance", newBalance).Msg("action applied")
	return newBalance, nil
}

func (p *Processor) alreadyProcessed(ctx context.Context, user *users.User, req ActionRequest) (bool, error) {
	switch req.PlayType {
	case PlayRefund:
		bet, err := p.deps.Ledger.FindActiveBet(ctx, user.UserID, req.ActionID)
		if err != nil {
			return false, err
		}
		return bet == nil, nil
	case PlayBet, PlayWin, PlayProgressiveWin:
		existing, err := p.deps.Ledger.FindByExternalID(ctx, req.ActionID)
		if err != nil {
			return false, err
		}
		return existing != nil, nil
	default:
		return false, fmt.Errorf("unsupported playtype %s", req.PlayType)
	}
}

// record writes the ledger side of the action. It reports false when a
// concurrent delivery got there first.
func (p *Processor) record(ctx context.Context, user *users.User, game *catalog.Game, req ActionRequest, balance int64) (bool, error) {
	if req.PlayType == PlayRefund {
		err := p.deps.Ledger.MarkRefunded(ctx, user.UserID, req.ActionID)
		if errors.Is(err, ledger.ErrBetNotFound) {
			return false, nil
		}
		return err == nil, err
	}

	action := &ledger.GameAction{
		ActionID:          req.ActionID,
		Kind:              ledgerKind(req.PlayType),
		RoundID:           req.RoundID,
		UserID:            user.UserID,
		GameID:            game.GameID,
		Amount:            wallet.FromMinor(req.Amount),
		UserBalanceInGame: wallet.FromMinor(balance),
	}
	if req.PlayType == PlayBet && req.FreegameName != "" {
		offerID, err := p.freegameUsage(ctx, user, game, req.FreegameName)
		if err != nil {
			return false, err
		}
		action.FreegameUserOfferID = offerID
	}

	err := p.deps.Ledger.Append(ctx, action)
	if errors.Is(err, ledger.ErrActionExists) {
		return false, nil
	}
	return err == nil, err
}

func (p *Processor) mutate(ctx context.Context, user *users.User, game *catalog.Game, req ActionRequest) error {
	amount := wallet.FromMinor(req.Amount)

	switch req.PlayType {
	case PlayBet:
		if err := p.deps.Wallet.Debit(ctx, user.UserID, req.Amount, req.ActionID); err != nil {
			return err
		}
		if err := p.deps.Loyalty.AccrueForBet(ctx, user.UserID, game.GameID, amount); err != nil {
			p.logger.Error().Err(err).Int64("user_id", user.UserID).Str("action_id", req.ActionID).Msg("cp accrual failed")
		}
	case PlayWin, PlayProgressiveWin:
		return p.deps.Wallet.Credit(ctx, user.UserID, req.Amount, wallet.CreditTransfer, req.ActionID)
	case PlayRefund:
		if err := p.deps.Wallet.Credit(ctx, user.UserID, req.Amount, wallet.CreditReverseTransfer, req.ActionID); err != nil {
			return err
		}
		if err := p.deps.Loyalty.ReverseForBet(ctx, user.UserID, game.GameID, amount); err != nil {
			p.logger.Error().Err(err).Int64("user_id", user.UserID).Str("action_id", req.ActionID).Msg("cp reversal failed")
		}
	}
	return nil
}

// compensate rolls back the ledger write of an action whose balance mutation
// failed, so the provider's retry is applied instead of replayed. It gets a
// fresh deadline: the action's own may be what failed the mutation.
func (p *Processor) compensate(ctx context.Context, user *users.User, req ActionRequest, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	var err error
	if req.PlayType == PlayRefund {
		err = p.deps.Ledger.ClearRefunded(ctx, user.UserID, req.ActionID)
	} else {
		err = p.deps.Ledger.Discard(ctx, user.UserID, req.ActionID)
	}
	if err != nil {
		log.Error().Err(err).Msg("ledger compensation failed")
	}
}

func (p *Processor) freegameUsage(ctx context.Context, user *users.User, game *catalog.Game, name string) (*int64, error) {
	offer, err := p.deps.Offers.OfferByNameAndGame(ctx, name, game.GameID)
	if err != nil {
		if errors.Is(err, catalog.ErrOfferNotFound) {
			return nil, nil
		}
		return nil, err
	}

	grants, err := p.deps.Grants.ListFor(ctx, user.UserID)
	if err != nil {
		return nil, err
	}
	for _, g := range grants {
		if g.FreegameOfferID == offer.FreegameOfferID {
			id := g.FreegameUserOfferID
			return &id, nil
		}
	}
	return nil, nil
}

func (p *Processor) resolveGame(ctx context.Context, ref string) (*catalog.Game, error) {
	game, err := p.deps.Games.GameByExternalReference(ctx, ref)
	if err != nil {
		if errors.Is(err, catalog.ErrGameNotFound) {
			return nil, rpcerr.ErrGameReferenceNotExist
		}
		return nil, rpcerr.Wrap(rpcerr.CodeInternal, err)
	}
	return game, nil
}

func (p *Processor) lockAction(actionID string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(actionID))
	m := &p.actions[h.Sum32()%actionLockStripes]
	m.Lock()
	return m.Unlock
}

func (p *Processor) replay(req ActionRequest, balance int64) (int64, error) {
	p.deps.Metrics.ObserveAction(req.PlayType.String(), metrics.OutcomeReplayed)
	return balance, nil
}

func (p *Processor) fail(req ActionRequest, err error) (int64, error) {
	p.deps.Metrics.ObserveAction(req.PlayType.String(), metrics.OutcomeFailed)
	p.logger.Error().Err(err).Str("action_id", req.ActionID).Msg("game action failed")
	return 0, rpcerr.Wrap(rpcerr.CodeInternal, err)
}

func ledgerKind(p PlayType) int {
	switch p {
	case PlayWin:
		return ledger.KindWin
	case PlayProgressiveWin:
		return ledger.KindProgressiveWin
	default:
		return ledger.KindBet
	}
}
