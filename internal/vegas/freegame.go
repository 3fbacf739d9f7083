package vegas

import (
	"context"
	"errors"

	"vegas_gateway/internal/catalog"
	"vegas_gateway/internal/rpcerr"
	"vegas_gateway/internal/users"
)

// ActivateFreegameOffer marks the freegame offer used by the user's bet in
// roundID as activated. Rounds without an offer, offers that are already
// activated and offers of another user are left alone.
func (p *Processor) ActivateFreegameOffer(ctx context.Context, user *users.User, roundID, gameReference string) error {
	game, err := p.resolveGame(ctx, gameReference)
	if err != nil {
		return err
	}

	action, err := p.deps.Ledger.FindByRound(ctx, user.UserID, game.GameID, roundID)
	if err != nil {
		return rpcerr.Wrap(rpcerr.CodeInternal, err)
	}
	if action == nil || action.FreegameUserOfferID == nil {
		return nil
	}

	offer, err := p.deps.Grants.GetUserOffer(ctx, *action.FreegameUserOfferID)
	if err != nil {
		if errors.Is(err, catalog.ErrOfferNotFound) {
			return nil
		}
		return rpcerr.Wrap(rpcerr.CodeInternal, err)
	}
	if offer.UserID != user.UserID || offer.Status != catalog.UserOfferAvailable {
		return nil
	}

	activated, err := p.deps.Grants.Activate(ctx, offer.FreegameUserOfferID, p.now())
	if err != nil {
		return rpcerr.Wrap(rpcerr.CodeInternal, err)
	}
	if activated {
		p.logger.Info().
			Int64("user_id", user.UserID).
			Int64("freegame_user_offer_id", *action.FreegameUserOfferID).
			Str("round_id", roundID).
			Msg("freegame offer activated")
	}
	return nil
}
