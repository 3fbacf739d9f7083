package loyalty

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"vegas_gateway/internal/logging"
)

// Options configure comp-point accrual.
type Options struct {
	// ServiceID tags entries with the game service that produced the wager.
	ServiceID string
	// DefaultContribution applies to games without a configured rate.
	DefaultContribution decimal.Decimal
}

type Service struct {
	db     *gorm.DB
	repo   Repository
	opts   Options
	logger zerolog.Logger
}

func NewService(db *gorm.DB, repo Repository, opts Options, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		repo:   repo,
		opts:   opts,
		logger: logging.WithComponent(logger, "loyalty"),
	}
}

// AccrueForBet credits comp points for a wager of amount (major units) on gameID.
func (s *Service) AccrueForBet(ctx context.Context, userID, gameID int64, amount decimal.Decimal) error {
	return s.record(ctx, userID, gameID, amount, EntryAccrual)
}

// ReverseForBet takes back the points a refunded wager earned.
func (s *Service) ReverseForBet(ctx context.Context, userID, gameID int64, amount decimal.Decimal) error {
	return s.record(ctx, userID, gameID, amount, EntryReversal)
}

func (s *Service) Account(ctx context.Context, userID int64) (*Account, error) {
	return s.repo.GetAccount(ctx, userID)
}

func (s *Service) record(ctx context.Context, userID, gameID int64, amount decimal.Decimal, kind string) error {
	contribution, err := s.gameContribution(ctx, gameID)
	if err != nil {
		return fmt.Errorf("failed to get game contribution: %w", err)
	}
	points := amount.Mul(contribution)
	volume := amount
	if kind == EntryReversal {
		points = points.Neg()
		volume = volume.Neg()
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acc, lockErr := s.repo.LockAccount(ctx, tx, userID)
		if lockErr != nil {
			return lockErr
		}
		if updateErr := s.repo.UpdateAccount(ctx, tx, userID, acc.Points.Add(points), acc.BetsTotal.Add(volume)); updateErr != nil {
			return updateErr
		}
		return s.repo.CreateEntry(ctx, tx, &Entry{
			EntryID:      uuid.New().String(),
			UserID:       userID,
			GameID:       gameID,
			ServiceID:    s.opts.ServiceID,
			Kind:         kind,
			BetAmount:    amount,
			Contribution: contribution,
			Points:       points,
		})
	})
	if err != nil {
		return fmt.Errorf("failed to record cp %s: %w", kind, err)
	}

	s.logger.Debug().
		Int64("user_id", userID).
		Int64("game_id", gameID).
		Str("kind", kind).
		Str("points", points.String()).
		Msg("cp recorded")
	return nil
}

func (s *Service) gameContribution(ctx context.Context, gameID int64) (decimal.Decimal, error) {
	rate, err := s.repo.GetRate(ctx, gameID)
	if err != nil {
		if errors.Is(err, ErrRateNotFound) {
			return s.opts.DefaultContribution, nil
		}
		return decimal.Zero, err
	}
	return rate.Contribution, nil
}
