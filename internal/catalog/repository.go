package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var (
	ErrGameNotFound  = errors.New("game not found")
	ErrOfferNotFound = errors.New("freegame offer not found")
)

type GameCatalog interface {
	GameByExternalReference(ctx context.Context, ref string) (*Game, error)
}

type FreegameCatalog interface {
	OfferByNameAndGame(ctx context.Context, name string, gameID int64) (*FreegameOffer, error)
}

type UserOfferGrants interface {
	ListFor(ctx context.Context, userID int64) ([]FreegameUserOffer, error)
	GetUserOffer(ctx context.Context, userOfferID int64) (*FreegameUserOffer, error)
	Activate(ctx context.Context, userOfferID int64, at time.Time) (bool, error)
}

// Repository serves all three catalog views from one database.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GameByExternalReference(ctx context.Context, ref string) (*Game, error) {
	var game Game
	err := r.db.WithContext(ctx).Where("external_reference = ?", ref).First(&game).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return &game, nil
}

func (r *Repository) OfferByNameAndGame(ctx context.Context, name string, gameID int64) (*FreegameOffer, error) {
	var offer FreegameOffer
	err := r.db.WithContext(ctx).Where("name = ? AND game_id = ?", name, gameID).First(&offer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("failed to get freegame offer: %w", err)
	}
	return &offer, nil
}

// ListFor returns the user's offer instances that can still be redeemed.
func (r *Repository) ListFor(ctx context.Context, userID int64) ([]FreegameUserOffer, error) {
	var offers []FreegameUserOffer
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, UserOfferAvailable).
		Order("freegame_user_offer_id").
		Find(&offers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list freegame user offers: %w", err)
	}
	return offers, nil
}

// Activate moves an available user offer to activated. It reports false when
// the offer was already activated or does not exist.
func (r *Repository) Activate(ctx context.Context, userOfferID int64, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&FreegameUserOffer{}).
		Where("freegame_user_offer_id = ? AND status = ?", userOfferID, UserOfferAvailable).
		Updates(map[string]interface{}{
			"status":          UserOfferActivated,
			"activation_date": at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to activate freegame user offer: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) CreateGame(ctx context.Context, game *Game) error {
	if err := r.db.WithContext(ctx).Create(game).Error; err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}
	return nil
}

func (r *Repository) CreateOffer(ctx context.Context, offer *FreegameOffer) error {
	if err := r.db.WithContext(ctx).Create(offer).Error; err != nil {
		return fmt.Errorf("failed to create freegame offer: %w", err)
	}
	return nil
}

// Grant hands an offer to a user as an available instance.
func (r *Repository) Grant(ctx context.Context, userID, offerID int64) (*FreegameUserOffer, error) {
	uo := FreegameUserOffer{FreegameOfferID: offerID, UserID: userID, Status: UserOfferAvailable}
	if err := r.db.WithContext(ctx).Create(&uo).Error; err != nil {
		return nil, fmt.Errorf("failed to grant freegame offer: %w", err)
	}
	return &uo, nil
}

func (r *Repository) GetUserOffer(ctx context.Context, userOfferID int64) (*FreegameUserOffer, error) {
	var uo FreegameUserOffer
	err := r.db.WithContext(ctx).Where("freegame_user_offer_id = ?", userOfferID).First(&uo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("failed to get freegame user offer: %w", err)
	}
	return &uo, nil
}
