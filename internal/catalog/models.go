package catalog

import "time"

const (
	UserOfferAvailable = "available"
	UserOfferActivated = "activated"
)

// Parent themes with their own launch URLs. Their game codes carry a
// prefix the provider does not know.
const (
	ThemeMobile      int64 = 2
	ThemeLiveDealers int64 = 3

	MobileGameCodePrefix      = "mobile_"
	LiveDealersGameCodePrefix = "ld_"
)

// Game is a provider game known to the platform. ExternalReference is the
// provider's name for it ("gamereference").
type Game struct {
	GameID            int64     `gorm:"column:game_id;primaryKey;autoIncrement"`
	ExternalReference string    `gorm:"column:external_reference;type:varchar(100);not null;uniqueIndex"`
	Code              string    `gorm:"column:code;type:varchar(100);not null"`
	Name              string    `gorm:"column:name;type:varchar(100);not null"`
	ParentThemeID     int64     `gorm:"column:parent_theme_id;not null;default:0"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
}

// FreegameOffer is a free-spin grant defined for one game.
type FreegameOffer struct {
	FreegameOfferID int64     `gorm:"column:freegame_offer_id;primaryKey;autoIncrement"`
	GameID          int64     `gorm:"column:game_id;not null;index"`
	Name            string    `gorm:"column:name;type:varchar(100);not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}

// FreegameUserOffer is a user's instance of a FreegameOffer. It moves from
// available to activated once and never back.
type FreegameUserOffer struct {
	FreegameUserOfferID int64      `gorm:"column:freegame_user_offer_id;primaryKey;autoIncrement"`
	FreegameOfferID     int64      `gorm:"column:freegame_offer_id;not null;index"`
	UserID              int64      `gorm:"column:user_id;not null;index"`
	Status              string     `gorm:"column:status;type:varchar(20);not null"` // "available", "activated"
	ActivationDate      *time.Time `gorm:"column:activation_date"`
	CreatedAt           time.Time  `gorm:"column:created_at;autoCreateTime"`
}
