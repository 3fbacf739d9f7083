package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"vegas_gateway/internal/api"
	"vegas_gateway/internal/catalog"
	"vegas_gateway/internal/config"
	"vegas_gateway/internal/ledger"
	"vegas_gateway/internal/logging"
	"vegas_gateway/internal/loyalty"
	"vegas_gateway/internal/metrics"
	"vegas_gateway/internal/session"
	"vegas_gateway/internal/users"
	"vegas_gateway/internal/vegas"
	"vegas_gateway/internal/wallet"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	db, err := gorm.Open(postgres.Open(cfg.DBConnStr), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	if err := db.AutoMigrate(
		&users.User{},
		&wallet.Wallet{}, &wallet.Transaction{},
		&loyalty.Account{}, &loyalty.GameRate{}, &loyalty.Entry{},
		&catalog.Game{}, &catalog.FreegameOffer{}, &catalog.FreegameUserOffer{},
		&ledger.GameAction{},
	); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	err = rdb.Ping(ctx).Err()
	cancel()
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("ping redis")
	}

	userRepo := users.NewRepository(db)
	sessions := session.NewManager(session.NewRedisStore(rdb), userRepo, session.Options{
		APIUser:  cfg.APIUser,
		APIPass:  cfg.APIPass,
		TokenTTL: cfg.TokenTTL,
	}, logger)

	walletGateway := wallet.NewGateway(wallet.NewWalletRepositoryImpl(db), wallet.Options{
		WalletType: cfg.WalletType,
		Currency:   cfg.Currency,
	}, logger)

	loyaltyService := loyalty.NewService(db, loyalty.NewRepository(db), loyalty.Options{
		ServiceID:           "vegas",
		DefaultContribution: decimal.NewFromInt(1),
	}, logger)

	catalogRepo := catalog.NewRepository(db)
	m := metrics.New("vegas")

	processor := vegas.NewProcessor(vegas.Deps{
		Games:   catalogRepo,
		Offers:  catalogRepo,
		Grants:  catalogRepo,
		Ledger:  ledger.NewRepository(db),
		Wallet:  walletGateway,
		Loyalty: loyaltyService,
		Metrics: m,
	}, vegas.Options{
		ActionTimeout: cfg.ActionTimeout,
		GameURLs: vegas.GameURLTemplates{
			Real:            cfg.RealGameURL,
			Demo:            cfg.DemoGameURL,
			MobileReal:      cfg.MobileRealGameURL,
			MobileDemo:      cfg.MobileDemoGameURL,
			LiveDealersReal: cfg.LDRealGameURL,
		},
	}, logger)

	r := gin.Default()
	api.NewHandler(sessions, processor, m, logger).Register(r)

	logger.Info().Str("port", cfg.Port).Msg("server started")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
