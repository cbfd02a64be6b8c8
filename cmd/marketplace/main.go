package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Khalidabdulkadir/Dhadhan-App/internal/auth"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/catalog"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/config"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/db"
	apiHttp "github.com/Khalidabdulkadir/Dhadhan-App/internal/handler/http"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/metrics"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/order"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/payment"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/ratelimit"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/reel"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/user"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("Failed to load config")
	}

	setupLogger(cfg)
	log.Info().Str("env", cfg.App.Env).Msg("Marketplace starting...")

	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	dbPool, err := db.New(startCtx, cfg.Postgres)
	cancelStart()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := dbPool.Migrate(cfg.Postgres.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	m := metrics.New()

	var limiter ratelimit.Limiter
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		// лимитер работает в режиме fail-open, поэтому недоступный Redis не фатален
		pingCtx, cancelPing := context.WithTimeout(context.Background(), 2*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis is not reachable, rate limiting will fail open")
		}
		cancelPing()
		limiter = ratelimit.NewRedisLimiter(redisClient, cfg.RateLimit.AuthLimit, cfg.RateLimit.AuthWindow)
	} else {
		log.Warn().Msg("Redis is not configured, auth rate limiting disabled")
	}

	userSvc := user.NewService(user.NewRepository(dbPool.Pool))
	catalogSvc := catalog.NewService(catalog.NewRepository(dbPool.Pool))

	paymentClient := payment.NewClient(
		cfg.Payment.BaseURL,
		cfg.Payment.SecretKey,
		cfg.Payment.PublishableKey,
		cfg.Payment.TestMode,
		cfg.Payment.Timeout,
	)
	if !paymentClient.Configured() {
		log.Warn().Msg("Payment provider keys are missing, STK push is disabled")
	}
	paymentSvc := payment.NewService(payment.NewRepository(dbPool.Pool), paymentClient, payment.Settings{
		Currency:         cfg.Payment.Currency,
		WebhookChallenge: cfg.Payment.WebhookChallenge,
	}, m)

	orderSvc := order.NewService(order.NewRepository(dbPool.Pool), catalogSvc, paymentSvc, order.Settings{
		DeliveryFee:       cfg.Order.DeliveryFee,
		PickupSentinel:    cfg.Order.PickupSentinel,
		MobileMoneyMethod: cfg.Order.MobileMoney,
	}, m)
	reelSvc := reel.NewService(reel.NewRepository(dbPool.Pool), catalogSvc, m)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	verifier := auth.NewGoogleVerifier(cfg.Google.UserInfoURL, cfg.Google.TokenInfoURL, cfg.Google.Timeout)
	authSvc := auth.NewService(userSvc, tokens, verifier, m)

	router := apiHttp.NewRouter(apiHttp.RouterConfig{
		Tokens:  tokens,
		Metrics: m,
		Ping:    dbPool.Pool.Ping,
	},
		apiHttp.NewAuthHandler(authSvc, userSvc, limiter, m),
		apiHttp.NewCatalogHandler(catalogSvc),
		apiHttp.NewOrderHandler(orderSvc, paymentSvc, userSvc),
		apiHttp.NewPaymentHandler(paymentSvc),
		apiHttp.NewReelHandler(reelSvc),
	)

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Marketplace stopped gracefully")
}

func setupLogger(cfg *config.Config) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.IsDevelopment() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	}
	log.Logger = log.With().Str("service", cfg.App.Name).Logger()
}
