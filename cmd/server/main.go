package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/staktlabs/arb-finder-service/internal/auth"
	"github.com/staktlabs/arb-finder-service/internal/cache"
	"github.com/staktlabs/arb-finder-service/internal/config"
	"github.com/staktlabs/arb-finder-service/internal/fetcher"
	httpHandler "github.com/staktlabs/arb-finder-service/internal/handler/http"
	"github.com/staktlabs/arb-finder-service/internal/messaging"
	"github.com/staktlabs/arb-finder-service/internal/middleware"
	"github.com/staktlabs/arb-finder-service/internal/oddsapi"
	"github.com/staktlabs/arb-finder-service/internal/scheduler"
	"github.com/staktlabs/arb-finder-service/internal/service"
	"github.com/staktlabs/arb-finder-service/internal/store/postgres"
	"github.com/staktlabs/arb-finder-service/pkg/arbitrage"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("config/config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)
	logger.Info().Msg("starting arb-finder-service")

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create Redis cache
	redisCache := cache.NewRedisCache(
		cache.RedisCacheConfig{
			Addrs:    cfg.Redis.Addrs,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		logger,
	)
	defer redisCache.Close()

	// Test Redis connection
	if err := redisCache.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	logger.Info().Strs("addrs", cfg.Redis.Addrs).Msg("connected to Redis")

	// Create upstream odds client
	oddsClient := oddsapi.NewClient(
		oddsapi.ClientConfig{
			BaseURL: cfg.OddsAPI.BaseURL,
			APIKey:  cfg.OddsAPI.APIKey,
			Timeout: cfg.OddsAPI.Timeout,
		},
		logger,
	)

	// Create read-through market fetcher
	marketFetcher := fetcher.New(oddsClient, redisCache, cfg.Redis.TTL, logger)
	logger.Info().Dur("ttl", cfg.Redis.TTL).Msg("market fetcher initialized")

	// Create arbitrage engine
	engine := arbitrage.NewEngine(
		arbitrage.Params{MarketKey: cfg.Arbitrage.MarketKey},
		logger,
	)

	// Create arbitrage service layer
	arbService := service.NewArbService(marketFetcher, engine, logger)
	logger.Info().Msg("arbitrage service initialized")

	// Create Kafka publisher if enabled
	var publisher *messaging.KafkaPublisher
	if cfg.Kafka.Enabled {
		publisher = messaging.NewKafkaPublisher(
			messaging.KafkaPublisherConfig{
				Brokers: cfg.Kafka.Brokers,
				Topic:   cfg.Kafka.Topic,
			},
			logger,
		)
		defer publisher.Close()
		logger.Info().Str("topic", cfg.Kafka.Topic).Msg("Kafka publisher initialized")
	}

	// Start cache warmer if enabled
	if cfg.Warmup.Enabled {
		warmerConfig := scheduler.Config{
			Schedule:        cfg.Warmup.Schedule,
			PrioritySports:  cfg.Warmup.PrioritySports,
			Regions:         cfg.Warmup.Regions,
			Markets:         cfg.Warmup.Markets,
			Delay:           cfg.Warmup.Delay,
			Bankroll:        cfg.Arbitrage.DefaultBankroll,
			RoundingUnit:    cfg.Arbitrage.DefaultRoundingUnit,
			RequirePositive: cfg.Arbitrage.RequirePositiveRounded,
		}
		// A nil *KafkaPublisher must stay a nil interface inside the warmer
		var warmerPublisher scheduler.OpportunityPublisher
		if publisher != nil {
			warmerPublisher = publisher
		}
		warmer := scheduler.NewWarmer(warmerConfig, marketFetcher, engine, warmerPublisher, logger)
		if err := warmer.Start(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to start cache warmer")
		}
		defer warmer.Stop()
		logger.Info().Str("schedule", cfg.Warmup.Schedule).Msg("cache warmer started")
	}

	// Connect to Postgres if configured
	var betStore httpHandler.BetRepository
	if cfg.Postgres.DSN != "" {
		pgClient, err := postgres.New(ctx, cfg.Postgres.DSN, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to Postgres")
		}
		defer pgClient.Close()

		if err := pgClient.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to ensure Postgres schema")
		}
		betStore = postgres.NewBetStore(pgClient)
		logger.Info().Msg("bet store initialized")
	}

	// Initialize HTTP handlers
	arbsHandler := httpHandler.NewArbsHandler(
		arbService,
		cfg.Arbitrage.DefaultBankroll,
		cfg.Arbitrage.DefaultRoundingUnit,
		cfg.Arbitrage.RequirePositiveRounded,
		logger,
	)
	betsHandler := httpHandler.NewBetsHandler(betStore, logger)

	// Setup router
	router := chi.NewRouter()
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health and monitoring endpoints
	router.Get("/health", healthHandler)
	router.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		readyHandler(w, r, redisCache)
	})
	router.Handle("/metrics", promhttp.Handler())

	// API routes
	authManager := auth.NewManager(cfg.Auth.JWTSecret, 24*time.Hour)
	router.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimit.Enabled {
			r.Use(middleware.RateLimit(redisCache, middleware.RateLimitConfig{
				Requests: cfg.RateLimit.Requests,
				Window:   cfg.RateLimit.Window,
			}, logger))
		}
		r.Use(auth.Middleware(authManager, logger))

		arbsHandler.RegisterRoutes(r)
		betsHandler.RegisterRoutes(r)
	})
	logger.Info().Msg("API routes registered")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start HTTP server in goroutine
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("shutting down gracefully...")

	// Cancel context to stop background work
	cancel()

	// Shutdown HTTP server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	logger.Info().Msg("shutdown complete")
}

// setupLogger configures the logger based on config
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Set format
	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	return log.Logger.With().Str("service", "arb-finder").Logger()
}

// healthHandler returns 200 if service is running
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// readyHandler returns 200 if service is ready to accept traffic
func readyHandler(w http.ResponseWriter, r *http.Request, cache *cache.RedisCache) {
	// Check Redis connection
	if err := cache.Ping(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("Redis unavailable"))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("READY"))
}
