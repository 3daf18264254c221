package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/aces/bvlfeedback/internal/adapters/cache"
	"github.com/aces/bvlfeedback/internal/adapters/database"
	"github.com/aces/bvlfeedback/internal/api/handlers"
	"github.com/aces/bvlfeedback/internal/api/routes"
	"github.com/aces/bvlfeedback/internal/application/services"
	"github.com/aces/bvlfeedback/internal/domain/entities"
	"github.com/aces/bvlfeedback/internal/domain/providers"
	"github.com/aces/bvlfeedback/internal/infrastructure/clients/postgres"
	"github.com/aces/bvlfeedback/internal/infrastructure/clients/redis"
	"github.com/aces/bvlfeedback/internal/infrastructure/observability"
	"github.com/aces/bvlfeedback/pkg/config"
	"github.com/aces/bvlfeedback/pkg/secrets"
)

func main() {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	vaultRes, err := secrets.Apply(context.Background(), secrets.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load secrets from Vault: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)

	if vaultRes.Loaded > 0 {
		log.Info().Str("path", vaultRes.Path).Int("loaded", vaultRes.Loaded).Int("skipped", vaultRes.Skipped).Msg("secrets loaded from Vault")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	if cfg.Database.EnsureSchema {
		if err := database.EnsureFeedbackSchema(ctx, pgClient); err != nil {
			log.Fatal().Err(err).Msg("failed to ensure feedback schema")
		}
	}

	// Redis is optional; rate limiting falls back to process memory without it.
	var cacheProvider providers.CacheProvider
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, rate limiting is per process")
		} else {
			defer redisClient.Close()
			cacheProvider = cache.NewRedisAdapter(redisClient)
			log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Redis client initialized")
		}
	}

	feedbackAdapter := database.NewFeedbackThreadAdapter(pgClient, metrics)
	feedbackService := services.NewFeedbackThreadService(feedbackAdapter, metrics)

	limiter := handlers.NewRateLimiter(cacheProvider, cfg.Feedback.RateLimit, time.Hour)
	feedbackHandler := handlers.NewFeedbackThreadHandler(
		feedbackService,
		entities.FeedbackLevel(cfg.Feedback.Level),
		limiter,
		metrics,
	)

	router := routes.NewRouter(feedbackHandler, cfg.Server.AllowedOrigins, pgClient, metrics)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Str("feedback_level", cfg.Feedback.Level).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	log.Info().Msg("server stopped")
}
