package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"

	"ms-events/internal/auth"
	"ms-events/internal/auth/auth_api"
	"ms-events/internal/config"
	"ms-events/internal/database"
	"ms-events/internal/events"
	"ms-events/internal/events/cache"
	eventdb "ms-events/internal/events/db"
	"ms-events/internal/events/event_api"
	"ms-events/internal/events/pass"
	"ms-events/internal/kafka"
	"ms-events/internal/logger"
	"ms-events/internal/middleware"
	"ms-events/internal/server"
	"ms-events/internal/users"
	userdb "ms-events/internal/users/db"
	"ms-events/internal/users/user_api"
	"ms-events/internal/validation"
)

// prepareSchema brings the schema up to date: SQL migrations on Postgres,
// model-derived tables on SQLite.
func prepareSchema(ctx context.Context, cfg *config.Config, bunDB *bun.DB, logger *logger.Logger) error {
	if !cfg.Database.AutoMigrate {
		logger.Info("MIGRATE", "AUTO_MIGRATE disabled, skipping schema setup")
		return nil
	}

	if cfg.Database.Driver == config.DriverSQLite {
		logger.Info("MIGRATE", "Creating SQLite schema from models")
		return database.CreateSchema(ctx, bunDB)
	}
	return database.Migrate(ctx, cfg.Database, logger)
}

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	logger := logger.NewLogger(cfg.Log)
	defer logger.Close()

	logger.Info("APP", "Starting Events Service initialization")
	if envErr != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatal("CONFIG", err.Error())
	}

	ctx := context.Background()

	bunDB, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("DATABASE", err.Error())
	}

	if err := prepareSchema(ctx, cfg, bunDB, logger); err != nil {
		logger.Fatal("MIGRATE", fmt.Sprintf("Schema setup failed: %v", err))
	}

	tokens, err := auth.NewTokenService([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	if err != nil {
		logger.Fatal("AUTH", err.Error())
	}

	passes, err := pass.NewGenerator(cfg.Pass.Secret)
	if err != nil {
		logger.Fatal("PASS", err.Error())
	}

	validator := validation.New()
	hasher := auth.NewBcryptHasher()

	userService := users.NewUserService(&userdb.DB{Bun: bunDB}, hasher, validator, logger)
	authService := auth.NewService(userService, hasher, tokens, logger)
	eventService := events.NewEventService(&eventdb.DB{Bun: bunDB}, validator, logger).WithPasses(passes)

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.Connect(ctx, cfg.Redis.Addr, logger)
		if err != nil {
			logger.Warn("REDIS", fmt.Sprintf("Event cache disabled: %v", err))
		} else {
			eventService.WithCache(cache.New(redisClient, cfg.Redis.CacheTTL, logger))
		}
	}

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, []string{cfg.Kafka.Topic}, logger); err != nil {
			logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		eventService.WithPublisher(producer)
		logger.Info("KAFKA", fmt.Sprintf("Publishing lifecycle events to %s", cfg.Kafka.Topic))
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit, logger)

	router := server.NewRouter(server.Deps{
		Auth:        authService,
		AuthHandler: auth_api.NewHandler(authService, validator, logger),
		UserHandler: user_api.NewHandler(userService, logger),
		Events:      event_api.NewHandler(eventService, logger),
		RateLimiter: limiter,
		Logger:      logger,
	})

	addr := cfg.Server.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("Events Service running on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "Events Service shutdown complete")
	}

	limiter.Close()
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("KAFKA", fmt.Sprintf("Failed to close producer: %v", err))
		}
	}
	if redisClient != nil {
		redisClient.Close()
	}
	bunDB.Close()
}
