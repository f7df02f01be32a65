// @title           Rental Listings API
// @version         1.0
// @description     Listing search, landlord ingest and account endpoints.
// @BasePath        /api
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the token.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/smartrent/rental-api/internal/api"
	"github.com/smartrent/rental-api/internal/api/handler"
	"github.com/smartrent/rental-api/internal/core/ports"
	"github.com/smartrent/rental-api/internal/core/service"
	"github.com/smartrent/rental-api/internal/infrastructure/db/mongo"
	"github.com/smartrent/rental-api/internal/infrastructure/db/redis"
	"github.com/smartrent/rental-api/internal/infrastructure/storage"
	"github.com/smartrent/rental-api/internal/pkg/config"
	"github.com/smartrent/rental-api/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.IsDevelopment(),
	})

	// --- MongoDB ---
	client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect")
		}
	}()
	log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")

	listingRepo := mongo.NewListingRepository(db)
	userRepo := mongo.NewUserRepository(db)
	if err := listingRepo.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("listing indexes: %w", err)
	}
	if err := userRepo.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("user indexes: %w", err)
	}

	checks := map[string]handler.DependencyCheck{"mongodb": mongo.HealthCheck(db)}

	// --- Redis (optional) ---
	var dedup ports.ImportDeduper
	if cfg.Redis.Addr != "" {
		rdb, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, bulk import replay protection disabled")
		} else {
			defer closeRedis(rdb, log)
			dedup = redis.NewImportDeduper(rdb)
			checks["redis"] = redis.HealthCheck(rdb)
			log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to redis")
		}
	}

	// --- Document store ---
	var store ports.DocumentStore
	switch cfg.Uploads.Store {
	case config.StoreGridFS:
		store = mongo.NewGridFSDocumentStore(db)
	default:
		local, err := storage.NewLocalStore(cfg.Uploads.Dir)
		if err != nil {
			return err
		}
		store = local
	}
	log.Info().Str("backend", cfg.Uploads.Store).Msg("document store ready")

	// --- HTTP ---
	e := api.NewRouter(
		api.Options{
			JWTSecret:      cfg.JWTSecret,
			AllowedOrigin:  cfg.ClientURL,
			MaxUploadBytes: cfg.Uploads.MaxBytes,
			Logger:         log,
			Registerer:     prometheus.DefaultRegisterer,
			Gatherer:       prometheus.DefaultGatherer,
		},
		api.Dependencies{
			Auth:     service.NewAuthService(userRepo, cfg.JWTSecret, log),
			Listings: service.NewListingService(listingRepo, dedup, log),
			Users:    service.NewUserService(userRepo, store, log),
			Checks:   checks,
		},
	)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func closeRedis(rdb *goredis.Client, log zerolog.Logger) {
	if err := rdb.Close(); err != nil {
		log.Warn().Err(err).Msg("redis close")
	}
}
