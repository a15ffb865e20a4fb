// Command catalog-scroll browses a paged product catalog as an
// infinite-scroll card grid in the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/catalog-scroll/internal/config"
	"github.com/Sternrassler/catalog-scroll/pkg/catalog"
	"github.com/Sternrassler/catalog-scroll/pkg/gallery"
	"github.com/Sternrassler/catalog-scroll/pkg/logging"
	"github.com/Sternrassler/catalog-scroll/pkg/metrics"
	"github.com/Sternrassler/catalog-scroll/pkg/pagination"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "catalog-scroll: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logFile, err := logging.OpenFile(cfg.LogFile)
	if err != nil {
		return err
	}
	defer logFile.Close()

	logging.Setup(logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Output: logFile})
	logger := logging.NewLogger("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := connectRedis(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		logger.Info().Msg("Connected to Redis, response cache enabled")
	}

	catalogCfg := cfg.CatalogConfig()
	catalogCfg.Redis = redisClient
	client, err := catalog.New(catalogCfg)
	if err != nil {
		return fmt.Errorf("create catalog client: %w", err)
	}
	defer client.Close()

	if cfg.MetricsAddr != "" {
		srv := startOpsServer(cfg.MetricsAddr, redisClient, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("Ops server shutdown failed")
			}
		}()
	}

	updates := gallery.NewUpdates()
	loader := pagination.NewLoader(client, pagination.Config{OnChange: updates.Publish})

	logger.Info().
		Str("session_id", loader.ID()).
		Str("base_url", client.BaseURL()).
		Str("user_agent", cfg.UserAgent).
		Msg("Starting catalog-scroll")

	return gallery.Run(ctx, loader, updates)
}

// connectRedis returns nil when redisURL is empty.
func connectRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", config.EnvRedisURL, err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}

	return client, nil
}

func startOpsServer(addr string, redisClient *redis.Client, logger zerolog.Logger) *metrics.Server {
	checks := map[string]metrics.CheckFunc{}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	srv := metrics.NewServer(addr, checks)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error().Err(err).Str("address", addr).Msg("Ops server failed")
		}
	}()
	return srv
}
