package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/quantpulse/corrseek-go/internal/cache"
	"github.com/quantpulse/corrseek-go/internal/config"
	"github.com/quantpulse/corrseek-go/internal/correlation"
	"github.com/quantpulse/corrseek-go/internal/database"
	"github.com/quantpulse/corrseek-go/internal/logging"
	"github.com/quantpulse/corrseek-go/internal/store"
	"github.com/quantpulse/corrseek-go/internal/universe"
)

// corrseek runs one correlation batch: for every configured anchor symbol,
// find the most positively and negatively correlated candidates per window
// and persist the reduced lists.
func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.Environment)

	if len(cfg.Analysis.Anchors) == 0 {
		logger.Fatal("No anchor symbols configured (analysis.anchors)")
	}

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redisClient, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	seriesStore := store.NewPostgresSeriesStore(db.Pool)
	resultStore := store.NewPostgresResultStore(db.Pool)
	universes := universe.NewBuilder(db.Pool, cfg.Universe, logger)

	cacheFactory := func(runID string) cache.SharedSeriesCache {
		return cache.NewRedisSeriesCache(redisClient.Client, runID, cfg.CacheTTLDuration(), logger)
	}

	coordinator := correlation.NewCoordinator(cfg, seriesStore, cacheFactory, universes, resultStore, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := coordinator.Run(ctx, cfg.Analysis.Anchors); err != nil {
		logger.Fatalf("Correlation run failed: %v", err)
	}
}
