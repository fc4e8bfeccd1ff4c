package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"campusportal/internal/config"
	"campusportal/internal/logging"
	"campusportal/internal/portal"
	"campusportal/internal/queue"
	"campusportal/internal/store"
)

// Worker applies point events to the leaderboard and re-ranks it on a schedule.
func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Env).Named("worker")
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.QueueBackend == "memory" || cfg.StoreBackend == "memory" {
		logger.Fatal("the worker needs QUEUE_BACKEND=redis and STORE_BACKEND=postgres; with the memory queue the API applies events and re-ranks itself")
	}

	db, err := store.OpenPostgres(ctx, cfg.DatabaseURL, store.Pool{
		MaxOpen: cfg.DBMaxOpenConns, MaxIdle: cfg.DBMaxIdleConns, Lifetime: cfg.DBConnLifetime,
	})
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := store.OpenRedis(cfg.RedisAddr)
	if err != nil {
		logger.Fatal("redis config invalid", zap.Error(err))
	}
	defer redisClient.Close()
	q := queue.NewRedisQueue(redisClient.Client, queue.DefaultKey, logger.Named("queue"))

	svcs := portal.NewServices(portal.PostgresStores(db.Client), cfg.Location(), cfg.Cutoff(), nil)

	c, err := portal.ScheduleRerank(ctx, cfg.RerankSchedule, cfg.Location(), svcs.Leaderboard, logger)
	if err != nil {
		logger.Fatal("invalid rerank schedule", zap.Error(err))
	}
	c.Start()
	defer func() { <-c.Stop().Done() }()

	logger.Info("worker started, waiting for events", zap.String("rerank", cfg.RerankSchedule))
	if err := portal.ApplyEvents(ctx, q, svcs.Leaderboard, logger); err != nil {
		logger.Error("queue consume failed", zap.Error(err))
		return
	}
	logger.Info("worker stopped")
}
