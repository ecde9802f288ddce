package main

import (
	"context"
	"os/signal"
	"syscall"

	"rollbook/internal/attendance"
	"rollbook/internal/config"
	"rollbook/internal/logging"
	"rollbook/internal/queue"
	"rollbook/internal/store"
	"rollbook/internal/worker"
)

// Worker consumes mark events from Redis and drops stale month summaries.
func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Env, cfg.LogLevel).With().Str("process", "worker").Logger()

	if cfg.QueueBackend != config.BackendRedis {
		logger.Fatal().Str("queue", cfg.QueueBackend).Msg("worker needs QUEUE_BACKEND=redis; the memory queue is drained in-process by the api")
	}
	if !cfg.CacheEnabled {
		logger.Warn().Msg("CACHE_ENABLED is false; events will be consumed with nothing to invalidate")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		logger.Warn().Str("addr", cfg.RedisAddr).Msg("redis not reachable yet, will keep retrying")
	}

	q := queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)
	cache := attendance.NewRedisSummaryCache(redisClient.Client, cfg.SummaryCacheTTL)

	if err := worker.NewInvalidator(q, cache, logger).Run(ctx); err != nil {
		logger.Error().Err(err).Msg("worker failed")
		return
	}
	logger.Info().Msg("worker stopped")
}
