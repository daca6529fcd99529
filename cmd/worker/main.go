package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/nazir74680/Tumor-segmeantation/internal/cache"
	"github.com/nazir74680/Tumor-segmeantation/internal/config"
	"github.com/nazir74680/Tumor-segmeantation/internal/database"
	"github.com/nazir74680/Tumor-segmeantation/internal/log"
	"github.com/nazir74680/Tumor-segmeantation/internal/queue"
	"github.com/nazir74680/Tumor-segmeantation/internal/repository"
	"github.com/nazir74680/Tumor-segmeantation/internal/tasks"
)

func main() {
	cfg, err := config.LoadWorker()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level).With().Str("service", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.Connect(ctx, cfg.Postgres, database.WithMigrations())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer dbPool.Close()

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	processor := tasks.NewProcessor(repository.NewNotificationRepository(dbPool), logger)
	consumer := queue.NewConsumer(
		client,
		cfg.Events.Stream,
		cfg.Queue.Group,
		cfg.Queue.Consumer,
		cfg.Queue.ClaimInterval,
		logger,
		processor,
	)

	logger.Info().Str("stream", cfg.Events.Stream).Str("group", cfg.Queue.Group).Msg("worker started")

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("consumer stopped unexpectedly")
	}

	logger.Info().Msg("worker exited")
}
