package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nazir74680/Tumor-segmeantation/internal/analysis"
	"github.com/nazir74680/Tumor-segmeantation/internal/cache"
	"github.com/nazir74680/Tumor-segmeantation/internal/config"
	"github.com/nazir74680/Tumor-segmeantation/internal/credentials"
	"github.com/nazir74680/Tumor-segmeantation/internal/database"
	"github.com/nazir74680/Tumor-segmeantation/internal/events"
	"github.com/nazir74680/Tumor-segmeantation/internal/guard"
	"github.com/nazir74680/Tumor-segmeantation/internal/handlers"
	"github.com/nazir74680/Tumor-segmeantation/internal/jobs"
	"github.com/nazir74680/Tumor-segmeantation/internal/log"
	"github.com/nazir74680/Tumor-segmeantation/internal/models"
	"github.com/nazir74680/Tumor-segmeantation/internal/repository"
	"github.com/nazir74680/Tumor-segmeantation/internal/server"
	"github.com/nazir74680/Tumor-segmeantation/internal/service"
	"github.com/nazir74680/Tumor-segmeantation/internal/session"
	"github.com/nazir74680/Tumor-segmeantation/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level)

	ctx := context.Background()

	dbPool, err := database.Connect(ctx, cfg.Postgres, database.WithMigrations())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	var scans service.ScanStore
	if cfg.Storage.Endpoint != "" {
		objectStore, err := storage.NewObjectStore(cfg.Storage)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init object store")
		}
		if err := objectStore.EnsureBucket(ctx); err != nil {
			logger.Warn().Err(err).Msg("ensure bucket failed")
		}
		scans = objectStore
	} else {
		logger.Warn().Msg("storage.endpoint not set, uploaded scans are not archived")
	}

	table, err := credentials.New(credentials.FromConfig(cfg.Credentials))
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid credential table")
	}

	codec, err := session.NewCodec(cfg.Session.Signing, cfg.Session.Secret)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid session signing")
	}
	if cfg.Session.Signing == "none" {
		logger.Warn().Msg("session tokens are unsigned placeholders and carry no integrity")
	}

	sessionStorage, err := newSessionStorage(cfg.Session.Backend, redisClient, dbPool)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid session backend")
	}

	publisher := events.NewPublisher(redisClient, cfg.Events.Stream, cfg.Events.MaxLen)

	registry := session.NewRegistry(session.RegistryOptions{
		Key:          cfg.Session.StorageKey,
		Storage:      sessionStorage,
		Codec:        codec,
		Credentials:  table,
		Events:       publisher,
		Lifetime:     cfg.Session.Lifetime,
		IdleEviction: cfg.Session.IdleEviction,
		Logger:       logger.With().Str("component", "session").Logger(),
	})

	analyses := repository.NewAnalysisRepository(dbPool)
	analyzer := analysis.New(cfg.Analysis.Endpoint, cfg.Analysis.Timeout)
	if analyzer.Source() == models.AnalysisSourceSimulated {
		logger.Warn().Msg("analysis.endpoint not set, segmentation results are simulated")
	}

	analysisService := service.NewAnalysisService(analyses, scans, analyzer, publisher, cfg.Analysis.MaxUploadBytes, logger)

	handlerSet := handlers.NewHandlerSet(logger, handlers.Dependencies{
		Environment:    cfg.Environment,
		Sessions:       registry,
		Guard:          guard.New(cfg.Guard.DeniedPath),
		Predictor:      analysisService,
		Annotator:      analysisService,
		Analyses:       analyses,
		Notifications:  repository.NewNotificationRepository(dbPool),
		MaxUploadBytes: cfg.Analysis.MaxUploadBytes,
		Checks: map[string]handlers.HealthCheck{
			"database": dbPool.Ping,
			"cache": func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		},
	})
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(cfg.Session.SweepSpec, registry, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, registry, dbPool, redisClient)
}

func newSessionStorage(backend string, redisClient *redis.Client, db *pgxpool.Pool) (session.Storage, error) {
	switch backend {
	case "memory":
		return session.NewMemoryStorage(), nil
	case "redis":
		return session.NewRedisStorage(redisClient), nil
	case "postgres":
		return repository.NewKVRepository(db), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", backend)
	}
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, registry *session.Registry, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	scheduler.Stop(5 * time.Second)
	registry.Close()

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
