package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nazir74680/Tumor-segmeantation/internal/config"
)

const connectTimeout = 10 * time.Second

type connectOptions struct {
	migrate bool
}

type Option func(*connectOptions)

// WithMigrations applies the portal schema once the pool is reachable.
func WithMigrations() Option {
	return func(o *connectOptions) { o.migrate = true }
}

// Connect opens a pool shared by the portal and the worker, pings it and
// optionally migrates the schema. The pool is closed again on any failure.
func Connect(ctx context.Context, cfg config.PostgresConfig, opts ...Option) (*pgxpool.Pool, error) {
	var o connectOptions
	for _, opt := range opts {
		opt(&o)
	}

	poolConfig, err := PoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	if o.migrate {
		if err := Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return pool, nil
}

// PoolConfig turns the postgres settings into a pgx pool config.
func PoolConfig(cfg config.PostgresConfig) (*pgxpool.Config, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres.dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	if cfg.MaxOpen > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpen)
	}
	poolConfig.MinConns = int32(min(cfg.MaxIdle, int(poolConfig.MaxConns)))
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	poolConfig.HealthCheckPeriod = 30 * time.Second

	return poolConfig, nil
}
