package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS kv_store (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS analyses (
		id               TEXT PRIMARY KEY,
		user_id          TEXT NOT NULL,
		file_name        TEXT NOT NULL,
		bucket           TEXT NOT NULL DEFAULT '',
		object_key       TEXT NOT NULL DEFAULT '',
		format           TEXT NOT NULL,
		size_bytes       BIGINT NOT NULL,
		tumor_percentage DOUBLE PRECISION NOT NULL,
		width            INTEGER NOT NULL DEFAULT 0,
		height           INTEGER NOT NULL DEFAULT 0,
		source           TEXT NOT NULL,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS analyses_user_created_idx ON analyses (user_id, created_at DESC)`,
	`ALTER TABLE analyses
		ADD COLUMN IF NOT EXISTS annotation_image_key TEXT NOT NULL DEFAULT '',
		ADD COLUMN IF NOT EXISTS mask_key             TEXT NOT NULL DEFAULT '',
		ADD COLUMN IF NOT EXISTS annotated_at         TIMESTAMPTZ`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		kind       TEXT NOT NULL,
		title      TEXT NOT NULL,
		message    TEXT NOT NULL,
		read       BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS notifications_user_created_idx ON notifications (user_id, created_at DESC)`,
}

// Migrate creates the portal tables when they do not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	return nil
}
