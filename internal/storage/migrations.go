package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migrations are applied in order. Each statement is idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		subject    TEXT NOT NULL UNIQUE,
		email      TEXT NOT NULL DEFAULT '',
		name       TEXT NOT NULL DEFAULT '',
		avatar_url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS matrices (
		id               UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		owner_id         UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		name             TEXT NOT NULL,
		start_date       DATE NOT NULL,
		end_date         DATE NOT NULL,
		start_time       TEXT NOT NULL,
		end_time         TEXT NOT NULL,
		interval_minutes INT  NOT NULL CHECK (interval_minutes > 0),
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),

		CONSTRAINT ck_matrices_dates CHECK (start_date <= end_date),
		CONSTRAINT ck_matrices_times CHECK (start_time < end_time)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_matrices_owner
		ON matrices (owner_id, created_at DESC, id DESC)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		matrix_id  UUID NOT NULL REFERENCES matrices (id) ON DELETE CASCADE,
		name       TEXT NOT NULL,
		color      TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),

		CONSTRAINT uq_categories_color UNIQUE (matrix_id, color)
	)`,
	`CREATE TABLE IF NOT EXISTS cells (
		matrix_id  UUID NOT NULL REFERENCES matrices (id) ON DELETE CASCADE,
		idx        INT  NOT NULL CHECK (idx >= 0),
		color      TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),

		PRIMARY KEY (matrix_id, idx)
	)`,
}

// RunMigrations creates the schema if it does not exist.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	for i, ddl := range migrations {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
