package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the users table on startup. The unique index on
// email is the authoritative race-breaker for concurrent registrations,
// not the service-level existence check.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id            BIGSERIAL PRIMARY KEY,
			name          TEXT NOT NULL,
			email         TEXT NOT NULL,
			gender        TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			ip_address    TEXT NOT NULL DEFAULT '',
			country       TEXT NOT NULL DEFAULT '',
			role          TEXT NOT NULL DEFAULT 'USER',
			created_at    TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL,
			CONSTRAINT users_email_uniq UNIQUE (email)
		)
	`)

	return err
}
