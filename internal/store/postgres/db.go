package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Open connects and pings the database.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS mirror_records (
	endpoint  text        NOT NULL,
	id        bigint      NOT NULL,
	body      jsonb       NOT NULL,
	synced_at timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (endpoint, id)
);
CREATE TABLE IF NOT EXISTS mirror_syncs (
	endpoint     text        PRIMARY KEY,
	record_count integer     NOT NULL,
	synced_at    timestamptz NOT NULL DEFAULT now()
);`

// EnsureSchema creates the mirror tables when missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
