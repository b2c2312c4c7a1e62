// Package db provides PostgreSQL persistence for generation tasks.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS script_tasks (
	id           UUID PRIMARY KEY,
	status       TEXT NOT NULL,
	stage        TEXT NOT NULL DEFAULT '',
	request      JSONB NOT NULL,
	script       TEXT NOT NULL DEFAULT '',
	validation   JSONB,
	error        TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS script_tasks_status_updated_idx ON script_tasks (status, updated_at);
`

// Connect establishes a connection pool to the database and makes sure the
// task table exists.
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}
