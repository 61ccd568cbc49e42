package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samg3003/wfs-fintech-hackathon/internal/config"
)

// NewPool configures a PostgreSQL connection pool from runtime settings.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	return pool, nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS refresh_samples (
    bucket_ts     TIMESTAMPTZ PRIMARY KEY,
    regime        TEXT NOT NULL,
    mean_iv       NUMERIC,
    max_ivr       NUMERIC,
    fear_count    INTEGER,
    signal_count  INTEGER NOT NULL DEFAULT 0,
    client_count  INTEGER NOT NULL DEFAULT 0,
    risk_count    INTEGER NOT NULL DEFAULT 0,
    status        TEXT NOT NULL,
    error         TEXT,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS client_statuses (
    bucket_ts     TIMESTAMPTZ NOT NULL,
    client_id     TEXT NOT NULL,
    name          TEXT NOT NULL,
    risk_label    TEXT NOT NULL,
    status        TEXT NOT NULL,
    vol_ratio     NUMERIC,
    misaligned    BOOLEAN NOT NULL DEFAULT FALSE,
    drift_summary TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (bucket_ts, client_id)
);

CREATE TABLE IF NOT EXISTS risk_alerts (
    id          BIGSERIAL PRIMARY KEY,
    bucket_ts   TIMESTAMPTZ NOT NULL,
    client_id   TEXT NOT NULL,
    client_name TEXT NOT NULL,
    status      TEXT NOT NULL,
    prev_status TEXT NOT NULL,
    vol_ratio   NUMERIC,
    channels    TEXT[] NOT NULL DEFAULT '{}',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (bucket_ts, client_id)
);
`

// EnsureSchema creates the history tables when they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
