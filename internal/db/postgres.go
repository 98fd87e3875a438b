package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type DB struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// New creates a database connection pool from a Postgres connection URL.
//
// Why take a URL string instead of individual host/port/user fields?
//   - pgxpool.ParseConfig() natively understands Postgres URLs, and the
//     URL is what config.Config already stores (DATABASE_URL env var).
//   - No manual DSN building = no chance of forgetting sslmode or
//     mis-escaping passwords.
func New(ctx context.Context, databaseURL string, logger *zap.Logger) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	// Pool tuning for a chat backend: every guarded operation costs one or
	// two short queries, so throughput matters more than per-query latency.
	//
	// MaxConns (25): handles high request concurrency without exhausting
	//   Postgres slots (RDS default max_connections is 100).
	// MinConns (5): warm connections so the first requests after an idle
	//   period don't pay connect latency.
	// MaxConnLifetime (1h): recycle hourly against stale TCP / failovers.
	// MaxConnIdleTime (20min): release slots when traffic is low.
	// HealthCheckPeriod (1min): detect dead connections before queries do.
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 20 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Ping verifies credentials and network. On failure, close immediately —
	// don't leak a half-open pool.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping DB: %w", err)
	}

	logger.Info("DB connection established",
		zap.String("dsn", poolConfig.ConnString()),
		zap.Int32("max_conns", poolConfig.MaxConns),
	)
	return &DB{
		pool:   pool,
		logger: logger,
	}, nil
}

func (db *DB) Close() {
	db.logger.Info("closing database connection pool")
	db.pool.Close()
}

func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

func (db *DB) Health(ctx context.Context) error {
	return db.pool.Ping(ctx)
}
