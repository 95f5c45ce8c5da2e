// Package database opens the pgx pool and applies the schema migrations for the PostgreSQL warehouse.
package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultApplicationName tags warehouse sessions in pg_stat_activity.
const DefaultApplicationName = "biometric-advisor"

// Pool is the pgx pool the warehouse queries through.
type Pool struct {
	*pgxpool.Pool
}

// PoolOptions tunes the warehouse pool. Zero values take the defaults
// below; a request holds at most one connection, so the pool stays small.
type PoolOptions struct {
	MaxConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	// ApplicationName defaults to DefaultApplicationName unless the
	// connection string already sets application_name.
	ApplicationName string
	// StatementTimeout becomes the session statement_timeout; 0 leaves the server's.
	StatementTimeout time.Duration
}

func poolConfig(connStr string, opts PoolOptions) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	cfg.MaxConns = opts.MaxConns
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 4
	}
	cfg.MaxConnLifetime = opts.MaxConnLifetime
	if cfg.MaxConnLifetime <= 0 {
		cfg.MaxConnLifetime = time.Hour
	}
	cfg.MaxConnIdleTime = opts.MaxConnIdleTime
	if cfg.MaxConnIdleTime <= 0 {
		cfg.MaxConnIdleTime = 5 * time.Minute
	}

	params := cfg.ConnConfig.RuntimeParams
	switch {
	case opts.ApplicationName != "":
		params["application_name"] = opts.ApplicationName
	case params["application_name"] == "":
		params["application_name"] = DefaultApplicationName
	}
	if opts.StatementTimeout > 0 {
		params["statement_timeout"] = strconv.FormatInt(opts.StatementTimeout.Milliseconds(), 10)
	}

	return cfg, nil
}

// OpenPool creates the warehouse pool and pings it once.
func OpenPool(ctx context.Context, connStr string, opts PoolOptions) (*Pool, error) {
	cfg, err := poolConfig(connStr, opts)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}
