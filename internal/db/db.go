// Package db implements the persistence layer: a sized PostgreSQL
// connection pool plus the five operations the rest of the scanner
// depends on (insertFindings, updateObjectStatus, getJobStats,
// getFindings, refreshProgress). Writes that batch several statements
// (InsertFindings, InsertObjects, UpdateObjectStatus) run through
// withTx, which guarantees release and rolls back before release on any
// error; the other operations use the pool's own query methods, which
// release their connection when the query completes.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config describes how to reach the PostgreSQL instance. Mirrors the
// RDS_* environment table: host, port, database, user, and password are
// populated from RDS_* environment variables by internal/common.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	MinConns int32
	MaxConns int32
}

// DefaultConfig returns sane defaults; callers still need Host/User/
// Password supplied from the environment.
func DefaultConfig() Config {
	return Config{
		Port:     5432,
		Database: "scanner_db",
		User:     "scanner_admin",
		SSLMode:  "require",
		MinConns: 2,
		MaxConns: 10,
	}
}

// ConnectionString builds the libpq keyword/value DSN pgxpool expects.
func (c Config) ConnectionString() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Database, c.SSLMode)
	if c.Password != "" {
		dsn += " password=" + c.Password
	}
	return dsn
}

func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("db: host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("db: port must be between 1 and 65535")
	}
	if c.User == "" {
		return fmt.Errorf("db: user is required")
	}
	if c.Database == "" {
		return fmt.Errorf("db: database name is required")
	}
	return nil
}

// DB wraps a sized pgxpool.Pool and exposes the persistence operations.
type DB struct {
	pool *pgxpool.Pool
}

// Open validates cfg, builds a pgxpool with the configured min/max
// connection bounds, and pings once to fail fast on bad configuration.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("db: invalid configuration: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("db: parse config: %w", err)
	}

	minConns := cfg.MinConns
	if minConns <= 0 {
		minConns = 2
	}
	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 10
	}
	poolCfg.MinConns = minConns
	poolCfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("db: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close releases every pooled connection.
func (d *DB) Close() {
	d.pool.Close()
}

// Pool exposes the underlying pool for callers (such as goose
// migrations) that need direct access.
func (d *DB) Pool() *pgxpool.Pool {
	return d.pool
}

// withTx acquires a connection, begins a transaction, runs fn, and
// commits on success or rolls back on any error or panic. The
// connection is always released on exit.
func (d *DB) withTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("db: acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("db: begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("db: rollback after %w: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("db: commit: %w", err)
	}
	return nil
}
