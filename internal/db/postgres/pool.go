// Package postgres owns the process-wide pgx connection pool for the
// review store. The pool is created once in main and injected; every query
// path leases a connection from it and pgxpool guarantees release.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds connection pool parameters.
type Config struct {
	URL      string
	MinConns int
	MaxConns int
}

// Pool is a bounded pgx connection pool. MinConns connections are kept warm;
// acquisition beyond MaxConns blocks until a lease is returned rather than
// erroring.
type Pool struct {
	pool *pgxpool.Pool
}

// New creates the pool. Connections are established lazily; use WaitForReady
// to block until the database answers.
func New(ctx context.Context, cfg Config) (*Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	if cfg.MinConns > 0 {
		pc.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	return &Pool{pool: pool}, nil
}

// Query leases a connection, runs the query and returns the rows. The lease
// is released when the returned rows are closed.
func (p *Pool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return rows, nil
}

// Exec leases a connection, runs one statement and releases the lease.
func (p *Pool) Exec(ctx context.Context, sql string, args ...any) error {
	if _, err := p.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (p *Pool) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close tears the pool down. Called once at process exit.
func (p *Pool) Close() {
	p.pool.Close()
}

// Stat exposes pool counters for logging and tests.
func (p *Pool) Stat() *pgxpool.Stat {
	return p.pool.Stat()
}

// WaitForReady polls Ping until the database responds or timeout expires.
func (p *Pool) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := p.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}
