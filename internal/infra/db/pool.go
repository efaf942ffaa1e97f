// Package db builds the pgx connection pool shared by every service.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// Sized for the worker, the heaviest consumer: river's listener and
	// maintenance services plus each queue worker holding a transaction
	// through an analysis save.
	//   river internals (~4) + queue workers (5 * 2) + headroom = 16
	// webhookd stays under the same cap on its own: a delivery holds at most
	// two connections (audit update + store write) and the clone semaphore
	// limits deliveries in flight. The scheduler needs only the advisory lock
	// session, the stale-model query, and the job insert.
	defaultMaxConns = 16
	defaultMinConns = 4
)

func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := newPoolConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

func newPoolConfig(databaseURL string) (*pgxpool.Config, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	config.MaxConns = defaultMaxConns
	config.MinConns = defaultMinConns
	return config, nil
}
