package scheduler

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DistributedLock serializes a named job across service instances with a
// PostgreSQL advisory lock. The lock is session-scoped: if the pool recycles
// the holding connection, Postgres releases the lock on its own, so callers
// get best-effort mutual exclusion, not a lease.
type DistributedLock struct {
	pool   *pgxpool.Pool
	lockID int64
}

// NewDistributedLock derives the advisory lock ID from key with FNV-64a, so
// every instance configured with the same key contends on the same lock.
func NewDistributedLock(pool *pgxpool.Pool, key string) *DistributedLock {
	return &DistributedLock{
		pool:   pool,
		lockID: hashKey(key),
	}
}

func hashKey(key string) int64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return int64(h.Sum64())
}

// TryAcquire attempts the lock without blocking. False means another
// instance is already running the job.
func (l *DistributedLock) TryAcquire(ctx context.Context) (bool, error) {
	var acquired bool
	if err := l.pool.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		return false, fmt.Errorf("pg_try_advisory_lock: %w", err)
	}
	return acquired, nil
}

// Release unlocks unconditionally. Safe when the session no longer holds the
// lock; Postgres reports false rather than erroring.
func (l *DistributedLock) Release(ctx context.Context) error {
	var released bool
	if err := l.pool.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", l.lockID).Scan(&released); err != nil {
		return fmt.Errorf("pg_advisory_unlock: %w", err)
	}
	return nil
}

// Close is a no-op; the session ending is what releases an advisory lock.
func (l *DistributedLock) Close() error {
	return nil
}
