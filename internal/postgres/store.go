// Package postgres implements the GraphStore on PostgreSQL through a pgx
// connection pool. The schema is the same as the SQLite backend's; it is
// applied with CREATE ... IF NOT EXISTS on Open.
package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mesh-intelligence/repertoire/pkg/types"
)

var _ types.GraphStore = (*Store)(nil)

// Store implements types.GraphStore on a pgx pool.
type Store struct {
	mu      sync.RWMutex
	pool    *pgxpool.Pool
	timeout time.Duration
}

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Open connects to config.DatabaseURL and applies the schema.
func Open(ctx context.Context, config types.Config) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Backend != types.BackendPostgres {
		return nil, fmt.Errorf("postgres store: %w: %s", types.ErrBackendUnknown, config.Backend)
	}

	poolCfg, err := pgxpool.ParseConfig(config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, config.Timeout())
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, classify(fmt.Errorf("connecting: %w", err))
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, classify(fmt.Errorf("pinging: %w", err))
	}
	if err := applySchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool, timeout: config.Timeout()}, nil
}

// Close releases the pool. Close is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	return nil
}

// withPool runs fn under a per-call deadline. A closed store reports
// ErrStoreUnavailable.
func (s *Store) withPool(ctx context.Context, fn func(ctx context.Context, pool *pgxpool.Pool) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pool == nil {
		return fmt.Errorf("%w: %w", types.ErrStoreUnavailable, types.ErrStoreClosed)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return classify(fn(ctx, s.pool))
}

func newUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
