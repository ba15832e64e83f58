// Package sqlite implements the GraphStore on an embedded SQLite database
// (modernc.org/sqlite, no cgo). The database file lives in Config.DataDir and
// is created with the schema on first Open.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/repertoire/pkg/types"
)

// DatabaseFile is the name of the SQLite file inside DataDir.
const DatabaseFile = "repertoire.db"

var _ types.GraphStore = (*Backend)(nil)

// Backend implements types.GraphStore using SQLite.
type Backend struct {
	mu      sync.RWMutex
	open    bool
	config  types.Config
	db      *sql.DB
	timeout time.Duration
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewBackend creates a backend that is not open yet; call Open.
func NewBackend() *Backend {
	return &Backend{}
}

// Open creates DataDir if needed, opens the database and applies the schema.
// Returns ErrAlreadyOpen if called twice without Close.
func (b *Backend) Open(ctx context.Context, config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.open {
		return types.ErrAlreadyOpen
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(filepath.Join(dataDir, DatabaseFile)))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, config.Timeout())
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return classify(fmt.Errorf("pinging database: %w", err))
	}
	if err := applySchema(ctx, db); err != nil {
		db.Close()
		return err
	}

	b.db = db
	b.config = config
	b.timeout = config.Timeout()
	b.open = true
	return nil
}

// dsn enables foreign keys (edge cascades), waits on a busy database instead
// of failing at once, and starts write transactions with an immediate lock.
func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

// Close releases the database. Close is idempotent. It waits for
// in-flight operations, which hold the read lock.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return nil
	}
	b.open = false
	if b.db != nil {
		err := b.db.Close()
		b.db = nil
		return err
	}
	return nil
}

// withDB runs fn with the open database under a per-call deadline. A closed
// backend reports ErrStoreUnavailable so readers fall back.
func (b *Backend) withDB(ctx context.Context, fn func(ctx context.Context, db *sql.DB) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.open {
		return fmt.Errorf("%w: %w", types.ErrStoreUnavailable, types.ErrStoreClosed)
	}
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return classify(fn(ctx, b.db))
}

// newUUID generates a UUID v7 for person and piece ids. v7 ids sort by
// creation time, which gives search results a stable creation order.
func newUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
