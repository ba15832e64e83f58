// Package query answers search and listing requests from the GraphStore,
// falling back to the snapshot when the store is unreachable.
package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/repertoire/internal/logger"
	"github.com/mesh-intelligence/repertoire/internal/snapshot"
	"github.com/mesh-intelligence/repertoire/pkg/types"
)

// Origin names the path that answered a query.
type Origin string

const (
	FromStore    Origin = "store"
	FromSnapshot Origin = "snapshot"
)

// Snapshots is satisfied by *snapshot.Cache.
type Snapshots interface {
	Snapshot() (*snapshot.Snapshot, error)
}

// Engine resolves queries in two steps: the store, then on
// ErrStoreUnavailable the snapshot. Any other store error is returned
// unchanged. When both paths fail the error wraps ErrServiceUnavailable.
type Engine struct {
	store     types.GraphStore
	snapshots Snapshots
	log       *logger.Logger
}

// New returns an Engine. A nil store behaves as one that is always
// unavailable; a nil snapshots behaves as one never loaded.
func New(store types.GraphStore, snapshots Snapshots, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{store: store, snapshots: snapshots, log: log}
}

// Search returns the people knowing a piece whose title contains substring.
func (e *Engine) Search(ctx context.Context, substring string, limit int) ([]types.PersonRef, Origin, error) {
	return resolve(e, "search",
		func() ([]types.PersonRef, error) { return e.store.Search(ctx, substring, limit) },
		func(s *snapshot.Snapshot) []types.PersonRef { return s.Search(substring, limit) },
	)
}

// ListPieces returns every distinct piece title in byte order.
func (e *Engine) ListPieces(ctx context.Context) ([]string, Origin, error) {
	return resolve(e, "list pieces",
		func() ([]string, error) { return e.store.ListPieces(ctx) },
		func(s *snapshot.Snapshot) []string { return s.ListPieces() },
	)
}

func resolve[T any](e *Engine, op string, primary func() (T, error), fallback func(*snapshot.Snapshot) T) (T, Origin, error) {
	var zero T
	err := errStoreMissing
	if e.store != nil {
		var v T
		if v, err = primary(); err == nil {
			return v, FromStore, nil
		}
	}
	if !errors.Is(err, types.ErrStoreUnavailable) {
		return zero, "", fmt.Errorf("%s: %w", op, err)
	}

	snap, serr := e.snapshot()
	if serr != nil {
		e.log.Error("query failed on store and snapshot", "op", op, "store_error", err, "snapshot_error", serr)
		return zero, "", fmt.Errorf("%s: %w: %w", op, types.ErrServiceUnavailable, errors.Join(err, serr))
	}
	e.log.Warn("store unavailable, answering from snapshot", "op", op, "error", err)
	return fallback(snap), FromSnapshot, nil
}

var errStoreMissing = fmt.Errorf("no store configured: %w", types.ErrStoreUnavailable)

func (e *Engine) snapshot() (*snapshot.Snapshot, error) {
	if e.snapshots == nil {
		return nil, types.ErrSnapshotNotLoaded
	}
	return e.snapshots.Snapshot()
}
