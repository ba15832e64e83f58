package cli

import (
	"context"
	"errors"

	"github.com/mesh-intelligence/repertoire/internal/postgres"
	"github.com/mesh-intelligence/repertoire/internal/query"
	"github.com/mesh-intelligence/repertoire/internal/snapshot"
	"github.com/mesh-intelligence/repertoire/internal/sqlite"
	"github.com/mesh-intelligence/repertoire/pkg/types"
)

// openStore opens the backend named by cfg.Backend.
func openStore(ctx context.Context, cfg types.Config) (types.GraphStore, error) {
	switch cfg.Backend {
	case types.BackendPostgres:
		s, err := postgres.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case types.BackendSQLite:
		b := sqlite.NewBackend()
		if err := b.Open(ctx, cfg); err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, types.ErrBackendUnknown
}

// openReadPath opens what queries need: the store when reachable and the
// snapshot when readable. A store that is merely unavailable is logged and
// left nil so queries fall back; any other store error is returned.
func (a *app) openReadPath(ctx context.Context) (types.GraphStore, *snapshot.Cache, error) {
	store, err := openStore(ctx, a.settings.Store)
	if err != nil {
		if !errors.Is(err, types.ErrStoreUnavailable) {
			return nil, nil, err
		}
		a.log.Warn("store unavailable, queries will use the snapshot", "backend", a.settings.Store.Backend, "error", err)
		store = nil
	}

	cache := snapshot.NewCache(a.settings.SnapshotPath)
	if snap, err := cache.Reload(); err != nil {
		a.log.Debug("snapshot not loaded", "path", cache.Path(), "error", err)
	} else {
		a.log.Debug("snapshot loaded", "path", cache.Path(), "participants", snap.Participants())
	}
	return store, cache, nil
}

func (a *app) engine(store types.GraphStore, cache *snapshot.Cache) *query.Engine {
	return query.New(store, cache, a.log)
}

func closeStore(store types.GraphStore) {
	if store != nil {
		store.Close()
	}
}
