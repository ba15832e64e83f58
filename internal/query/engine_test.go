package query

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/repertoire/internal/extract"
	"github.com/mesh-intelligence/repertoire/internal/ingest"
	"github.com/mesh-intelligence/repertoire/internal/snapshot"
	"github.com/mesh-intelligence/repertoire/internal/sqlite"
	"github.com/mesh-intelligence/repertoire/pkg/types"
)

const fixture = `{
	"Үлкен топ": [
		{"name": "Aigerim", "pieces": ["Aigerim Kui", "Other"]},
		{"name": "Bolat", "pieces": ["kui of the steppe"]},
		{"name": "Dana", "pieces": ["B", "a"]}
	],
	"Кіші топ": [
		{"name": "Erlan", "pieces": ["KUI", "A"]},
		{"name": "Aigerim", "pieces": ["Adai"]}
	]
}`

// mirrored returns a store and a snapshot cache holding the same dataset.
func mirrored(t *testing.T) (*sqlite.Backend, *snapshot.Cache) {
	t.Helper()
	doc, err := snapshot.Parse([]byte(fixture))
	require.NoError(t, err)

	store := sqlite.NewBackend()
	require.NoError(t, store.Open(context.Background(), types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
	}))
	t.Cleanup(func() { store.Close() })

	p := ingest.NewPipeline(store, nil, extract.HeaderMarkers(extract.DefaultHeaderMarkers), nil)
	report, err := p.Run(context.Background(), ingest.Document{Doc: doc})
	require.NoError(t, err)
	require.Zero(t, report.Failed)

	cache := snapshot.NewCache("")
	cache.Set(doc)
	return store, cache
}

func TestFallbackEquivalence(t *testing.T) {
	store, cache := mirrored(t)
	ctx := context.Background()
	live := New(store, cache, nil)
	down := New(nil, cache, nil)

	for _, q := range []string{"kui", "KUI", "a", "", "missing", "Adai"} {
		for _, limit := range []int{0, 1, 2} {
			t.Run(fmt.Sprintf("%q/%d", q, limit), func(t *testing.T) {
				fromStore, origin, err := live.Search(ctx, q, limit)
				require.NoError(t, err)
				assert.Equal(t, FromStore, origin)

				fromSnap, origin, err := down.Search(ctx, q, limit)
				require.NoError(t, err)
				assert.Equal(t, FromSnapshot, origin)

				assert.Equal(t, fromStore, fromSnap)
			})
		}
	}

	storePieces, _, err := live.ListPieces(ctx)
	require.NoError(t, err)
	snapPieces, _, err := down.ListPieces(ctx)
	require.NoError(t, err)
	assert.Equal(t, storePieces, snapPieces)
	assert.Equal(t, []string{"A", "Adai", "Aigerim Kui", "B", "KUI", "Other", "a", "kui of the steppe"}, snapPieces)
}

func TestFallbackWhenStoreCloses(t *testing.T) {
	store, cache := mirrored(t)
	e := New(store, cache, nil)
	require.NoError(t, store.Close())

	got, origin, err := e.Search(context.Background(), "kui", 1)
	require.NoError(t, err)
	assert.Equal(t, FromSnapshot, origin)
	assert.Equal(t, []types.PersonRef{{Name: "Aigerim"}}, got)
}

func TestServiceUnavailable(t *testing.T) {
	e := New(nil, snapshot.NewCache(""), nil)

	_, _, err := e.Search(context.Background(), "kui", 0)
	assert.ErrorIs(t, err, types.ErrServiceUnavailable)
	assert.ErrorIs(t, err, types.ErrSnapshotNotLoaded)

	_, _, err = e.ListPieces(context.Background())
	assert.ErrorIs(t, err, types.ErrServiceUnavailable)

	_, _, err = New(nil, nil, nil).ListPieces(context.Background())
	assert.ErrorIs(t, err, types.ErrServiceUnavailable)
}

func TestEmptyResultIsNotUnavailable(t *testing.T) {
	store, cache := mirrored(t)
	got, _, err := New(store, cache, nil).Search(context.Background(), "no such piece", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// brokenStore fails every read with a non-transient error.
type brokenStore struct {
	types.GraphStore
}

var errCorrupt = errors.New("database disk image is malformed")

func (brokenStore) Search(context.Context, string, int) ([]types.PersonRef, error) {
	return nil, errCorrupt
}

func (brokenStore) ListPieces(context.Context) ([]string, error) {
	return nil, errCorrupt
}

func TestNoFallbackOnOtherErrors(t *testing.T) {
	_, cache := mirrored(t)
	e := New(brokenStore{}, cache, nil)

	_, _, err := e.Search(context.Background(), "kui", 0)
	assert.ErrorIs(t, err, errCorrupt)
	assert.NotErrorIs(t, err, types.ErrServiceUnavailable)

	_, _, err = e.ListPieces(context.Background())
	assert.ErrorIs(t, err, errCorrupt)
}

func TestCapEnforcement(t *testing.T) {
	store, cache := mirrored(t)
	for _, e := range []*Engine{New(store, cache, nil), New(nil, cache, nil)} {
		for limit := 1; limit <= 4; limit++ {
			got, _, err := e.Search(context.Background(), "", limit)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(got), limit)
		}
	}
}
