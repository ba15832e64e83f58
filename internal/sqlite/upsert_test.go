package sqlite

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/repertoire/pkg/types"
)

func TestUpsertPersonIdempotent(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)

	id1, err := b.UpsertPerson(ctx, "Aigerim")
	require.NoError(t, err)
	require.NotEmpty(t, id1)

	id2, err := b.UpsertPerson(ctx, "Aigerim")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	counts, err := b.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.People)
}

func TestUpsertIsCaseSensitive(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)

	upper, err := b.UpsertPerson(ctx, "Aigerim")
	require.NoError(t, err)
	lower, err := b.UpsertPerson(ctx, "aigerim")
	require.NoError(t, err)
	assert.NotEqual(t, upper, lower)
}

func TestUpsertRejectsUnnormalizedKeys(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)

	for _, key := range []string{"", " ", " Aigerim", "Aigerim "} {
		_, err := b.UpsertPerson(ctx, key)
		assert.ErrorIs(t, err, types.ErrValidation, "person %q", key)
		_, err = b.UpsertPiece(ctx, key)
		assert.ErrorIs(t, err, types.ErrValidation, "piece %q", key)
	}

	counts, err := b.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Counts{}, counts)
}

func TestUpsertConcurrentSameName(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)

	const writers = 8
	var (
		mu  sync.Mutex
		ids = map[string]bool{}
	)
	g, gctx := errgroup.WithContext(ctx)
	for range writers {
		g.Go(func() error {
			id, err := b.UpsertPiece(gctx, "Aigerim Kui")
			if err != nil {
				return err
			}
			mu.Lock()
			ids[id] = true
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Len(t, ids, 1, "all writers must observe the same id")

	counts, err := b.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Pieces)
}

func TestLinkKnows(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)

	alice, err := b.UpsertPerson(ctx, "Alice")
	require.NoError(t, err)
	bob, err := b.UpsertPerson(ctx, "Bob")
	require.NoError(t, err)
	piece, err := b.UpsertPiece(ctx, "Piece A")
	require.NoError(t, err)

	require.NoError(t, b.LinkKnows(ctx, alice, piece))
	require.NoError(t, b.LinkKnows(ctx, bob, piece))
	require.NoError(t, b.LinkKnows(ctx, alice, piece), "duplicate link is a no-op")

	counts, err := b.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Counts{People: 2, Pieces: 1, Knows: 2}, counts)
}

func TestLinkKnowsMissingEndpoint(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)

	alice, err := b.UpsertPerson(ctx, "Alice")
	require.NoError(t, err)

	err = b.LinkKnows(ctx, alice, "no-such-piece")
	assert.ErrorIs(t, err, types.ErrNotFound)

	err = b.LinkKnows(ctx, "", "x")
	assert.ErrorIs(t, err, types.ErrValidation)

	counts, err := b.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts.Knows)
}

func TestAddRepertoire(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)

	person, piece, err := b.AddRepertoire(ctx, "Aigerim", "Aigerim Kui")
	require.NoError(t, err)
	assert.Equal(t, "Aigerim", person.Name)
	assert.Equal(t, "Aigerim Kui", piece.Title)

	again, againPiece, err := b.AddRepertoire(ctx, "Aigerim", "Aigerim Kui")
	require.NoError(t, err)
	assert.Equal(t, person, again)
	assert.Equal(t, piece, againPiece)

	counts, err := b.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Counts{People: 1, Pieces: 1, Knows: 1}, counts)

	_, _, err = b.AddRepertoire(ctx, "Aigerim", "  ")
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)

	alice, pieceA, err := b.AddRepertoire(ctx, "Alice", "Piece A")
	require.NoError(t, err)
	_, _, err = b.AddRepertoire(ctx, "Alice", "Piece B")
	require.NoError(t, err)
	_, _, err = b.AddRepertoire(ctx, "Bob", "Piece A")
	require.NoError(t, err)

	require.NoError(t, b.DeletePiece(ctx, pieceA.ID))
	counts, err := b.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Counts{People: 2, Pieces: 1, Knows: 1}, counts)

	require.NoError(t, b.DeletePerson(ctx, alice.ID))
	counts, err = b.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Counts{People: 1, Pieces: 1, Knows: 0}, counts)

	assert.ErrorIs(t, b.DeletePerson(ctx, alice.ID), types.ErrNotFound)
	assert.ErrorIs(t, b.DeletePiece(ctx, ""), types.ErrValidation)
}

func TestUpsertManyDistinct(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)

	for i := range 20 {
		_, _, err := b.AddRepertoire(ctx, fmt.Sprintf("Person %02d", i), fmt.Sprintf("Piece %d", i%5))
		require.NoError(t, err)
	}
	counts, err := b.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Counts{People: 20, Pieces: 5, Knows: 20}, counts)
}
