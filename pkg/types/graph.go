package types

import "context"

// GraphStore is the relational backend holding people, pieces, and knows
// edges. Every write is idempotent. Implementations return errors wrapping
// ErrStoreUnavailable for connectivity faults and timeouts so that callers
// can tell transient faults from bad input.
type GraphStore interface {
	// UpsertPerson returns the id of the person with the given name,
	// creating the row if it does not exist. Concurrent calls with the same
	// new name create at most one row; the loser re-reads the winner's id.
	UpsertPerson(ctx context.Context, name string) (string, error)

	// UpsertPiece is the piece counterpart of UpsertPerson.
	UpsertPiece(ctx context.Context, title string) (string, error)

	// LinkKnows creates the edge if absent. Linking an existing pair is a
	// no-op. Returns ErrNotFound if either endpoint does not exist.
	LinkKnows(ctx context.Context, personID, pieceID string) error

	// AddRepertoire upserts the person and the piece and links them in a
	// single transaction.
	AddRepertoire(ctx context.Context, name, title string) (Person, Piece, error)

	// ListPieces returns every piece title, byte-wise sorted.
	ListPieces(ctx context.Context) ([]string, error)

	// Search returns the distinct people linked to any piece whose title
	// contains substring, compared case-insensitively, in creation order and
	// truncated to limit (DefaultSearchLimit when limit <= 0).
	Search(ctx context.Context, substring string, limit int) ([]PersonRef, error)

	// DeletePerson removes a person and its edges.
	DeletePerson(ctx context.Context, id string) error

	// DeletePiece removes a piece and its edges.
	DeletePiece(ctx context.Context, id string) error

	// Counts returns the row count of each relation.
	Counts(ctx context.Context) (Counts, error)

	// Close releases the backend. Operations after Close fail with
	// ErrStoreUnavailable.
	Close() error
}
