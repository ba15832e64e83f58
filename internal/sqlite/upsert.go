package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/repertoire/pkg/types"
)

// upsertAttempts bounds the insert/re-read loop. A second pass is only
// needed when the winning row is deleted between our insert and re-read.
const upsertAttempts = 3

// keyedTable names the columns of a relation keyed by a unique natural key.
type keyedTable struct {
	insert string // INSERT ... ON CONFLICT DO NOTHING RETURNING id
	lookup string // SELECT id ... WHERE key = ?
}

var (
	peopleTable = keyedTable{
		insert: "INSERT INTO people (id, name) VALUES (?, ?) ON CONFLICT(name) DO NOTHING RETURNING id",
		lookup: "SELECT id FROM people WHERE name = ?",
	}
	piecesTable = keyedTable{
		insert: "INSERT INTO pieces (id, title) VALUES (?, ?) ON CONFLICT(title) DO NOTHING RETURNING id",
		lookup: "SELECT id FROM pieces WHERE title = ?",
	}
)

// upsertKey inserts key with a fresh id, or returns the id of the existing
// row. The UNIQUE constraint decides the winner between concurrent writers;
// a writer whose insert did nothing re-reads the winner's id.
func upsertKey(ctx context.Context, q querier, t keyedTable, key string) (string, error) {
	for range upsertAttempts {
		var id string
		err := q.QueryRowContext(ctx, t.insert, newUUID(), key).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", err
		}

		err = q.QueryRowContext(ctx, t.lookup, key).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", err
		}
	}
	return "", fmt.Errorf("upserting %q: row vanished after conflict", key)
}

// UpsertPerson returns the id of the person named name, creating it if needed.
func (b *Backend) UpsertPerson(ctx context.Context, name string) (string, error) {
	if err := types.ValidateKey(name); err != nil {
		return "", fmt.Errorf("person %q: %w", name, err)
	}
	var id string
	err := b.withDB(ctx, func(ctx context.Context, db *sql.DB) error {
		var err error
		id, err = upsertKey(ctx, db, peopleTable, name)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("upserting person: %w", err)
	}
	return id, nil
}

// UpsertPiece returns the id of the piece titled title, creating it if needed.
func (b *Backend) UpsertPiece(ctx context.Context, title string) (string, error) {
	if err := types.ValidateKey(title); err != nil {
		return "", fmt.Errorf("piece %q: %w", title, err)
	}
	var id string
	err := b.withDB(ctx, func(ctx context.Context, db *sql.DB) error {
		var err error
		id, err = upsertKey(ctx, db, piecesTable, title)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("upserting piece: %w", err)
	}
	return id, nil
}

const linkKnowsSQL = "INSERT INTO knows (person_id, piece_id) VALUES (?, ?) ON CONFLICT(person_id, piece_id) DO NOTHING"

// LinkKnows records that the person knows the piece. Re-linking is a no-op.
// A missing endpoint fails the foreign key and reports ErrNotFound.
func (b *Backend) LinkKnows(ctx context.Context, personID, pieceID string) error {
	if personID == "" || pieceID == "" {
		return fmt.Errorf("linking knows: %w", types.ErrValidation)
	}
	err := b.withDB(ctx, func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx, linkKnowsSQL, personID, pieceID)
		return err
	})
	if err != nil {
		return fmt.Errorf("linking knows: %w", err)
	}
	return nil
}

// AddRepertoire upserts both endpoints and the edge in one transaction.
func (b *Backend) AddRepertoire(ctx context.Context, name, title string) (types.Person, types.Piece, error) {
	if err := types.ValidateKey(name); err != nil {
		return types.Person{}, types.Piece{}, fmt.Errorf("person %q: %w", name, err)
	}
	if err := types.ValidateKey(title); err != nil {
		return types.Person{}, types.Piece{}, fmt.Errorf("piece %q: %w", title, err)
	}

	person := types.Person{Name: name}
	piece := types.Piece{Title: title}
	err := b.withDB(ctx, func(ctx context.Context, db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		defer tx.Rollback()

		if person.ID, err = upsertKey(ctx, tx, peopleTable, name); err != nil {
			return err
		}
		if piece.ID, err = upsertKey(ctx, tx, piecesTable, title); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, linkKnowsSQL, person.ID, piece.ID); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return types.Person{}, types.Piece{}, fmt.Errorf("adding repertoire: %w", err)
	}
	return person, piece, nil
}

// DeletePerson removes the person; its edges cascade.
func (b *Backend) DeletePerson(ctx context.Context, id string) error {
	return b.deleteByID(ctx, "DELETE FROM people WHERE id = ?", id)
}

// DeletePiece removes the piece; its edges cascade.
func (b *Backend) DeletePiece(ctx context.Context, id string) error {
	return b.deleteByID(ctx, "DELETE FROM pieces WHERE id = ?", id)
}

func (b *Backend) deleteByID(ctx context.Context, stmt, id string) error {
	if id == "" {
		return fmt.Errorf("deleting: %w", types.ErrValidation)
	}
	return b.withDB(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx, stmt, id)
		if err != nil {
			return fmt.Errorf("deleting %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("deleting %s: %w", id, err)
		}
		if n == 0 {
			return types.ErrNotFound
		}
		return nil
	})
}
