package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mesh-intelligence/repertoire/pkg/types"
)

const upsertAttempts = 3

type keyedTable struct {
	insert string
	lookup string
}

var (
	peopleTable = keyedTable{
		insert: "INSERT INTO people (id, name) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING RETURNING id",
		lookup: "SELECT id FROM people WHERE name = $1",
	}
	piecesTable = keyedTable{
		insert: "INSERT INTO pieces (id, title) VALUES ($1, $2) ON CONFLICT (title) DO NOTHING RETURNING id",
		lookup: "SELECT id FROM pieces WHERE title = $1",
	}
)

const linkKnowsSQL = "INSERT INTO knows (person_id, piece_id) VALUES ($1, $2) ON CONFLICT (person_id, piece_id) DO NOTHING"

// upsertKey inserts or re-reads the winner of a unique-key race.
func upsertKey(ctx context.Context, q querier, t keyedTable, key string) (string, error) {
	for range upsertAttempts {
		var id string
		err := q.QueryRow(ctx, t.insert, newUUID(), key).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return "", err
		}
		err = q.QueryRow(ctx, t.lookup, key).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return "", err
		}
	}
	return "", fmt.Errorf("upserting %q: row vanished after conflict", key)
}

// UpsertPerson returns the id of the person named name, creating it if needed.
func (s *Store) UpsertPerson(ctx context.Context, name string) (string, error) {
	return s.upsert(ctx, peopleTable, "person", name)
}

// UpsertPiece returns the id of the piece titled title, creating it if needed.
func (s *Store) UpsertPiece(ctx context.Context, title string) (string, error) {
	return s.upsert(ctx, piecesTable, "piece", title)
}

func (s *Store) upsert(ctx context.Context, t keyedTable, kind, key string) (string, error) {
	if err := types.ValidateKey(key); err != nil {
		return "", fmt.Errorf("%s %q: %w", kind, key, err)
	}
	var id string
	err := s.withPool(ctx, func(ctx context.Context, pool *pgxpool.Pool) error {
		var err error
		id, err = upsertKey(ctx, pool, t, key)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("upserting %s: %w", kind, err)
	}
	return id, nil
}

// LinkKnows records that the person knows the piece. Re-linking is a no-op.
func (s *Store) LinkKnows(ctx context.Context, personID, pieceID string) error {
	if personID == "" || pieceID == "" {
		return fmt.Errorf("linking knows: %w", types.ErrValidation)
	}
	err := s.withPool(ctx, func(ctx context.Context, pool *pgxpool.Pool) error {
		_, err := pool.Exec(ctx, linkKnowsSQL, personID, pieceID)
		return err
	})
	if err != nil {
		return fmt.Errorf("linking knows: %w", err)
	}
	return nil
}

// AddRepertoire upserts both endpoints and the edge in one transaction.
func (s *Store) AddRepertoire(ctx context.Context, name, title string) (types.Person, types.Piece, error) {
	if err := types.ValidateKey(name); err != nil {
		return types.Person{}, types.Piece{}, fmt.Errorf("person %q: %w", name, err)
	}
	if err := types.ValidateKey(title); err != nil {
		return types.Person{}, types.Piece{}, fmt.Errorf("piece %q: %w", title, err)
	}

	person := types.Person{Name: name}
	piece := types.Piece{Title: title}
	err := s.withPool(ctx, func(ctx context.Context, pool *pgxpool.Pool) error {
		return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			var err error
			if person.ID, err = upsertKey(ctx, tx, peopleTable, name); err != nil {
				return err
			}
			if piece.ID, err = upsertKey(ctx, tx, piecesTable, title); err != nil {
				return err
			}
			_, err = tx.Exec(ctx, linkKnowsSQL, person.ID, piece.ID)
			return err
		})
	})
	if err != nil {
		return types.Person{}, types.Piece{}, fmt.Errorf("adding repertoire: %w", err)
	}
	return person, piece, nil
}

// DeletePerson removes the person; its edges cascade.
func (s *Store) DeletePerson(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "DELETE FROM people WHERE id = $1", id)
}

// DeletePiece removes the piece; its edges cascade.
func (s *Store) DeletePiece(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "DELETE FROM pieces WHERE id = $1", id)
}

func (s *Store) deleteByID(ctx context.Context, stmt, id string) error {
	if id == "" {
		return fmt.Errorf("deleting: %w", types.ErrValidation)
	}
	return s.withPool(ctx, func(ctx context.Context, pool *pgxpool.Pool) error {
		tag, err := pool.Exec(ctx, stmt, id)
		if err != nil {
			return fmt.Errorf("deleting %s: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return types.ErrNotFound
		}
		return nil
	})
}

const (
	// strpos with lower() keeps LIKE wildcards in the substring literal.
	searchSQL = `SELECT p.name FROM people p
WHERE EXISTS (
    SELECT 1 FROM knows k JOIN pieces pc ON pc.id = k.piece_id
    WHERE k.person_id = p.id AND strpos(lower(pc.title), lower($1)) > 0
)
ORDER BY p.id
LIMIT $2`

	searchAllSQL = `SELECT p.name FROM people p
WHERE EXISTS (SELECT 1 FROM knows k WHERE k.person_id = p.id)
ORDER BY p.id
LIMIT $1`

	// COLLATE "C" sorts by bytes, independent of the database locale.
	listPiecesSQL = `SELECT title FROM pieces ORDER BY title COLLATE "C"`
)

// ListPieces returns every piece title in byte order.
func (s *Store) ListPieces(ctx context.Context) ([]string, error) {
	var titles []string
	err := s.withPool(ctx, func(ctx context.Context, pool *pgxpool.Pool) error {
		rows, err := pool.Query(ctx, listPiecesSQL)
		if err != nil {
			return err
		}
		titles, err = pgx.CollectRows(rows, pgx.RowTo[string])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing pieces: %w", err)
	}
	if titles == nil {
		titles = []string{}
	}
	return titles, nil
}

// Search returns the people who know a piece whose title contains
// substring, ignoring case.
func (s *Store) Search(ctx context.Context, substring string, limit int) ([]types.PersonRef, error) {
	limit = types.EffectiveLimit(limit)
	var names []string
	err := s.withPool(ctx, func(ctx context.Context, pool *pgxpool.Pool) error {
		var (
			rows pgx.Rows
			err  error
		)
		if substring == "" {
			rows, err = pool.Query(ctx, searchAllSQL, limit)
		} else {
			rows, err = pool.Query(ctx, searchSQL, substring, limit)
		}
		if err != nil {
			return err
		}
		names, err = pgx.CollectRows(rows, pgx.RowTo[string])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	results := make([]types.PersonRef, len(names))
	for i, n := range names {
		results[i] = types.PersonRef{Name: n}
	}
	return results, nil
}

// Counts returns the row count of each relation.
func (s *Store) Counts(ctx context.Context) (types.Counts, error) {
	var c types.Counts
	err := s.withPool(ctx, func(ctx context.Context, pool *pgxpool.Pool) error {
		return pool.QueryRow(ctx, `SELECT
    (SELECT COUNT(*) FROM people),
    (SELECT COUNT(*) FROM pieces),
    (SELECT COUNT(*) FROM knows)`).Scan(&c.People, &c.Pieces, &c.Knows)
	})
	if err != nil {
		return types.Counts{}, fmt.Errorf("counting rows: %w", err)
	}
	return c, nil
}
