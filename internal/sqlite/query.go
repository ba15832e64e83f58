package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/repertoire/pkg/types"
)

// Person ids are UUID v7, so ORDER BY id is creation order.
const (
	searchSQL = `SELECT p.name FROM people p
WHERE EXISTS (
    SELECT 1 FROM knows k JOIN pieces pc ON pc.id = k.piece_id
    WHERE k.person_id = p.id AND instr(casefold(pc.title), casefold(?)) > 0
)
ORDER BY p.id
LIMIT ?`

	searchAllSQL = `SELECT p.name FROM people p
WHERE EXISTS (SELECT 1 FROM knows k WHERE k.person_id = p.id)
ORDER BY p.id
LIMIT ?`

	// BINARY collation orders by bytes, matching sort.Strings.
	listPiecesSQL = "SELECT title FROM pieces ORDER BY title"
)

// ListPieces returns every piece title in byte order.
func (b *Backend) ListPieces(ctx context.Context) ([]string, error) {
	titles := []string{}
	err := b.withDB(ctx, func(ctx context.Context, db *sql.DB) error {
		rows, err := db.QueryContext(ctx, listPiecesSQL)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var title string
			if err := rows.Scan(&title); err != nil {
				return fmt.Errorf("scanning piece: %w", err)
			}
			titles = append(titles, title)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("listing pieces: %w", err)
	}
	return titles, nil
}

// Search returns the people who know a piece whose title contains
// substring, ignoring case.
func (b *Backend) Search(ctx context.Context, substring string, limit int) ([]types.PersonRef, error) {
	limit = types.EffectiveLimit(limit)
	results := []types.PersonRef{}
	err := b.withDB(ctx, func(ctx context.Context, db *sql.DB) error {
		var (
			rows *sql.Rows
			err  error
		)
		if substring == "" {
			rows, err = db.QueryContext(ctx, searchAllSQL, limit)
		} else {
			rows, err = db.QueryContext(ctx, searchSQL, substring, limit)
		}
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var ref types.PersonRef
			if err := rows.Scan(&ref.Name); err != nil {
				return fmt.Errorf("scanning person: %w", err)
			}
			results = append(results, ref)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	return results, nil
}

// Counts returns the row count of each relation.
func (b *Backend) Counts(ctx context.Context) (types.Counts, error) {
	var c types.Counts
	err := b.withDB(ctx, func(ctx context.Context, db *sql.DB) error {
		for _, q := range []struct {
			stmt string
			dst  *int
		}{
			{"SELECT COUNT(*) FROM people", &c.People},
			{"SELECT COUNT(*) FROM pieces", &c.Pieces},
			{"SELECT COUNT(*) FROM knows", &c.Knows},
		} {
			if err := db.QueryRowContext(ctx, q.stmt).Scan(q.dst); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return types.Counts{}, fmt.Errorf("counting rows: %w", err)
	}
	return c, nil
}
