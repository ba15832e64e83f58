package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS people (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE CHECK (name <> '')
)`,
	`CREATE TABLE IF NOT EXISTS pieces (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL UNIQUE CHECK (title <> '')
)`,
	`CREATE TABLE IF NOT EXISTS knows (
    person_id TEXT NOT NULL REFERENCES people(id) ON DELETE CASCADE,
    piece_id TEXT NOT NULL REFERENCES pieces(id) ON DELETE CASCADE,
    PRIMARY KEY (person_id, piece_id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_knows_piece ON knows(piece_id)`,
}

func applySchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaDDL {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return classify(fmt.Errorf("applying schema: %w", err))
		}
	}
	return nil
}
