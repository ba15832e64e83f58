package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema DDL. Natural keys are UNIQUE so that concurrent upserts create at
// most one row; knows edges cascade with either endpoint.
const (
	createPeople = `CREATE TABLE IF NOT EXISTS people (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE CHECK (name <> '')
);`

	createPieces = `CREATE TABLE IF NOT EXISTS pieces (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL UNIQUE CHECK (title <> '')
);`

	createKnows = `CREATE TABLE IF NOT EXISTS knows (
    person_id TEXT NOT NULL REFERENCES people(id) ON DELETE CASCADE,
    piece_id TEXT NOT NULL REFERENCES pieces(id) ON DELETE CASCADE,
    PRIMARY KEY (person_id, piece_id)
);`

	idxKnowsPiece = `CREATE INDEX IF NOT EXISTS idx_knows_piece ON knows(piece_id);`
)

// schemaDDL lists the statements in dependency order.
var schemaDDL = []string{
	createPeople,
	createPieces,
	createKnows,
	idxKnowsPiece,
}

func applySchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaDDL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return classify(fmt.Errorf("applying schema: %w", err))
		}
	}
	return nil
}
