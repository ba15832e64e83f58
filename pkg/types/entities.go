package types

import "strings"

// DefaultSearchLimit caps search results when the caller gives no limit.
const DefaultSearchLimit = 1000

// Person is a participant of the ensemble.
type Person struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Piece is a musical piece known by zero or more people.
type Piece struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// KnowsEdge records that a person knows a piece.
type KnowsEdge struct {
	PersonID string `json:"personId"`
	PieceID  string `json:"pieceId"`
}

// PersonRef is the shape of a search hit. The store and the snapshot return
// the same shape so callers cannot tell which path answered.
type PersonRef struct {
	Name string `json:"name"`
}

// PieceRef is the shape of a piece listing entry.
type PieceRef struct {
	Title string `json:"title"`
}

// Counts reports the number of rows in each relation.
type Counts struct {
	People int `json:"people"`
	Pieces int `json:"pieces"`
	Knows  int `json:"knows"`
}

// EffectiveLimit maps a non-positive limit to DefaultSearchLimit.
func EffectiveLimit(limit int) int {
	if limit <= 0 {
		return DefaultSearchLimit
	}
	return limit
}

// ValidateKey checks that a natural key is non-empty and already trimmed.
// Stores call it before writing so that no row is created with an
// unnormalized key.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) != key {
		return ErrValidation
	}
	return nil
}
