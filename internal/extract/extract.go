// Package extract pulls (name, title) pairs out of a spreadsheet row matrix
// whose participant blocks repeat at fixed, non-contiguous column offsets.
package extract

import (
	"fmt"
	"iter"
	"strings"

	"github.com/mesh-intelligence/repertoire/internal/textnorm"
)

// ColumnPair maps one participant block of a row to its name and title
// columns.
type ColumnPair struct {
	Name  int `json:"name" yaml:"name"`
	Title int `json:"title" yaml:"title"`
}

// Pair is a candidate (name, title) pair, already normalized.
type Pair struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// Reason explains why a candidate was dropped.
type Reason string

const (
	ReasonEmpty        Reason = "empty"
	ReasonHeaderMarker Reason = "header_marker"
	ReasonBadRow       Reason = "bad_row"
)

// Rejection describes a dropped candidate. Out-of-range columns on ragged
// rows are not rejections; the row simply has no such block.
type Rejection struct {
	Row    int
	Pair   ColumnPair
	Reason Reason
	Detail string
}

// Extractor turns a row matrix into (name, title) pairs.
type Extractor struct {
	pairs  []ColumnPair
	reject RejectFunc

	// OnReject, when set, is called for every dropped candidate.
	OnReject func(Rejection)
}

// New returns an Extractor over the given column layout. A nil reject
// predicate means no header filtering.
func New(pairs []ColumnPair, reject RejectFunc) *Extractor {
	if reject == nil {
		reject = func(string) bool { return false }
	}
	cp := make([]ColumnPair, len(pairs))
	copy(cp, pairs)
	return &Extractor{pairs: cp, reject: reject}
}

// Pairs returns the configured column layout.
func (e *Extractor) Pairs() []ColumnPair {
	cp := make([]ColumnPair, len(e.pairs))
	copy(cp, e.pairs)
	return cp
}

// Extract lazily yields the valid pairs of rows. Row 0 is the header and is
// skipped. Pairs come out in row order, then in configured pair order within
// a row. A row that fails to read yields nothing and extraction continues.
func (e *Extractor) Extract(rows [][]any) iter.Seq[Pair] {
	return func(yield func(Pair) bool) {
		for i := 1; i < len(rows); i++ {
			found, ok := e.row(i, rows[i])
			if !ok {
				continue
			}
			for _, p := range found {
				if !yield(p) {
					return
				}
			}
		}
	}
}

// row collects the pairs of a single row. Cell conversion runs foreign
// Stringer code, so a panic there drops the whole row instead of the run.
func (e *Extractor) row(i int, row []any) (found []Pair, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			found, ok = nil, false
			e.rejected(Rejection{Row: i, Reason: ReasonBadRow, Detail: fmt.Sprint(r)})
		}
	}()

	for _, cp := range e.pairs {
		if cp.Name < 0 || cp.Title < 0 || cp.Name >= len(row) || cp.Title >= len(row) {
			continue
		}
		if p, ok := e.candidate(i, cp, row[cp.Name], row[cp.Title]); ok {
			found = append(found, p)
		}
	}
	return found, true
}

// Candidate normalizes one raw (name, title) pair from a source that is not
// a row matrix, applying the same empty and header-marker checks as Extract.
// Row is only used in the Rejection passed to OnReject.
func (e *Extractor) Candidate(row int, rawName, rawTitle any) (Pair, bool) {
	return e.candidate(row, ColumnPair{Name: -1, Title: -1}, rawName, rawTitle)
}

func (e *Extractor) candidate(i int, cp ColumnPair, rawName, rawTitle any) (Pair, bool) {
	name, okName := textnorm.Normalize(rawName)
	title, okTitle := textnorm.Normalize(rawTitle)
	if !okName || !okTitle {
		e.rejected(Rejection{Row: i, Pair: cp, Reason: ReasonEmpty})
		return Pair{}, false
	}
	if e.reject(name) || e.reject(title) {
		e.rejected(Rejection{Row: i, Pair: cp, Reason: ReasonHeaderMarker, Detail: name + " / " + title})
		return Pair{}, false
	}
	return Pair{Name: name, Title: title}, true
}

func (e *Extractor) rejected(r Rejection) {
	if e.OnReject != nil {
		e.OnReject(r)
	}
}

// String renders a layout as "(1,2) (4,5)".
func (cp ColumnPair) String() string {
	return fmt.Sprintf("(%d,%d)", cp.Name, cp.Title)
}

// FormatPairs renders a layout for logs.
func FormatPairs(pairs []ColumnPair) string {
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.String()
	}
	return strings.Join(parts, " ")
}
