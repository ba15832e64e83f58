package extract

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/repertoire/internal/textnorm"
)

// RejectFunc reports whether a cell text must not be ingested.
type RejectFunc func(text string) bool

// DefaultHeaderMarkers are the header words of the ensemble spreadsheet
// ("name", "knows"). Header rows that got copied or shifted into the data
// area contain them.
var DefaultHeaderMarkers = []string{"есім", "білетін"}

// HeaderMarkers returns a RejectFunc that matches any text containing one of
// markers, ignoring case. Blank markers are ignored.
func HeaderMarkers(markers []string) RejectFunc {
	folded := make([]string, 0, len(markers))
	for _, m := range markers {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		folded = append(folded, textnorm.Fold(m))
	}
	return func(text string) bool {
		if len(folded) == 0 {
			return false
		}
		t := textnorm.Fold(text)
		for _, m := range folded {
			if strings.Contains(t, m) {
				return true
			}
		}
		return false
	}
}

// DefaultColumnPairs is the block layout of the ensemble spreadsheet export:
// 16 participant blocks of (name, title), separated by spacer columns.
var DefaultColumnPairs = []ColumnPair{
	{1, 2}, {4, 5}, {7, 8}, {11, 12}, {14, 15},
	{17, 18}, {20, 21}, {23, 24}, {26, 27}, {29, 30},
	{32, 33}, {35, 36}, {38, 39}, {41, 42}, {45, 46}, {48, 49},
}

// ParsePairs converts [[name, title], ...] as read from configuration.
func ParsePairs(raw [][]int) ([]ColumnPair, error) {
	pairs := make([]ColumnPair, 0, len(raw))
	for i, r := range raw {
		if len(r) != 2 {
			return nil, &LayoutError{Index: i, Msg: "expected [name, title]"}
		}
		if r[0] < 0 || r[1] < 0 {
			return nil, &LayoutError{Index: i, Msg: "negative column index"}
		}
		pairs = append(pairs, ColumnPair{Name: r[0], Title: r[1]})
	}
	return pairs, nil
}

// LayoutError reports a malformed column layout entry.
type LayoutError struct {
	Index int
	Msg   string
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("column pair %d: %s", e.Index, e.Msg)
}
