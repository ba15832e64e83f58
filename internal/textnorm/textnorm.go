// Package textnorm canonicalizes raw spreadsheet and document cell values
// into keys, and folds text for case-insensitive matching.
package textnorm

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// Normalize stringifies a raw cell value and trims surrounding whitespace.
// The second result is false when the value is empty after trimming or has
// no sensible text form (nil, composite values, NaN).
//
// Keys keep their case: "Aigerim" and "aigerim" normalize to different keys.
func Normalize(raw any) (string, bool) {
	s, ok := stringify(raw)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}

func stringify(raw any) (string, bool) {
	switch v := raw.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case []byte:
		return string(v), true
	case bool:
		return strconv.FormatBool(v), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case uint:
		return strconv.FormatUint(uint64(v), 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case float32:
		return formatFloat(float64(v), 32)
	case float64:
		return formatFloat(v, 64)
	case fmt.Stringer:
		return v.String(), true
	case map[string]any, []any:
		return "", false
	default:
		return fmt.Sprint(v), true
	}
}

// formatFloat renders integral values without a fractional part, the way a
// spreadsheet shows them.
func formatFloat(f float64, bits int) (string, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}
	return strconv.FormatFloat(f, 'f', -1, bits), true
}

// Fold returns the case-folded form of s for case-insensitive comparison.
// A Caser is stateful, so each call builds its own.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// ContainsFold reports whether needle occurs in haystack, ignoring case.
func ContainsFold(haystack, needle string) bool {
	return strings.Contains(Fold(haystack), Fold(needle))
}
