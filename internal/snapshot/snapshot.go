package snapshot

import (
	"slices"
	"strings"

	"github.com/mesh-intelligence/repertoire/internal/textnorm"
	"github.com/mesh-intelligence/repertoire/pkg/types"
)

// Snapshot is an immutable view of a group document, answering the same
// queries as a GraphStore by linear scan. Names and titles are normalized
// the way ingestion normalizes them, so a store loaded from the same
// document returns the same results.
type Snapshot struct {
	entries []entry
	pieces  []string
}

type entry struct {
	name   string
	folded []string
}

// New builds a snapshot from doc. Later changes to doc are not seen.
func New(doc *Document) *Snapshot {
	s := &Snapshot{}
	distinct := make(map[string]struct{})
	for _, g := range doc.Groups {
		for _, p := range g.Participants {
			name, ok := textnorm.Normalize(p.Name)
			if !ok {
				continue
			}
			e := entry{name: name}
			for _, raw := range p.Pieces {
				title, ok := textnorm.Normalize(raw)
				if !ok {
					continue
				}
				e.folded = append(e.folded, textnorm.Fold(title))
				if _, dup := distinct[title]; !dup {
					distinct[title] = struct{}{}
					s.pieces = append(s.pieces, title)
				}
			}
			s.entries = append(s.entries, e)
		}
	}
	slices.Sort(s.pieces)
	if s.pieces == nil {
		s.pieces = []string{}
	}
	return s
}

// Search returns the names of participants knowing a piece whose title
// contains substring, ignoring case. Groups and participants are scanned in
// document order and scanning stops once limit names are found. A name that
// appears in several groups is returned once. An empty substring matches
// every participant with at least one piece.
func (s *Snapshot) Search(substring string, limit int) []types.PersonRef {
	limit = types.EffectiveLimit(limit)
	needle := textnorm.Fold(substring)
	results := []types.PersonRef{}
	seen := make(map[string]struct{})
	for _, e := range s.entries {
		if len(results) >= limit {
			break
		}
		if _, dup := seen[e.name]; dup {
			continue
		}
		if !e.matches(needle) {
			continue
		}
		seen[e.name] = struct{}{}
		results = append(results, types.PersonRef{Name: e.name})
	}
	return results
}

func (e entry) matches(foldedNeedle string) bool {
	for _, t := range e.folded {
		if strings.Contains(t, foldedNeedle) {
			return true
		}
	}
	return false
}

// ListPieces returns the distinct piece titles in byte order. The caller
// must not modify the returned slice.
func (s *Snapshot) ListPieces() []string {
	return s.pieces
}

// Participants returns the number of participant entries with a usable name.
func (s *Snapshot) Participants() int {
	return len(s.entries)
}
