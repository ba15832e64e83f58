package snapshot

import (
	"fmt"

	"github.com/mesh-intelligence/repertoire/internal/textnorm"
	"github.com/mesh-intelligence/repertoire/pkg/types"
)

// CleanReport counts what Clean changed.
type CleanReport struct {
	Merged     int `json:"merged"`
	Aliased    int `json:"aliased"`
	Duplicates int `json:"duplicates"`
	Dropped    int `json:"dropped"`
}

// Clean rewrites d in place. Within each group, participants with the same
// normalized name are merged into the first one. Piece titles are
// normalized, replaced through aliases and deduplicated keeping the first
// occurrence. Participants without a usable name and empty titles are
// dropped.
func (d *Document) Clean(aliases map[string]string) CleanReport {
	var r CleanReport
	for gi := range d.Groups {
		g := &d.Groups[gi]
		index := make(map[string]int)
		var merged []Participant
		for _, p := range g.Participants {
			name, ok := textnorm.Normalize(p.Name)
			if !ok {
				r.Dropped++
				continue
			}
			if i, dup := index[name]; dup {
				r.Merged++
				merged[i].Pieces = cleanPieces(append(merged[i].Pieces, p.Pieces...), aliases, &r)
				continue
			}
			index[name] = len(merged)
			merged = append(merged, Participant{Name: name, Pieces: cleanPieces(p.Pieces, aliases, &r)})
		}
		g.Participants = merged
	}
	return r
}

func cleanPieces(pieces []string, aliases map[string]string, r *CleanReport) []string {
	out := make([]string, 0, len(pieces))
	seen := make(map[string]struct{}, len(pieces))
	for _, raw := range pieces {
		title, ok := textnorm.Normalize(raw)
		if !ok {
			r.Dropped++
			continue
		}
		if fixed, ok := aliases[title]; ok && fixed != title {
			title = fixed
			r.Aliased++
		}
		if _, dup := seen[title]; dup {
			r.Duplicates++
			continue
		}
		seen[title] = struct{}{}
		out = append(out, title)
	}
	return out
}

// AddRepertoire appends pieces to the named participant of group, creating
// the group and participant when missing. Titles go through the same
// alias and dedupe rules as Clean.
func (d *Document) AddRepertoire(group, participant string, pieces []string, aliases map[string]string) error {
	groupName, ok := textnorm.Normalize(group)
	if !ok {
		return fmt.Errorf("group: %w", types.ErrValidation)
	}
	name, ok := textnorm.Normalize(participant)
	if !ok {
		return fmt.Errorf("participant: %w", types.ErrValidation)
	}

	g := d.Group(groupName)
	if g == nil {
		d.Groups = append(d.Groups, Group{Name: groupName})
		g = &d.Groups[len(d.Groups)-1]
	}

	var r CleanReport
	for i := range g.Participants {
		if p := &g.Participants[i]; p.Name == name {
			p.Pieces = cleanPieces(append(p.Pieces, pieces...), aliases, &r)
			return nil
		}
	}
	g.Participants = append(g.Participants, Participant{Name: name, Pieces: cleanPieces(pieces, aliases, &r)})
	return nil
}
