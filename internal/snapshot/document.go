// Package snapshot holds the denormalized group document (group, then
// participants, then piece titles) and the immutable in-memory view queries
// fall back to when the relational store is unreachable.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrMalformed marks a document that is not a group document.
var ErrMalformed = errors.New("malformed group document")

// Keys selects the participant field names of a document.
type Keys int

const (
	// KeysPlain uses "name" and "pieces".
	KeysPlain Keys = iota
	// KeysLocalized uses "Есім" and "Репертуар", as the ensemble's own
	// exports do.
	KeysLocalized
)

func (k Keys) names() (name, pieces string) {
	if k == KeysLocalized {
		return "Есім", "Репертуар"
	}
	return "name", "pieces"
}

// Participant is one entry of a group.
type Participant struct {
	Name   string
	Pieces []string
}

// Group is a named, ordered list of participants.
type Group struct {
	Name         string
	Participants []Participant
}

// Document is a group document. Groups keep their order in the source.
type Document struct {
	Groups []Group
	// Keys is the field naming used when the document is written back.
	Keys Keys
}

// Group returns the group named name, or nil.
func (d *Document) Group(name string) *Group {
	for i := range d.Groups {
		if d.Groups[i].Name == name {
			return &d.Groups[i]
		}
	}
	return nil
}

// Pairs calls fn for every (participant, piece) in document order until fn
// returns false.
func (d *Document) Pairs(fn func(name, title string) bool) {
	for _, g := range d.Groups {
		for _, p := range g.Participants {
			for _, title := range p.Pieces {
				if !fn(p.Name, title) {
					return
				}
			}
		}
	}
}

// Parse decodes a group document. Both plain and localized participant keys
// are accepted; the first participant that uses a localized name key sets
// Keys. Piece entries that are not strings or numbers are dropped.
func Parse(data []byte) (*Document, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top level is not an object", ErrMalformed)
	}

	doc := &Document{Keys: KeysPlain}
	localizedSeen := false
	var perr error
	root.ForEach(func(key, value gjson.Result) bool {
		if !value.IsArray() {
			perr = fmt.Errorf("%w: group %q is not a list", ErrMalformed, key.String())
			return false
		}
		g := Group{Name: key.String()}
		value.ForEach(func(_, entry gjson.Result) bool {
			if !entry.IsObject() {
				perr = fmt.Errorf("%w: group %q has a non-object participant", ErrMalformed, g.Name)
				return false
			}
			p, localized := parseParticipant(entry)
			if localized && !localizedSeen {
				localizedSeen = true
				doc.Keys = KeysLocalized
			}
			g.Participants = append(g.Participants, p)
			return true
		})
		if perr != nil {
			return false
		}
		doc.Groups = append(doc.Groups, g)
		return true
	})
	if perr != nil {
		return nil, perr
	}
	return doc, nil
}

func parseParticipant(entry gjson.Result) (Participant, bool) {
	localized := false
	name := entry.Get("name")
	if !name.Exists() {
		if alt := entry.Get("Есім"); alt.Exists() {
			name, localized = alt, true
		}
	}
	pieces := entry.Get("pieces")
	if !pieces.Exists() {
		pieces = entry.Get("Репертуар")
	}

	p := Participant{Name: scalar(name)}
	pieces.ForEach(func(_, v gjson.Result) bool {
		if v.Type == gjson.String || v.Type == gjson.Number {
			p.Pieces = append(p.Pieces, scalar(v))
		}
		return true
	})
	return p, localized
}

func scalar(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return r.Str
	case gjson.Number:
		return r.Raw
	}
	return ""
}

// MarshalJSON writes the document with groups in order. Keys are chosen by
// d.Keys.
func (d *Document) MarshalJSON() ([]byte, error) {
	nameKey, piecesKey := d.Keys.names()
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, g := range d.Groups {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(&buf, g.Name)
		buf.WriteString(":[")
		for j, p := range g.Participants {
			if j > 0 {
				buf.WriteByte(',')
			}
			buf.WriteByte('{')
			writeString(&buf, nameKey)
			buf.WriteByte(':')
			writeString(&buf, p.Name)
			buf.WriteByte(',')
			writeString(&buf, piecesKey)
			buf.WriteString(":[")
			for k, title := range p.Pieces {
				if k > 0 {
					buf.WriteByte(',')
				}
				writeString(&buf, title)
			}
			buf.WriteString("]}")
		}
		buf.WriteByte(']')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	// Encode appends a newline after the value.
	_ = enc.Encode(s)
	buf.Truncate(buf.Len() - 1)
}

// Indented returns the document as two-space indented JSON.
func (d *Document) Indented() ([]byte, error) {
	raw, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}
