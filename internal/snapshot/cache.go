package snapshot

import (
	"fmt"
	"sync/atomic"

	"github.com/mesh-intelligence/repertoire/pkg/types"
)

type loaded struct {
	doc  *Document
	snap *Snapshot
}

// Cache holds the last good snapshot read from a document file. Readers
// never block; Reload swaps in a new snapshot only when the file parses.
type Cache struct {
	path    string
	current atomic.Pointer[loaded]
}

// NewCache returns an empty cache for the document at path. Nothing is read
// until Reload.
func NewCache(path string) *Cache {
	return &Cache{path: path}
}

// Path returns the document file the cache reads.
func (c *Cache) Path() string {
	return c.path
}

// Reload reads and parses the document file. On failure the previous
// snapshot, if any, stays in place.
func (c *Cache) Reload() (*Snapshot, error) {
	doc, err := ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("reloading snapshot: %w", err)
	}
	return c.Set(doc), nil
}

// Set replaces the cached snapshot with one built from doc.
func (c *Cache) Set(doc *Document) *Snapshot {
	l := &loaded{doc: doc, snap: New(doc)}
	c.current.Store(l)
	return l.snap
}

// Snapshot returns the current snapshot, or ErrSnapshotNotLoaded.
func (c *Cache) Snapshot() (*Snapshot, error) {
	l := c.current.Load()
	if l == nil {
		return nil, types.ErrSnapshotNotLoaded
	}
	return l.snap, nil
}

// Document returns the document the current snapshot was built from. The
// caller must not modify it.
func (c *Cache) Document() (*Document, error) {
	l := c.current.Load()
	if l == nil {
		return nil, types.ErrSnapshotNotLoaded
	}
	return l.doc, nil
}
