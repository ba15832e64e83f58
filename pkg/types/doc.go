// Package types defines the repertoire graph entities, the GraphStore
// interface shared by the storage backends, configuration, and the standard
// error values used across ingestion and querying.
//
// The graph has three relations: people, pieces, and knows edges between
// them. People and pieces are identified by a natural key (name, title) that
// is unique and never rewritten; ids are opaque strings assigned by the store.
package types
