package types

import "errors"

// Ingestion and query errors.
var (
	// ErrValidation marks an empty or malformed name or title, or a header
	// marker match. Never fatal for a batch.
	ErrValidation = errors.New("invalid name or title")

	// ErrStoreUnavailable marks a transient backend fault: lost connection,
	// busy database, timeout, or a closed store.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrSourceUnreadable marks an ingestion input that cannot be obtained
	// or parsed. Fatal for the run.
	ErrSourceUnreadable = errors.New("source unreadable")

	// ErrServiceUnavailable is returned by queries when neither the store
	// nor the snapshot could answer.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrSnapshotNotLoaded is returned by a snapshot cache that holds no
	// document yet.
	ErrSnapshotNotLoaded = errors.New("snapshot not loaded")
)

// Store lifecycle and lookup errors.
var (
	ErrNotFound    = errors.New("entity not found")
	ErrAlreadyOpen = errors.New("store is already open")
	ErrStoreClosed = errors.New("store is closed")
)
