package types

import (
	"errors"
	"time"
)

// Supported backend names.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// DefaultStoreTimeout bounds a single store call when Config leaves it unset.
const DefaultStoreTimeout = 5 * time.Second

// Config selects and parameterizes a GraphStore backend.
type Config struct {
	Backend string `json:"backend" yaml:"backend"`

	// DataDir holds the SQLite database file.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// DatabaseURL is the Postgres connection string.
	DatabaseURL string `json:"database_url" yaml:"database_url"`

	// StoreTimeout bounds each store call. Zero means DefaultStoreTimeout.
	StoreTimeout time.Duration `json:"store_timeout" yaml:"store_timeout"`
}

// Config validation errors.
var (
	ErrBackendEmpty        = errors.New("backend must not be empty")
	ErrBackendUnknown      = errors.New("unknown backend")
	ErrDatabaseURLEmpty    = errors.New("database_url is required for the postgres backend")
	ErrStoreTimeoutInvalid = errors.New("store timeout must not be negative")
)

var knownBackends = map[string]bool{
	BackendSQLite:   true,
	BackendPostgres: true,
}

// Validate checks that the Config is well-formed and returns a sentinel
// error from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.Backend == BackendPostgres && c.DatabaseURL == "" {
		return ErrDatabaseURLEmpty
	}
	if c.StoreTimeout < 0 {
		return ErrStoreTimeoutInvalid
	}
	return nil
}

// Timeout returns the effective per-call store deadline.
func (c Config) Timeout() time.Duration {
	if c.StoreTimeout <= 0 {
		return DefaultStoreTimeout
	}
	return c.StoreTimeout
}
