package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/repertoire/pkg/types"
)

// classify wraps driver errors with the types sentinel callers branch on.
// Errors already carrying a sentinel pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, types.ErrStoreUnavailable) ||
		errors.Is(err, types.ErrNotFound) ||
		errors.Is(err, types.ErrValidation) {
		return err
	}

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%w: %w", types.ErrNotFound, err)
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, driver.ErrBadConn):
		return fmt.Errorf("%w: %w", types.ErrStoreUnavailable, err)
	}

	var se *msqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%w: %w", types.ErrNotFound, err)
		case sqlite3.SQLITE_CONSTRAINT_NOTNULL, sqlite3.SQLITE_CONSTRAINT_CHECK:
			return fmt.Errorf("%w: %w", types.ErrValidation, err)
		}
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY,
			sqlite3.SQLITE_LOCKED,
			sqlite3.SQLITE_IOERR,
			sqlite3.SQLITE_CANTOPEN,
			sqlite3.SQLITE_FULL,
			sqlite3.SQLITE_NOMEM,
			sqlite3.SQLITE_INTERRUPT,
			sqlite3.SQLITE_PROTOCOL:
			return fmt.Errorf("%w: %w", types.ErrStoreUnavailable, err)
		}
		return err
	}

	// database/sql does not export its closed-database error.
	if strings.Contains(err.Error(), "database is closed") {
		return fmt.Errorf("%w: %w", types.ErrStoreUnavailable, err)
	}
	return err
}
