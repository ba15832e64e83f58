package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mesh-intelligence/repertoire/pkg/types"
)

// classify wraps pgx errors with the types sentinel callers branch on.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, types.ErrStoreUnavailable) ||
		errors.Is(err, types.ErrNotFound) ||
		errors.Is(err, types.ErrValidation) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %w", types.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code := strings.TrimSpace(pgErr.Code)
		switch {
		case code == "23503": // foreign_key_violation
			return fmt.Errorf("%w: %w", types.ErrNotFound, err)
		case code == "23502", code == "23514": // not_null, check
			return fmt.Errorf("%w: %w", types.ErrValidation, err)
		case strings.HasPrefix(code, "08"), // connection exception
			strings.HasPrefix(code, "53"), // insufficient resources
			code == "57P01", code == "57P02", code == "57P03", // shutdown, cannot connect now
			code == "57014",                   // query_canceled (statement timeout)
			code == "40001", code == "40P01": // serialization failure, deadlock
			return fmt.Errorf("%w: %w", types.ErrStoreUnavailable, err)
		}
		return err
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		pgconn.Timeout(err),
		errors.As(err, &connErr),
		errors.As(err, &netErr):
		return fmt.Errorf("%w: %w", types.ErrStoreUnavailable, err)
	}
	if strings.Contains(err.Error(), "closed pool") {
		return fmt.Errorf("%w: %w", types.ErrStoreUnavailable, err)
	}
	return err
}
