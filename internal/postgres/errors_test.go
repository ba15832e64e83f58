package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/mesh-intelligence/repertoire/pkg/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"foreign key", &pgconn.PgError{Code: "23503"}, types.ErrNotFound},
		{"not null", &pgconn.PgError{Code: "23502"}, types.ErrValidation},
		{"check", &pgconn.PgError{Code: "23514"}, types.ErrValidation},
		{"connection failure", &pgconn.PgError{Code: "08006"}, types.ErrStoreUnavailable},
		{"too many connections", &pgconn.PgError{Code: "53300"}, types.ErrStoreUnavailable},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, types.ErrStoreUnavailable},
		{"statement timeout", &pgconn.PgError{Code: "57014"}, types.ErrStoreUnavailable},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, types.ErrStoreUnavailable},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), types.ErrStoreUnavailable},
		{"no rows", pgx.ErrNoRows, types.ErrNotFound},
		{"already classified", fmt.Errorf("x: %w", types.ErrStoreUnavailable), types.ErrStoreUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassifyLeavesOtherErrors(t *testing.T) {
	syntax := &pgconn.PgError{Code: "42601"}
	got := classify(syntax)
	assert.False(t, errors.Is(got, types.ErrStoreUnavailable))
	assert.False(t, errors.Is(got, types.ErrNotFound))
	assert.Same(t, syntax, got)

	assert.NoError(t, classify(nil))
}

func TestStoreClosed(t *testing.T) {
	s := &Store{}
	_, err := s.Search(context.Background(), "x", 0)
	assert.ErrorIs(t, err, types.ErrStoreUnavailable)
	assert.ErrorIs(t, err, types.ErrStoreClosed)
	assert.NoError(t, s.Close())
}

func TestOpenRejectsWrongBackend(t *testing.T) {
	_, err := Open(context.Background(), types.Config{Backend: types.BackendSQLite})
	assert.ErrorIs(t, err, types.ErrBackendUnknown)
}
