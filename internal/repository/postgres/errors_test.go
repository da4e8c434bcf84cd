package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"bad conn", driver.ErrBadConn, true},
		{"pq connection failure", &pq.Error{Code: "08006"}, true},
		{"pq serialization", &pq.Error{Code: "40001"}, true},
		{"pgx deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"pgx admin shutdown", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "57P01"}), true},
		{"unique violation", &pq.Error{Code: "23505"}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestWrapErr(t *testing.T) {
	assert.Nil(t, wrapErr("noop", nil))

	err := wrapErr("insert batch", &pq.Error{Code: "40P01", Message: "deadlock detected"})
	assert.ErrorIs(t, err, domain.ErrDatabase)
	assert.ErrorIs(t, err, domain.ErrTransient)

	err = wrapErr("insert batch", &pgconn.PgError{Code: "23514", Message: "check violation"})
	assert.ErrorIs(t, err, domain.ErrDatabase)
	assert.NotErrorIs(t, err, domain.ErrTransient)
	assert.Contains(t, err.Error(), "[23514]")

	assert.Equal(t, context.Canceled, wrapErr("insert batch", context.Canceled))
}
