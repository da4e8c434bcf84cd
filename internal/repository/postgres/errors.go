package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// wrapErr tags a driver error with domain.ErrDatabase, and domain.ErrTransient
// when retrying may help. Context errors pass through untouched.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if IsTransient(err) {
		return fmt.Errorf("%w: %w: %s: %v", domain.ErrDatabase, domain.ErrTransient, op, err)
	}
	if code := SQLState(err); code != "" {
		return fmt.Errorf("%w: %s: [%s] %v", domain.ErrDatabase, op, code, err)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrDatabase, op, err)
}

// SQLState returns the Postgres error code carried by err from either driver.
func SQLState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsTransient reports connection loss, serialization failures, deadlocks and
// admin shutdowns.
func IsTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	if code := SQLState(err); code != "" {
		return strings.HasPrefix(code, "08") || code == "40001" || code == "40P01" || code == "57P01"
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
