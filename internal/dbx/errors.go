package dbx

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/dmitrijs2005/modhub/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the repositories care about.
const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
	CodeCheckViolation      = "23514"
	CodeNotNullViolation    = "23502"
)

// transientCodes are SQLSTATE codes after which a retry may succeed.
var transientCodes = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"53300": {}, // too_many_connections
	"57P01": {}, // admin_shutdown
	"57P02": {}, // crash_shutdown
	"57P03": {}, // cannot_connect_now
	"57014": {}, // query_canceled (statement_timeout)
}

// Constraint returns the constraint name when err is a PostgreSQL error with
// the given SQLSTATE code.
func Constraint(err error, code string) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == code {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// IsTransient reports whether err looks like a connectivity, timeout or
// concurrency failure rather than a problem with the statement itself.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, common.ErrStorageUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if strings.HasPrefix(pgErr.Code, "08") {
			return true
		}
		_, ok := transientCodes[pgErr.Code]
		return ok
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Wrap annotates a driver error with "db error:" and, when the failure is
// transient, with common.ErrStorageUnavailable.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	if IsTransient(err) && !errors.Is(err, common.ErrStorageUnavailable) {
		return fmt.Errorf("db error: %w: %w", common.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("db error: %w", err)
}
