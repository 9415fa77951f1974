package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// SQLSTATE codes the repositories react to.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"
)

// pgError is the driver-neutral part of a postgres error.
type pgError struct {
	code       string
	constraint string
}

func asPG(err error) (pgError, bool) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgError{code: pgxErr.Code, constraint: pgxErr.ConstraintName}, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pgError{code: string(pqErr.Code), constraint: pqErr.Constraint}, true
	}
	return pgError{}, false
}

// IsUniqueViolation reports whether err is a unique constraint violation. A
// non-empty constraint narrows the match on postgres; sqlite does not name
// the violated index, so any of its unique failures match.
func IsUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	if pg, ok := asPG(err); ok {
		if pg.code != codeUniqueViolation {
			return false
		}
		return constraint == "" || pg.constraint == constraint ||
			(pg.constraint == "" && strings.Contains(err.Error(), constraint))
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsTransient reports whether a failed transaction can be retried from
// scratch: serialization failures, deadlocks, lock or statement timeouts and
// an expired context deadline.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	pg, ok := asPG(err)
	if !ok {
		return false
	}
	switch pg.code {
	case codeSerializationFailure, codeDeadlockDetected, codeQueryCanceled, codeLockNotAvailable:
		return true
	}
	return false
}
