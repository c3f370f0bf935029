package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"time"

	"dental-ledger/internal/domain"

	"github.com/lib/pq"
)

// PostgreSQL SQLSTATE codes we classify
const (
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
	pqNotNullViolation    = "23502"
	pqInvalidTextRepr     = "22P02"
	pqNumericOutOfRange   = "22003"
)

// DefaultQueryTimeout bound applied to each store call when none is configured
const DefaultQueryTimeout = 5 * time.Second

// classifyError maps driver errors onto the ledger error taxonomy.
// write marks statements that may have changed data, for IOError.Uncertain.
func classifyError(op string, write bool, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFoundf("%s", op)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqForeignKeyViolation:
			return domain.ReferentialIntegrityf("%s: %s", op, constraintOrMessage(pqErr))
		case pqCheckViolation, pqNotNullViolation, pqInvalidTextRepr, pqNumericOutOfRange:
			return domain.Validationf("%s: %s", op, constraintOrMessage(pqErr))
		}
		// the server rejected the statement, so nothing was committed
		return &domain.IOError{Op: op, Uncertain: false, Err: err}
	}

	return &domain.IOError{Op: op, Uncertain: write && !neverSent(err), Err: err}
}

func constraintOrMessage(e *pq.Error) string {
	if e.Constraint != "" {
		return e.Constraint
	}
	return e.Message
}

// neverSent reports failures that happen before the statement reaches the server
func neverSent(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return false
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultQueryTimeout
	}
	return context.WithTimeout(ctx, d)
}
