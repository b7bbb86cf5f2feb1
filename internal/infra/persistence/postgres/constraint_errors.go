package postgres

import (
	"context"
	"database/sql/driver"
	"net"
	"strings"

	"gorm.io/gorm"

	domainerrors "lexcourt/internal/domain/errors"
	"lexcourt/internal/errors"
)

// SQLSTATE codes checked by message when gorm did not translate the error.
const (
	sqlStateUniqueViolation     = "23505"
	sqlStateForeignKeyViolation = "23503"
	sqlStateCheckViolation      = "23514"
)

func isUniqueConstraintViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := err.Error()

	return strings.Contains(msg, sqlStateUniqueViolation) || strings.Contains(msg, "duplicate key")
}

func isForeignKeyConstraintViolation(err error) bool {
	return errors.Is(err, gorm.ErrForeignKeyViolated) || strings.Contains(err.Error(), sqlStateForeignKeyViolation)
}

func isCheckConstraintViolation(err error) bool {
	return errors.Is(err, gorm.ErrCheckConstraintViolated) || strings.Contains(err.Error(), sqlStateCheckViolation)
}

// isConnectionError reports failures of the transport rather than the statement.
func isConnectionError(err error) bool {
	if errors.IsAny(err, driver.ErrBadConn, context.DeadlineExceeded) {
		return true
	}

	if _, ok := errors.AsType[net.Error](err); ok {
		return true
	}

	msg := strings.ToLower(err.Error())

	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe")
}

// classifyError maps a driver error to the domain taxonomy. Context
// cancellation passes through untouched so callers can tell it apart.
func classifyError(err error, details string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return errors.Wrap(err, details)
	case isConnectionError(err):
		return domainerrors.ErrNetwork.WithDetails(details)
	case isCheckConstraintViolation(err), isForeignKeyConstraintViolation(err):
		return domainerrors.ErrValidationFailed.WithDetails(details + ": " + err.Error())
	default:
		return domainerrors.NewDatabaseExecuteError(err, details)
	}
}
