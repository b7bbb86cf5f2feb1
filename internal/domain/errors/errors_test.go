package errors

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"lexcourt/internal/errors"
)

func TestBaseError_WithDetailsStillMatches(t *testing.T) {
	err := ErrForbidden.WithDetails("not a participant")

	assert.True(t, errors.Is(err, ErrForbidden))
	assert.False(t, errors.Is(err, ErrCaseNotFound))
	assert.Equal(t, "access denied: not a participant", err.Error())
	assert.Equal(t, http.StatusForbidden, err.HTTPCode())
}

func TestBaseError_WrapMessage(t *testing.T) {
	err := ErrRateLimited.WrapMessage("sign in")

	assert.True(t, errors.Is(err, ErrRateLimited))
	appErr, ok := errors.AsType[AppError](err)
	assert.True(t, ok)
	assert.Equal(t, "RATE_LIMITED", appErr.ErrorCode())
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(ErrNetwork))
	assert.True(t, IsTransient(errors.Wrap(ErrRateLimited, "authenticate")))
	assert.False(t, IsTransient(ErrInvalidCredentials))
	assert.False(t, IsTransient(ErrAlreadyRegistered))
	assert.False(t, IsTransient(nil))
}

func TestIsFatalResolve(t *testing.T) {
	assert.True(t, IsFatalResolve(ErrProfileMissing))
	assert.True(t, IsFatalResolve(errors.Wrap(ErrProfileAmbiguous, "resolve")))
	assert.False(t, IsFatalResolve(ErrProfileNotFound))
	assert.False(t, IsFatalResolve(ErrNetwork))
}

func TestDatabaseExecuteError(t *testing.T) {
	err := NewDatabaseExecuteError(io.ErrUnexpectedEOF, "insert case")

	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.Equal(t, "DATABASE_EXECUTE_FAILED", err.ErrorCode())
	assert.Equal(t, "insert case", err.Details())
}
