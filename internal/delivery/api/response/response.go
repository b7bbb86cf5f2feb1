// Package response writes the JSON envelopes of the API.
package response

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	deliverycontext "lexcourt/internal/delivery/context"
	"lexcourt/internal/domain/entity"
	domainerrors "lexcourt/internal/domain/errors"
	"lexcourt/internal/errors"
)

// SuccessResponse defines the structure for successful responses
type SuccessResponse struct {
	Data any       `json:"data"`
	Meta *MetaInfo `json:"meta"`
}

// ErrorResponse defines the structure for error responses
type ErrorResponse struct {
	Error *ErrorInfo `json:"error"`
	Meta  *MetaInfo  `json:"meta"`
}

// ErrorInfo contains detailed error information
type ErrorInfo struct {
	Code    string `json:"code"`              // Machine-readable error code, e.g., "VALIDATION_FAILED"
	Message string `json:"message"`           // User-friendly error message
	Details any    `json:"details,omitempty"` // Additional error context (only for 4xx errors)
}

// MetaInfo represents response metadata
type MetaInfo struct {
	RequestID string `json:"request_id"`
}

// GuardResponse is returned when the route guard does not allow a view.
type GuardResponse struct {
	Guard entity.GuardDecision `json:"guard"`
	Meta  *MetaInfo            `json:"meta"`
}

func meta(c echo.Context) *MetaInfo {
	return &MetaInfo{RequestID: deliverycontext.GetRequestID(c)}
}

// Success returns a successful response
func Success(c echo.Context, statusCode int, data any) error {
	return c.JSON(statusCode, SuccessResponse{Data: data, Meta: meta(c)})
}

// Error returns an error response
func Error(c echo.Context, statusCode int, errorCode string, message string, details any) error {
	// Details are dropped for 5xx and for authentication or authorization failures.
	if statusCode >= 500 || statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden {
		details = nil
	}

	return c.JSON(statusCode, ErrorResponse{
		Error: &ErrorInfo{
			Code:    errorCode,
			Message: message,
			Details: details,
		},
		Meta: meta(c),
	})
}

// BadRequest returns a 400 error
func BadRequest(c echo.Context, errorCode string, message string) error {
	return Error(c, http.StatusBadRequest, errorCode, message, nil)
}

// BadRequestWithDetails returns a 400 error with details
func BadRequestWithDetails(c echo.Context, errorCode string, message string, details any) error {
	return Error(c, http.StatusBadRequest, errorCode, message, details)
}

// NotFound returns a 404 error
func NotFound(c echo.Context, errorCode string, message string) error {
	return Error(c, http.StatusNotFound, errorCode, message, nil)
}

// InternalServerError returns a 500 error
func InternalServerError(c echo.Context, errorCode string, message string) error {
	return Error(c, http.StatusInternalServerError, errorCode, message, nil)
}

// Guard renders a non-allow guard decision. Both redirects are 303 See Other
// so clients land on the sign-in page or the role's own home; loading asks
// the client to retry shortly.
func Guard(c echo.Context, decision entity.GuardDecision) error {
	status := http.StatusOK
	switch decision.Outcome {
	case entity.GuardRedirectSignIn, entity.GuardRedirectRole:
		status = http.StatusSeeOther
	case entity.GuardLoading:
		status = http.StatusAccepted
		c.Response().Header().Set("Retry-After", strconv.Itoa(1))
	case entity.GuardAllow:
	}
	if decision.Location != "" {
		c.Response().Header().Set(echo.HeaderLocation, decision.Location)
	}

	return c.JSON(status, GuardResponse{Guard: decision, Meta: meta(c)})
}

// HandleAppError writes AppErrors directly and hands anything else to the
// central error handler.
func HandleAppError(c echo.Context, err error) error {
	if appErr, ok := errors.AsType[domainerrors.AppError](err); ok {
		return Error(c, appErr.HTTPCode(), appErr.ErrorCode(), appErr.Message(), detailsOf(appErr))
	}

	return errors.WithStack(err)
}

func detailsOf(appErr domainerrors.AppError) any {
	if d := appErr.Details(); d != "" {
		return d
	}

	return nil
}
