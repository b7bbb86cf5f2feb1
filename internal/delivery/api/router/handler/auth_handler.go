package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"lexcourt/internal/delivery/api/middleware"
	"lexcourt/internal/delivery/api/response"
	deliverycontext "lexcourt/internal/delivery/context"
	"lexcourt/internal/domain/entity"
	"lexcourt/internal/usecase"
)

// AuthHandlerParams holds dependencies for AuthHandler, injected by Fx.
type AuthHandlerParams struct {
	fx.In

	Guard  usecase.RouteGuard
	Logger *slog.Logger
}

// AuthHandler drives the session manager of the caller's client context.
type AuthHandler struct {
	guard  usecase.RouteGuard
	logger *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler
func NewAuthHandler(params AuthHandlerParams) *AuthHandler {
	return &AuthHandler{
		guard:  params.Guard,
		logger: params.Logger,
	}
}

// SignUpRequest represents the request body for creating an account
type SignUpRequest struct {
	Email    string                 `json:"email" validate:"required,email"`
	Password string                 `json:"password" validate:"required"`
	Profile  entity.ProfileMetadata `json:"profile"`
}

// SignInRequest represents the request body for signing in
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignUp registers an identity with its profile metadata and signs it in.
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req SignUpRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "Invalid sign-up input")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	sessions := middleware.Sessions(c)
	if _, err := sessions.SignUp(c.Request().Context(), &usecase.SignUpInput{
		Email:    req.Email,
		Password: req.Password,
		Metadata: req.Profile,
	}); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusCreated, newSessionView(sessions.Snapshot(), h.guard))
}

// SignIn authenticates and replaces any current session.
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req SignInRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "Invalid sign-in input")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	sessions := middleware.Sessions(c)
	if _, err := sessions.SignIn(c.Request().Context(), req.Email, req.Password); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, newSessionView(sessions.Snapshot(), h.guard))
}

// SignOut always leaves the client signed out. A failed remote invalidation
// is logged and reported in the body rather than as an error status.
func (h *AuthHandler) SignOut(c echo.Context) error {
	ctx := c.Request().Context()
	sessions := middleware.Sessions(c)

	remoteErr := sessions.SignOut(ctx)
	if remoteErr != nil {
		deliverycontext.GetLoggerOrDefault(ctx, h.logger).Warn("Remote session invalidation failed",
			slog.Any("error", remoteErr))
	}

	return response.Success(c, http.StatusOK, map[string]any{
		"session":            newSessionView(sessions.Snapshot(), h.guard),
		"remote_invalidated": remoteErr == nil,
	})
}
