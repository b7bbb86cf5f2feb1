package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"lexcourt/internal/delivery/api/middleware"
	"lexcourt/internal/delivery/api/response"
	"lexcourt/internal/domain/entity"
	domainerrors "lexcourt/internal/domain/errors"
)

// ProfileHandler reads and edits the caller's own profile.
type ProfileHandler struct{}

// NewProfileHandler is the constructor for ProfileHandler
func NewProfileHandler() *ProfileHandler {
	return &ProfileHandler{}
}

// Get returns the resolved profile of the current session.
func (h *ProfileHandler) Get(c echo.Context) error {
	snapshot := middleware.Sessions(c).Snapshot()
	if snapshot.Session == nil {
		return response.HandleAppError(c, domainerrors.ErrNotAuthenticated)
	}
	if snapshot.Profile == nil {
		return response.HandleAppError(c, domainerrors.ErrProfileLoading)
	}

	return response.Success(c, http.StatusOK, newProfileView(snapshot.Profile))
}

// Update applies an owner edit. Role and the role-specific id cannot change.
func (h *ProfileHandler) Update(c echo.Context) error {
	var req entity.ProfileUpdate
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "INVALID_INPUT", "Invalid profile input")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	profile, err := middleware.Sessions(c).UpdateProfile(c.Request().Context(), &req)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, newProfileView(profile))
}
