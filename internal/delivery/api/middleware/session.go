package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"lexcourt/internal/delivery/api/response"
	deliverycontext "lexcourt/internal/delivery/context"
	"lexcourt/internal/domain/entity"
	"lexcourt/internal/usecase"
)

const keySessions = "sessions"

// SessionMiddleware attaches the session manager of the request's client
// context and enforces the route guard on role-scoped views.
type SessionMiddleware struct {
	registry usecase.SessionRegistry
	guard    usecase.RouteGuard
}

// NewSessionMiddleware creates the session middleware.
func NewSessionMiddleware(registry usecase.SessionRegistry, guard usecase.RouteGuard) *SessionMiddleware {
	return &SessionMiddleware{registry: registry, guard: guard}
}

// Attach must run after the client middleware.
func (m *SessionMiddleware) Attach(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		clientID := deliverycontext.GetClientID(c)
		if clientID == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "missing client context")
		}
		c.Set(keySessions, m.registry.Get(clientID))

		return next(c)
	}
}

// Protect renders the guard decision for the request path and only calls
// next on allow. Paths the guard does not map still require a session. The
// decision is taken from one snapshot so a concurrent transition cannot
// split it.
func (m *SessionMiddleware) Protect(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		path := c.Request().URL.Path
		dest, ok := m.guard.Resolve(path)
		if !ok {
			dest = entity.Destination{Path: path}
		}

		decision := m.guard.Evaluate(dest, Sessions(c).Snapshot())
		if decision.Outcome != entity.GuardAllow {
			return response.Guard(c, decision)
		}

		return next(c)
	}
}

// Sessions returns the session manager attached by Attach.
func Sessions(c echo.Context) usecase.SessionUsecase {
	sessions, _ := c.Get(keySessions).(usecase.SessionUsecase)

	return sessions
}
